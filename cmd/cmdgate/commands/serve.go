package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/executor"
	"github.com/cmdgate/cmdgate/internal/logging"
	"github.com/cmdgate/cmdgate/internal/server"
	"github.com/cmdgate/cmdgate/internal/session"
)

var serveWorkDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Start the MCP server. The protocol runs over stdin/stdout, so this
command is meant to be launched by an MCP client; logs go to stderr.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveWorkDir, "directory", "", "Working directory for executed commands")
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	log := logging.With("main")
	log.Info().Str("version", Version).Uint64("config_version", snap.Version).Msg("starting cmdgate")

	sessions := session.NewManager(snap.Security.SessionTimeout)
	sweeper, err := session.NewSweeper(sessions, snap.Security.SessionTimeout)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	watcher, err := config.NewWatcher(store)
	if err != nil {
		return err
	}
	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	var execOpts []executor.Option
	if serveWorkDir != "" {
		execOpts = append(execOpts, executor.WithWorkDir(serveWorkDir))
	}
	srv := server.New(store, sessions, executor.New(execOpts...))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	}
}
