// Package commands provides the CLI commands for cmdgate.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	configPath string
	envFile    string
	logLevel   string
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "cmdgate",
	Short: "cmdgate - command validation gateway for AI assistants",
	Long: `cmdgate validates shell commands requested by an AI assistant and
executes only the ones policy allows. Read commands run immediately;
write and system commands need a per-session approval; blocked commands
and dangerous patterns are always rejected.

Run 'cmdgate serve' to start the MCP server over stdio, or
'cmdgate check' to validate a command without executing it.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (JSON, JSONC or YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default \".env\")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR); overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty-logs", false, "Human-readable log output instead of JSON")

	rootCmd.SetVersionTemplate(fmt.Sprintf("cmdgate %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadStore loads the layered configuration and configures logging
// from it, letting the --log-level flag win.
func loadStore() (*config.Store, error) {
	store, err := config.Load(config.Options{
		ConfigPath: configPath,
		DotenvPath: envFile,
	})
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = store.Snapshot().Server.LogLevel
	}
	logging.Setup(level, prettyLogs)
	return store, nil
}
