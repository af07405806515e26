package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdgate/cmdgate/internal/policy"
	"github.com/cmdgate/cmdgate/internal/session"
)

var checkCmd = &cobra.Command{
	Use:   "check <command>",
	Short: "Validate a command without executing it",
	Long: `Run a command string through the validation pipeline and print the
verdict as JSON. Nothing is executed. Write and system commands report
requires_approval, since an offline check has no session approvals.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	snap := store.Snapshot()

	raw := strings.Join(args, " ")
	verdict := policy.Decide(raw, session.AnonymousID, snap.Rules, nil)

	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if verdict.Decision == policy.DecisionRejected {
		cmd.SilenceUsage = true
		return fmt.Errorf("rejected: %s", verdict.Reason)
	}
	return nil
}
