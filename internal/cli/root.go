package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "wiggum",
	Short: "wiggum runs a code agent in a bounded retry loop",
	Long: `wiggum hands a task directive to an external code agent, runs it in a
disposable git worktree, and gates the result behind a verification
command. Failed attempts feed a wisdom ledger that is briefed into every
later attempt; the first verified success is merged into the baseline.

State lives under ~/.wiggum/ (SQLite for events, JSON for task history).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(wisdomCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
