package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wiggum/internal/wisdom"
)

var wisdomCmd = &cobra.Command{
	Use:   "wisdom <task-id>",
	Short: "Show the accumulated failure wisdom for a task line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		if _, err := st.GetTask(args[0]); err != nil {
			return err
		}

		ledger := wisdom.NewLedger(args[0], st.TaskDir(args[0]))
		entries, err := ledger.Snapshot()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failed attempts recorded.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), wisdom.Render(entries, 0))
		return nil
	},
}

func init() {
	wisdomCmd.Flags().String("format", "text", "Output format: text or json")
}
