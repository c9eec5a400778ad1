package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Show the attempt history of a task line",
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
		history, err := st.History(args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, history.Attempts)
		}

		if history.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No attempts recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ATTEMPT\tOUTCOME\tSTARTED\tHASH")
		for _, a := range history.Attempts {
			hash := a.Hash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.Attempt, a.Outcome, a.StartedAt, hash)
		}
		return w.Flush()
	},
}

var verifyLogCmd = &cobra.Command{
	Use:   "verify-log <task-id> <attempt>",
	Short: "Show the captured verification output for an attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		var attempt int
		if _, err := fmt.Sscanf(args[1], "%d", &attempt); err != nil {
			return fmt.Errorf("attempt must be a number: %q", args[1])
		}
		out, err := st.GetVerifyLog(args[0], attempt)
		if err != nil {
			return fmt.Errorf("no verify log for %s attempt %d", args[0], attempt)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("format", "text", "Output format: text or json")
	historyCmd.AddCommand(verifyLogCmd)
}
