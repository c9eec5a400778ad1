package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <task-id>",
	Short: "Show outcome and verification statistics for a task line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		events, closeEvents, err := openEvents(st)
		if err != nil {
			return err
		}
		defer closeEvents()

		stats, err := events.GetTaskStats(args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, stats)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "task:         %s\n", stats.TaskID)
		fmt.Fprintf(w, "attempts:     %d\n", stats.Attempts)
		fmt.Fprintf(w, "verify runs:  %d (%d passed, avg %dms)\n", stats.VerifyRuns, stats.VerifyPasses, stats.AvgVerifyMs)
		if stats.FirstEventAt != "" {
			fmt.Fprintf(w, "first event:  %s\n", stats.FirstEventAt)
			fmt.Fprintf(w, "latest event: %s\n", stats.LatestEventAt)
		}

		if len(stats.Outcomes) > 0 {
			fmt.Fprintln(w)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OUTCOME\tCOUNT")
			outcomes := make([]string, 0, len(stats.Outcomes))
			for o := range stats.Outcomes {
				outcomes = append(outcomes, o)
			}
			sort.Strings(outcomes)
			for _, o := range outcomes {
				fmt.Fprintf(tw, "%s\t%d\n", o, stats.Outcomes[o])
			}
			return tw.Flush()
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <task-id>",
	Short: "Show the raw attempt event log for a task line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		events, closeEvents, err := openEvents(st)
		if err != nil {
			return err
		}
		defer closeEvents()

		limit, _ := cmd.Flags().GetInt("limit")
		list, err := events.GetTaskEvents(args[0], limit)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tATTEMPT\tEVENT\tOUTCOME\tDETAIL")
		for _, e := range list {
			detail := e.Detail
			if len(detail) > 60 {
				detail = detail[:57] + "..."
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", e.Timestamp, e.Attempt, e.Event, e.Outcome, detail)
		}
		return tw.Flush()
	},
}

func init() {
	statsCmd.Flags().String("format", "text", "Output format: text or json")
	eventsCmd.Flags().Int("limit", 100, "maximum events to show")
	statsCmd.AddCommand(eventsCmd)
}
