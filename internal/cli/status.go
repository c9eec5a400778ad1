package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wiggum/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show task line status",
	Long: `Without arguments, lists every known task line with its attempt count
and latest outcome. With a task ID, shows that task's definition and
current position in the retry budget.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return showTask(cmd, st, args[0])
		}
		return listTasks(cmd, st)
	},
}

func listTasks(cmd *cobra.Command, st *store.Store) error {
	ids, err := st.ListTasks()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tATTEMPTS\tBUDGET\tLATEST")
	for _, id := range ids {
		rec, err := st.GetTask(id)
		if err != nil {
			continue
		}
		history, err := st.History(id)
		if err != nil {
			return err
		}
		latest := "-"
		if n := history.Len(); n > 0 {
			latest = string(history.Attempts[n-1].Outcome)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", id, history.Len(), rec.MaxRetries, latest)
	}
	return w.Flush()
}

func showTask(cmd *cobra.Command, st *store.Store, taskID string) error {
	rec, err := st.GetTask(taskID)
	if err != nil {
		return err
	}
	history, err := st.History(taskID)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		return writeJSON(cmd, struct {
			Task     *store.TaskRecord     `json:"task"`
			Attempts []store.AttemptRecord `json:"attempts"`
		}{rec, history.Attempts})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "task:           %s\n", rec.ID)
	fmt.Fprintf(w, "directive:      %s\n", rec.Directive)
	fmt.Fprintf(w, "baseline:       %s\n", rec.Baseline)
	fmt.Fprintf(w, "merge strategy: %s\n", rec.MergeStrategy)
	if rec.VerifyCommand != "" {
		fmt.Fprintf(w, "verify:         %s\n", rec.VerifyCommand)
	}
	fmt.Fprintf(w, "attempts:       %d/%d\n", history.Len(), rec.MaxRetries)
	if n := history.Len(); n > 0 {
		fmt.Fprintf(w, "latest outcome: %s\n", history.Attempts[n-1].Outcome)
	}
	return nil
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}
