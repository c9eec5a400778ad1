package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wiggum/internal/brief"
	"wiggum/internal/config"
	"wiggum/internal/gate"
	"wiggum/internal/merge"
	"wiggum/internal/orchestrator"
	"wiggum/internal/sandbox"
	"wiggum/internal/store"
	"wiggum/internal/supervise"
	"wiggum/internal/wisdom"
)

var runCmd = &cobra.Command{
	Use:   "run <directive...>",
	Short: "Run the retry loop for one task directive",
	Long: `Runs the external agent against the directive in disposable worktree
workspaces until verification passes, the retry budget is spent, or the
verified change conflicts with the baseline.

Exits 0 when a verified attempt was merged, 1 otherwise.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		baseline, _ := cmd.Flags().GetString("baseline")
		baseline, err = filepath.Abs(baseline)
		if err != nil {
			return fmt.Errorf("resolve baseline path: %w", err)
		}

		overrides, err := readOverrides(cmd)
		if err != nil {
			return err
		}
		task, err := config.ResolveTask(cfg, strings.Join(args, " "), baseline, overrides)
		if err != nil {
			return err
		}

		res, err := runTask(cmd, cfg, task)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s after %d attempt(s): %s\n", res.Status, res.Attempts, res.Message)
		if res.Status != orchestrator.RunSuccess {
			os.Exit(1)
		}
		return nil
	},
}

func readOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	o.TaskID, _ = cmd.Flags().GetString("task")
	o.Retries, _ = cmd.Flags().GetInt("retries")
	o.VerifyCommand, _ = cmd.Flags().GetString("verify")
	o.AgentCommand, _ = cmd.Flags().GetString("agent")
	o.MergeStrategy, _ = cmd.Flags().GetString("merge-strategy")
	if secs, _ := cmd.Flags().GetInt("timeout"); secs > 0 {
		o.Timeout = time.Duration(secs) * time.Second
	}
	return o, nil
}

// runTask wires the engine from config and drives it to a terminal state.
func runTask(cmd *cobra.Command, cfg *config.Config, task *config.Task) (*orchestrator.RunResult, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := st.CreateTask(&store.TaskRecord{
		ID:             task.ID,
		Directive:      task.Directive,
		AgentCommand:   task.AgentCommand,
		VerifyCommand:  task.VerifyCommand,
		MergeStrategy:  task.MergeStrategy,
		ProtectedPaths: task.ProtectedPaths,
		MaxRetries:     task.MaxRetries,
		TimeoutSeconds: int(task.Timeout.Seconds()),
		Baseline:       task.Baseline,
	}); err != nil {
		return nil, err
	}

	events, closeEvents, err := openEvents(st)
	if err != nil {
		return nil, err
	}
	defer closeEvents()

	briefs, err := brief.NewBuilder(task)
	if err != nil {
		return nil, err
	}

	git := &sandbox.ExecGit{}
	engine := orchestrator.NewEngine(
		task,
		st,
		wisdom.NewLedger(task.ID, st.TaskDir(task.ID)),
		sandbox.NewManager(git, task.Baseline, task.SandboxPrefix),
		briefs,
		supervise.NewSupervisor(&supervise.ExecTmux{}, task.PollInterval, task.BootDelay),
		gate.NewGate(&gate.ExecRunner{}, task.MaxVerifyOut, task.Timeout),
		merge.NewResolver(git, task.Baseline),
		events,
		cmd.OutOrStdout(),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "task %s (%d attempt budget)\n", task.ID, task.MaxRetries)
	return engine.Run()
}

func init() {
	runCmd.Flags().String("baseline", ".", "git repository the workspaces derive from")
	runCmd.Flags().String("task", "", "task ID (generated from the directive when empty)")
	runCmd.Flags().Int("retries", 0, "override the attempt budget")
	runCmd.Flags().Int("timeout", 0, "override the per-attempt timeout in seconds")
	runCmd.Flags().String("verify", "", "override the verification command")
	runCmd.Flags().String("agent", "", "override the agent command template")
	runCmd.Flags().String("merge-strategy", "", "override the merge strategy (squash, merge, rebase)")
}
