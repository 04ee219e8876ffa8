package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/filter"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/YvodeRooij/spendcube/internal/timespec"
	"github.com/YvodeRooij/spendcube/internal/watch"
	"github.com/spf13/cobra"
)

var (
	cpThreadID string
	cpStage    string
	cpTimeout  time.Duration
	cpJSON     bool
	cpToURL    string
	cpSince    string
	cpUntil    string
	cpGlob     string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect the checkpoint backend",
	Long: `Inspect the checkpoint backend selected by the environment:

  SPENDCUBE_ENV            production or staging selects durable when a URL is set
  CHECKPOINT_BACKEND       explicit override: memory or durable
  CHECKPOINT_DATABASE_URL  Redis URL (falls back to REDIS_URL)
  CHECKPOINT_POOL_SIZE     max pool connections (default 10)`,
}

var checkpointHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report whether the checkpoint backend is usable",
	RunE:  runCheckpointHealth,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the checkpoints of a thread",
	RunE:  runCheckpointList,
}

var checkpointWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until a thread is checkpointed at a stage",
	Long: `Poll a thread until its latest checkpoint is at the given stage.

Examples:
  spendcube checkpoint wait --thread q3-2026 --stage analysis --timeout 5m`,
	RunE: runCheckpointWait,
}

var checkpointCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy a thread's checkpoints to another durable backend",
	Long: `Copy every checkpoint of a thread, in order, to a separate Redis backend.
The target store is private to this command and closed when it finishes.

Examples:
  spendcube checkpoint copy --thread q3-2026 --to redis://archive:6379/1`,
	RunE: runCheckpointCopy,
}

func init() {
	for _, c := range []*cobra.Command{checkpointListCmd, checkpointWaitCmd, checkpointCopyCmd} {
		c.Flags().StringVarP(&cpThreadID, "thread", "t", "", "Checkpoint thread ID")
		c.MarkFlagRequired("thread")
	}
	checkpointListCmd.Flags().StringVar(&cpSince, "since", "", "Only checkpoints created after this time (duration like 1h, a date, or RFC3339)")
	checkpointListCmd.Flags().StringVar(&cpUntil, "until", "", "Only checkpoints created before this time")
	checkpointListCmd.Flags().StringVar(&cpGlob, "stage", "", "Only stages matching this glob (e.g. 'class*')")
	checkpointHealthCmd.Flags().BoolVar(&cpJSON, "json", false, "Print the health report as JSON")
	checkpointWaitCmd.Flags().StringVar(&cpStage, "stage", "analysis", "Stage to wait for")
	checkpointWaitCmd.Flags().DurationVar(&cpTimeout, "timeout", 5*time.Minute, "Maximum time to wait")
	checkpointCopyCmd.Flags().StringVar(&cpToURL, "to", "", "Target Redis URL")
	checkpointCopyCmd.MarkFlagRequired("to")

	checkpointCmd.AddCommand(checkpointHealthCmd, checkpointListCmd, checkpointWaitCmd, checkpointCopyCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func runCheckpointHealth(cmd *cobra.Command, args []string) error {
	factory := newFactory()
	defer factory.Shutdown()

	report := factory.Health(cmd.Context())
	if cpJSON {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode health report: %w", err)
		}
		printer.Println(string(data))
	}

	if !report.Healthy {
		return printer.ErrorWithContext(
			"checkpoint backend unhealthy",
			report.Error,
			map[string]string{"Backend": string(report.Kind)},
			[]string{"Check CHECKPOINT_DATABASE_URL and that Redis is reachable"},
		)
	}

	if !cpJSON {
		printer.Success("Checkpoint backend healthy (%s)\n", report.Kind)
	}
	return nil
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	window, err := timespec.ParseRange(cpSince, cpUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time range", err.Error(), []string{"Use a duration like 1h30m, a date like 2026-10-17, or RFC3339"})
	}
	criteria := filter.Criteria{
		SinceTimestampMs: window.SinceMs,
		UntilTimestampMs: window.UntilMs,
		StageGlob:        cpGlob,
	}

	factory := newFactory()
	defer factory.Shutdown()

	cp, err := factory.Get(ctx)
	if err != nil {
		return checkpointInitError(err)
	}

	list, err := cp.List(ctx, cpThreadID)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	list = criteria.Apply(list)
	if len(list) == 0 {
		printer.Warning("No checkpoints for thread '%s' in the %s backend\n", cpThreadID, cp.Kind())
		return nil
	}

	var rows [][]string
	for _, c := range list {
		rows = append(rows, []string{
			strconv.FormatInt(c.Seq, 10),
			c.Stage,
			c.ID,
			time.UnixMilli(c.CreatedAtMs).UTC().Format(time.RFC3339),
		})
	}
	printer.Table([]string{"SEQ", "STAGE", "ID", "CREATED"}, rows)
	return nil
}

func runCheckpointWait(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	factory := newFactory()
	defer factory.Shutdown()

	cp, err := factory.Get(ctx)
	if err != nil {
		return checkpointInitError(err)
	}

	reached, err := watch.PollForStage(ctx, cp, cpThreadID, cpStage, cpTimeout)
	if err != nil {
		return printer.ErrorWithContext(
			"stage not reached",
			err.Error(),
			map[string]string{"Thread": cpThreadID, "Stage": cpStage},
			nil,
		)
	}

	printer.Success("Thread %s reached %s (checkpoint %s)\n", cpThreadID, reached.Stage, reached.ID)
	return nil
}

func runCheckpointCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	factory := newFactory()
	defer factory.Shutdown()

	source, err := factory.Get(ctx)
	if err != nil {
		return checkpointInitError(err)
	}

	target, err := factory.Create(ctx, checkpoint.BackendConfig{Kind: checkpoint.KindDurable, ConnectionString: cpToURL})
	if err != nil {
		return checkpointInitError(err)
	}
	defer target.Close()

	n, err := copyThread(ctx, source, target, cpThreadID)
	if err != nil {
		return fmt.Errorf("failed to copy thread %s: %w", cpThreadID, err)
	}

	printer.Success("Copied %d checkpoints of thread %s\n", n, cpThreadID)
	return nil
}

// copyThread replays a thread's checkpoints into target, keeping IDs and timestamps
func copyThread(ctx context.Context, source, target checkpoint.Checkpointer, threadID string) (int, error) {
	list, err := source.List(ctx, threadID)
	if err != nil {
		return 0, err
	}
	for _, c := range list {
		if err := target.Put(ctx, c); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}

func checkpointInitError(err error) error {
	return printer.Error(
		"checkpoint backend unavailable",
		err.Error(),
		[]string{
			"Check the backend:\n  spendcube checkpoint health",
			fmt.Sprintf("Use the in-memory backend:\n  export %s=memory", checkpoint.EnvBackend),
		},
	)
}
