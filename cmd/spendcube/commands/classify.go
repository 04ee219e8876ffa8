package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/config"
	"github.com/YvodeRooij/spendcube/internal/pipeline"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/YvodeRooij/spendcube/internal/progress"
	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runRecordsPath string
	runThreadID    string
	runSessionID   string
	runPublish     bool
	runRedisURL    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a batch of spend records",
	Long: `Run a batch of spend records through extraction, classification, QA,
review and analysis. Every stage is checkpointed under the thread ID.

With --publish, progress events are published to Redis for
'spendcube watch --session <id>' instead of being printed locally.

Examples:
  spendcube classify --records batch.json
  spendcube classify --records batch.yml --thread q3-2026 --publish`,
	RunE: runClassify,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a run from its latest checkpoint",
	Long: `Continue a thread from the stage after its latest checkpoint.
The checkpoint backend must be durable for a thread to outlive its process.

Examples:
  SPENDCUBE_ENV=production CHECKPOINT_DATABASE_URL=redis://localhost:6379 \
    spendcube resume --thread q3-2026`,
	RunE: runResume,
}

func init() {
	classifyCmd.Flags().StringVarP(&runRecordsPath, "records", "r", "", "Records file (.json, .yml or .yaml)")
	classifyCmd.MarkFlagRequired("records")

	for _, c := range []*cobra.Command{classifyCmd, resumeCmd} {
		c.Flags().StringVarP(&runThreadID, "thread", "t", "", "Checkpoint thread ID (generated when omitted)")
		c.Flags().StringVarP(&runSessionID, "session", "s", "", "Progress session ID (defaults to the thread ID)")
		c.Flags().BoolVar(&runPublish, "publish", false, "Publish progress events to Redis")
		c.Flags().StringVar(&runRedisURL, "redis", "", "Redis URL for --publish (overrides config and REDIS_URL)")
		rootCmd.AddCommand(c)
	}
	resumeCmd.MarkFlagRequired("thread")
}

func runClassify(cmd *cobra.Command, args []string) error {
	records, err := config.LoadRecords(runRecordsPath)
	if err != nil {
		return printer.Error("failed to load records", err.Error(), []string{"Records files hold a JSON or YAML list of {id, vendor, description, amount}"})
	}

	threadID := runThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	return execute(cmd.Context(), threadID, func(ctx context.Context, d *pipeline.Driver, sessionID string) (*pipeline.State, error) {
		return d.Run(ctx, pipeline.RunRequest{ThreadID: threadID, SessionID: sessionID, Records: records})
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	threadID := runThreadID
	return execute(cmd.Context(), threadID, func(ctx context.Context, d *pipeline.Driver, sessionID string) (*pipeline.State, error) {
		return d.Resume(ctx, threadID, sessionID)
	})
}

// execute wires a driver, attaches progress reporting, and runs fn
func execute(parent context.Context, threadID string, fn func(context.Context, *pipeline.Driver, string) (*pipeline.State, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg, reg)
	if err != nil {
		return err
	}

	factory := newFactory()
	defer factory.Shutdown()

	sessionID := runSessionID
	if sessionID == "" {
		sessionID = threadID
	}

	bridge := progress.NewBridge()
	detach, err := attachProgress(bridge, sessionID, cfg)
	if err != nil {
		return err
	}
	defer detach()

	driver := pipeline.NewDriver(
		skills.NewDetector(reg),
		bridge,
		factory,
		classifier,
		pipeline.WithReviewThreshold(*cfg.Classifier.ReviewThreshold),
	)

	state, err := fn(ctx, driver, sessionID)
	if err != nil {
		if checkpoint.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("no checkpoints for thread '%s'", threadID),
				"The checkpoint backend has nothing stored under this thread.",
				[]string{
					"Check the thread ID:\n  spendcube checkpoint list --thread <id>",
					fmt.Sprintf("Use a durable backend:\n  export %s=production %s=redis://localhost:6379", checkpoint.EnvExecutionMode, checkpoint.EnvConnectionString),
				},
			)
		}
		return printer.ErrorWithContext(
			"pipeline run failed",
			err.Error(),
			map[string]string{"Thread": threadID, "Session": sessionID},
			[]string{fmt.Sprintf("Resume from the last checkpoint:\n  spendcube resume --thread %s", threadID)},
		)
	}

	printSummary(threadID, state)
	return nil
}

// attachProgress subscribes the session's listener; the returned func detaches it
func attachProgress(bridge *progress.Bridge, sessionID string, cfg *config.SpendcubeConfig) (func(), error) {
	if !runPublish {
		bridge.Subscribe(sessionID, printProgress)
		return func() { bridge.Unsubscribe(sessionID) }, nil
	}

	rdb, err := newRedisClient(redisURL(runRedisURL, cfg))
	if err != nil {
		return nil, err
	}
	pub, err := progress.NewPublisher(rdb, sessionID)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	bridge.Subscribe(sessionID, progress.Forward(progress.NewAdapter(), pub.Send))
	printer.Info("Publishing progress to session '%s'\n", sessionID)
	return func() {
		bridge.Unsubscribe(sessionID)
		rdb.Close()
	}, nil
}

func printProgress(event progress.Event) {
	switch e := event.(type) {
	case progress.StageChanged:
		printer.Step("%s\n", e.Stage)
	case progress.ClassificationProgress:
		printer.Printf("  [%d/%d %3d%%] %s → %s %s (%s)\n",
			e.Completed, e.Total, progress.Percent(e.Completed, e.Total),
			e.Record.ID, e.Judgment.Code, e.Judgment.Title, e.Status)
	case progress.PipelineFailed:
		printer.Warning("stage %s failed: %s\n", e.Stage, e.Message)
	}
}

func printSummary(threadID string, state *pipeline.State) {
	printer.Println()
	printer.Classifications(state.Classifications)

	if len(state.Totals) > 0 {
		printer.Println()
		var rows [][]string
		for _, t := range state.Totals {
			rows = append(rows, []string{t.Code, t.Title, fmt.Sprintf("%d", t.Count), fmt.Sprintf("%.2f", t.Amount)})
		}
		printer.Table([]string{"CODE", "CATEGORY", "RECORDS", "AMOUNT"}, rows)
	}

	if len(state.ReviewQueue) > 0 {
		printer.Println()
		printer.Warning("%d records need review: %v\n", len(state.ReviewQueue), state.ReviewQueue)
	}

	printer.Println()
	printer.Success("Thread %s complete\n", threadID)
}
