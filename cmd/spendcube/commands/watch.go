package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/YvodeRooij/spendcube/internal/progress"
	"github.com/YvodeRooij/spendcube/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchSessionID     string
	watchOutputFormat  string
	watchRedisURL      string
	watchExitOnFailure bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream progress events of a running classification",
	Long: `Stream the progress events a 'spendcube classify --publish' run
publishes to Redis.

Output Formats:
  default - Human-readable output with emojis
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  spendcube watch --session q3-2026
  spendcube watch --session q3-2026 --output=jsonl > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSessionID, "session", "s", "", "Progress session ID")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	watchCmd.Flags().StringVar(&watchRedisURL, "redis", "", "Redis URL (overrides config and REDIS_URL)")
	watchCmd.Flags().BoolVar(&watchExitOnFailure, "exit-on-failure", false, "Exit non-zero when the run reports a failure")
	watchCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	url := redisURL(watchRedisURL, cfg)
	rdb, err := newRedisClient(url)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", url),
			map[string]string{"Error": err.Error()},
			nil,
		)
	}

	sub, err := progress.Subscribe(ctx, rdb, watchSessionID)
	if err != nil {
		return err
	}
	defer sub.Close()

	return watch.Stream(ctx, sub, printer.Out, format, watchExitOnFailure)
}
