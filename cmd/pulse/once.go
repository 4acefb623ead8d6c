package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/pulse/internal/app"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/logger"
)

var dryRun bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single evaluation pass and print the group summaries",
	RunE:  runOnceCmd,
}

func init() {
	onceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate without sending notifications")
	rootCmd.AddCommand(onceCmd)
}

// onceOutput is the JSON printed by the once command.
type onceOutput struct {
	StartedAt     time.Time           `json:"started_at"`
	DurationMS    int64               `json:"duration_ms"`
	FailedFetches int                 `json:"failed_fetches"`
	Summaries     []core.GroupSummary `json:"summaries"`
	Events        []core.SignalEvent  `json:"events"`
	Routed        int                 `json:"routed"`
}

func runOnceCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile, logger.Must(debug))
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Notifiers = nil
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	rt, err := build(cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rt.once(ctx, cmd.OutOrStdout())
}

func (rt *runtime) once(ctx context.Context, out io.Writer) error {
	res, err := rt.app.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	return writeResult(out, res)
}

func writeResult(out io.Writer, res *app.Result) error {
	o := onceOutput{
		StartedAt:     res.StartedAt,
		DurationMS:    res.Duration.Milliseconds(),
		FailedFetches: res.FailedFetches,
		Summaries:     res.Summaries,
		Events:        res.Events,
		Routed:        len(res.Routed),
	}
	if o.Summaries == nil {
		o.Summaries = []core.GroupSummary{}
	}
	if o.Events == nil {
		o.Events = []core.SignalEvent{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
