package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/logger"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"serve"},
	Short:   "Start the evaluation loop and HTTP server",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	boot := logger.Must(debug)
	cfg, err := loadConfig(cfgFile, boot)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	rt, err := build(cfg, log, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rt.serve(ctx)
}

// serve runs the loop and the HTTP server until ctx is cancelled, then
// drains both.
func (rt *runtime) serve(ctx context.Context) error {
	log := rt.logger
	log.Info("starting PULSE",
		zap.Strings("instruments", rt.app.Instruments()),
		zap.Duration("interval", rt.cfg.Interval),
	)

	serverErr := make(chan error, 1)
	if rt.server != nil {
		go func() {
			if err := rt.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- rt.app.Start(loopCtx)
	}()

	var runErr error
	loopStopped := false
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
		runErr = err
	case err := <-loopDone:
		loopStopped = true
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	log.Info("shutting down PULSE")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()

	if rt.server != nil {
		if err := rt.server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}

	if !loopStopped {
		select {
		case <-loopDone:
		case <-shutdownCtx.Done():
			log.Warn("evaluation loop did not stop in time")
		}
	}
	return runErr
}
