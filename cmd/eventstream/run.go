package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"eventstream/internal/config"
	"eventstream/internal/ledger"
	"eventstream/internal/models"
)

// streamRunner drives one streamer session per retry attempt. A restarted
// session resumes at the last ledger that reached the sinks, so events of
// that ledger may be delivered twice.
type streamRunner struct {
	streamer *ledger.Streamer
	handler  models.EventHandler
	mode     string
	opts     ledger.StartOptions

	last atomic.Uint32 // highest ledger handed to the sinks
}

func newStreamRunner(streamer *ledger.Streamer, handler models.EventHandler, mode string, opts ledger.StartOptions) *streamRunner {
	return &streamRunner{
		streamer: streamer,
		handler:  handler,
		mode:     mode,
		opts:     opts,
	}
}

func (r *streamRunner) handle(ctx context.Context, ev models.Event) error {
	if err := r.handler(ctx, ev); err != nil {
		return err
	}
	if ev.Ledger > r.last.Load() {
		r.last.Store(ev.Ledger)
	}
	return nil
}

// options returns the bounds of the next session
func (r *streamRunner) options() ledger.StartOptions {
	opts := r.opts
	if last := r.last.Load(); last > opts.StartLedger {
		opts.StartLedger = last
	}
	return opts
}

// run is a retry.Operation
func (r *streamRunner) run(ctx context.Context, attempt int) error {
	opts := r.options()
	if attempt > 0 {
		slog.Info("Restarting stream session",
			"attempt", attempt+1,
			"mode", r.mode,
			"start_ledger", opts.StartLedger,
		)
	}

	switch r.mode {
	case config.ModeAuto:
		return r.streamer.Start(ctx, r.handle, opts)
	case config.ModeLive:
		return r.streamer.StartLive(ctx, r.handle, opts)
	case config.ModeArchive:
		return r.streamer.StartArchive(ctx, r.handle, opts.StartLedger, opts.StopLedger)
	default:
		return fmt.Errorf("unknown stream mode %q", r.mode)
	}
}

// resumeLedger picks the first ledger of a run from the configured start
// and the last ledger already stored
func resumeLedger(configured, stored uint32) uint32 {
	if stored > configured {
		return stored
	}
	return configured
}
