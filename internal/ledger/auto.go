package ledger

import (
	"context"
	"fmt"

	"eventstream/internal/models"
)

// Start streams from opts.StartLedger onwards, reading ledgers that have aged
// out of the live window from the archive source and the rest from the live
// source. The window is re-read on every iteration since it moves as ledgers
// age out.
func (s *Streamer) Start(ctx context.Context, onEvent models.EventHandler, opts StartOptions) (err error) {
	sess, err := s.begin(ModeAuto)
	if err != nil {
		return err
	}
	defer func() { s.end(sess, err) }()

	if err := validateBounds(opts); err != nil {
		return err
	}

	health, err := s.health(ctx, sess)
	if err != nil {
		return err
	}

	start := opts.StartLedger
	if start == 0 {
		start = health.LatestLedger
		if err := validateBounds(StartOptions{StartLedger: start, StopLedger: opts.StopLedger}); err != nil {
			return err
		}
	}
	if start > health.LatestLedger {
		return fmt.Errorf("%w: ledger %d is after latest %d", ErrLedgerOutOfRange, start, health.LatestLedger)
	}

	s.logger.Info("Starting streamer",
		"start_ledger", start,
		"stop_ledger", opts.StopLedger,
		"oldest_ledger", health.OldestLedger,
		"latest_ledger", health.LatestLedger,
	)
	sess.cursor = start

	for {
		exit, err := sess.checkpoint(ctx)
		if err != nil || exit {
			return err
		}
		if opts.StopLedger != 0 && sess.cursor > opts.StopLedger {
			return nil
		}

		health, err := s.health(ctx, sess)
		if err != nil {
			return err
		}

		boundary := health.OldestLedger + liveWindowMargin
		if sess.cursor >= boundary {
			done, err := s.liveIteration(ctx, sess, onEvent, opts)
			if err != nil || done {
				return err
			}
			continue
		}

		if sess.archive == nil {
			return fmt.Errorf("%w: ledger %d is older than the live window", ErrNoArchiveSource, sess.cursor)
		}

		// live serves from oldest+2, archive covers up to oldest+1
		end := boundary - 1
		if opts.StopLedger != 0 && opts.StopLedger < end {
			end = opts.StopLedger
		}
		s.logger.Info("Catching up from archive", "from", sess.cursor, "to", end)

		stopped, err := s.runArchive(ctx, sess, onEvent, end)
		if err != nil || stopped {
			return err
		}
	}
}
