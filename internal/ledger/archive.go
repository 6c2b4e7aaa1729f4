package ledger

import (
	"context"
	"fmt"
	"time"

	"eventstream/internal/models"
)

// StartArchive delivers the events of ledgers [from, to] from the archive
// source, one ledger at a time, and returns when the range is done or Stop
// is called. It never switches to the live source.
func (s *Streamer) StartArchive(ctx context.Context, onEvent models.EventHandler, from, to uint32) (err error) {
	sess, err := s.begin(ModeArchive)
	if err != nil {
		return err
	}
	defer func() { s.end(sess, err) }()

	if sess.archive == nil {
		return ErrNoArchiveSource
	}
	if from == 0 || from > to {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, from, to)
	}

	s.logger.Info("Starting archive streamer", "start_ledger", from, "stop_ledger", to)
	sess.cursor = from
	_, err = s.runArchive(ctx, sess, onEvent, to)
	return err
}

// runArchive processes ledgers from sess.cursor through end. It reports
// whether the loop ended because of Stop.
func (s *Streamer) runArchive(ctx context.Context, sess *session, onEvent models.EventHandler, end uint32) (bool, error) {
	for sess.cursor <= end {
		exit, err := sess.checkpoint(ctx)
		if err != nil || exit {
			return exit, err
		}

		sequence := sess.cursor
		startTime := time.Now()

		lcm, err := sess.archive.GetLedger(ctx, sequence)
		if err != nil {
			return false, fmt.Errorf("failed to get ledger %d: %w", sequence, err)
		}

		delivered := 0
		err = s.extractor.Extract(ctx, lcm, s.activeFilters(), func(ctx context.Context, ev models.Event) error {
			if err := s.deliver(ctx, sess, ev, onEvent); err != nil {
				return err
			}
			delivered++
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("failed to process ledger %d: %w", sequence, err)
		}

		s.logLedger("archive", sequence, startTime, delivered)
		sess.cursor++

		if sess.cursor <= end {
			if err := sess.wait(ctx, s.archivalInterval); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}
