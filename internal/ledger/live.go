package ledger

import (
	"context"
	"fmt"
	"time"

	"eventstream/internal/filter"
	"eventstream/internal/metrics"
	"eventstream/internal/models"
)

// liveWindowMargin keeps live starts clear of a stale oldest ledger report
const liveWindowMargin = 2

// StartLive streams events from the live source, ledger by ledger, until
// Stop is called, ctx ends or an event past opts.StopLedger is observed.
// The start ledger must lie inside [oldest+2, latest] of the source window.
func (s *Streamer) StartLive(ctx context.Context, onEvent models.EventHandler, opts StartOptions) (err error) {
	sess, err := s.begin(ModeLive)
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
	if start < health.OldestLedger+liveWindowMargin || start > health.LatestLedger {
		return fmt.Errorf("%w: ledger %d, window [%d, %d]",
			ErrLedgerOutOfRange, start, health.OldestLedger+liveWindowMargin, health.LatestLedger)
	}

	s.logger.Info("Starting live streamer",
		"start_ledger", start,
		"stop_ledger", opts.StopLedger,
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

		done, err := s.liveIteration(ctx, sess, onEvent, opts)
		if err != nil || done {
			return err
		}
	}
}

// validateBounds rejects a start after the stop ledger. A zero start is
// checked again once it resolves to the source's latest ledger.
func validateBounds(opts StartOptions) error {
	if opts.StopLedger != 0 && opts.StartLedger > opts.StopLedger {
		return fmt.Errorf("%w: start %d after stop %d", ErrInvalidRange, opts.StartLedger, opts.StopLedger)
	}
	return nil
}

// health queries the live source and fails unless it is healthy
func (s *Streamer) health(ctx context.Context, sess *session) (Health, error) {
	health, err := sess.live.GetHealth(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("failed to get live source health: %w", err)
	}
	if !health.Healthy() {
		return Health{}, fmt.Errorf("%w: status %q", ErrUnhealthySource, health.Status)
	}
	sess.tip = health.LatestLedger
	metrics.LatestLedger.WithLabelValues(s.name).Set(float64(health.LatestLedger))
	return health, nil
}

// liveIteration drains every page of the cursor ledger, then advances or
// waits by comparing the source tip with that ledger. It reports true when
// the session must end without error.
func (s *Streamer) liveIteration(ctx context.Context, sess *session, onEvent models.EventHandler, opts StartOptions) (bool, error) {
	sequence := sess.cursor

	if sequence > sess.tip {
		// Not closed at last report, refresh before asking for its events
		if _, err := s.health(ctx, sess); err != nil {
			return false, err
		}
		if sequence > sess.tip {
			return false, sess.wait(ctx, s.ledgerWaitInterval)
		}
	}

	startTime := time.Now()
	filters := s.activeFilters()
	delivered := 0

	sess.pageCursor = ""
	for {
		query := EventQuery{
			StartLedger: sequence,
			EndLedger:   sequence + 1,
			Cursor:      sess.pageCursor,
			Filters:     filters,
			Limit:       s.pageLimit,
		}
		if query.Cursor != "" {
			query.StartLedger = 0
		}

		page, err := sess.live.GetEvents(ctx, query)
		if err != nil {
			return false, fmt.Errorf("failed to get events for ledger %d: %w", sequence, err)
		}
		metrics.PagesFetched.Inc()
		sess.tip = page.LatestLedger
		metrics.LatestLedger.WithLabelValues(s.name).Set(float64(page.LatestLedger))

		// cursor pages are not bounded by EndLedger
		pastLedger := false
		for _, ev := range page.Events {
			if opts.StopLedger != 0 && ev.Ledger > opts.StopLedger {
				s.logger.Info("Stop ledger passed", "stop_ledger", opts.StopLedger, "event_ledger", ev.Ledger)
				return true, nil
			}
			if ev.Ledger >= query.EndLedger {
				pastLedger = true
				break
			}
			matched, err := filter.MatchAny(filters, ev)
			if err != nil {
				return false, err
			}
			if !matched {
				continue
			}
			if err := s.deliver(ctx, sess, ev, onEvent); err != nil {
				return false, err
			}
			delivered++
		}

		if pastLedger || page.Cursor == "" || uint(len(page.Events)) < s.pageLimit {
			break
		}
		sess.pageCursor = page.Cursor

		exit, err := sess.checkpoint(ctx)
		if err != nil || exit {
			return exit, err
		}
		if err := sess.wait(ctx, s.pagingInterval); err != nil {
			return false, err
		}
	}
	sess.pageCursor = ""

	switch {
	case sess.tip < sequence:
		// tip behind: the ledger may still gain events
		return false, sess.wait(ctx, s.ledgerWaitInterval)
	case sess.tip == sequence:
		s.logLedger("live", sequence, startTime, delivered)
		sess.cursor++
		return false, sess.wait(ctx, s.ledgerWaitInterval)
	default:
		s.logLedger("live", sequence, startTime, delivered)
		sess.cursor++
		if opts.SkipWaitWhileCatchingUp {
			return false, nil
		}
		return false, sess.wait(ctx, s.pagingInterval)
	}
}
