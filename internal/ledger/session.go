package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// session is the state of one start call. It is owned by the loop goroutine;
// only stop is touched from other goroutines.
type session struct {
	mode    Mode
	live    LiveSource
	archive ArchiveSource

	cursor     uint32 // next ledger to process
	pageCursor string
	tip        uint32 // latest ledger last reported by the live source

	// ids of recently delivered events, evicted in insertion order
	seen *lru.Cache

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSession(mode Mode, live LiveSource, archive ArchiveSource, capacity int) (*session, error) {
	seen, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen buffer: %w", err)
	}
	return &session{
		mode:    mode,
		live:    live,
		archive: archive,
		seen:    seen,
		stopCh:  make(chan struct{}),
	}, nil
}

func (s *session) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *session) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// checkpoint returns ctx's error if it is done, and whether the loop must exit
func (s *session) checkpoint(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	default:
	}
	return s.stopped(), nil
}

// wait sleeps for d unless stop or ctx ends it first
func (s *session) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remember records id and reports whether it was new.
// Contains does not refresh recency, so eviction stays FIFO.
func (s *session) remember(id string) bool {
	if s.seen.Contains(id) {
		return false
	}
	s.seen.Add(id, struct{}{})
	return true
}
