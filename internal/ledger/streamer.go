package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventstream/internal/extraction"
	"eventstream/internal/filter"
	"eventstream/internal/metrics"
	"eventstream/internal/models"
)

// Mode is the streamer's current state
type Mode int

const (
	ModeIdle Mode = iota
	ModeLive
	ModeArchive
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeLive:
		return "live"
	case ModeArchive:
		return "archive"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Defaults applied by NewStreamer to zero Config fields
const (
	DefaultPagingInterval     = 100 * time.Millisecond
	DefaultLedgerWaitInterval = 5 * time.Second
	DefaultArchivalInterval   = 100 * time.Millisecond
	DefaultPageLimit          = 100
	DefaultSeenCapacity       = 25
	DefaultName               = "default"
)

// Config configures a Streamer
type Config struct {
	Name string // labels the streamer's state metrics and logs

	LiveSource    LiveSource
	ArchiveSource ArchiveSource // optional, required by archive mode
	Filters       []*filter.EventFilter

	PagingInterval     time.Duration
	LedgerWaitInterval time.Duration
	ArchivalInterval   time.Duration
	PageLimit          uint
	SeenCapacity       int

	Logger *slog.Logger
}

// StartOptions bound a live or auto session
type StartOptions struct {
	StartLedger uint32 // 0 starts at the source's latest ledger
	StopLedger  uint32 // 0 streams without end

	// SkipWaitWhileCatchingUp advances without the paging wait while the
	// source tip is ahead of the cursor
	SkipWaitWhileCatchingUp bool
}

// Streamer delivers filtered events from a live source, an archive, or both.
// One session runs at a time per Streamer; independent Streamers share nothing.
type Streamer struct {
	mu      sync.Mutex
	live    LiveSource
	archive ArchiveSource
	filters []*filter.EventFilter
	sess    *session

	pagingInterval     time.Duration
	ledgerWaitInterval time.Duration
	archivalInterval   time.Duration
	pageLimit          uint
	seenCapacity       int

	name      string
	extractor *extraction.EventExtractor
	logger    *slog.Logger
}

// NewStreamer creates a new Streamer instance
func NewStreamer(cfg Config) (*Streamer, error) {
	if cfg.LiveSource == nil {
		return nil, ErrNoLiveSource
	}
	if err := filter.ValidateSet(cfg.Filters); err != nil {
		return nil, err
	}

	if cfg.PagingInterval == 0 {
		cfg.PagingInterval = DefaultPagingInterval
	}
	if cfg.LedgerWaitInterval == 0 {
		cfg.LedgerWaitInterval = DefaultLedgerWaitInterval
	}
	if cfg.ArchivalInterval == 0 {
		cfg.ArchivalInterval = DefaultArchivalInterval
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.SeenCapacity <= 0 {
		cfg.SeenCapacity = DefaultSeenCapacity
	}
	if cfg.PagingInterval < 0 || cfg.LedgerWaitInterval < 0 || cfg.ArchivalInterval < 0 {
		return nil, fmt.Errorf("%w: intervals must not be negative", ErrInvalidIntervals)
	}
	if cfg.PagingInterval > cfg.LedgerWaitInterval {
		return nil, fmt.Errorf("%w: paging %s, ledger wait %s",
			ErrInvalidIntervals, cfg.PagingInterval, cfg.LedgerWaitInterval)
	}

	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("streamer", cfg.Name)

	return &Streamer{
		live:               cfg.LiveSource,
		archive:            cfg.ArchiveSource,
		filters:            append([]*filter.EventFilter(nil), cfg.Filters...),
		pagingInterval:     cfg.PagingInterval,
		ledgerWaitInterval: cfg.LedgerWaitInterval,
		archivalInterval:   cfg.ArchivalInterval,
		pageLimit:          cfg.PageLimit,
		seenCapacity:       cfg.SeenCapacity,
		name:               cfg.Name,
		extractor:          extraction.NewEventExtractor(logger),
		logger:             logger,
	}, nil
}

// State returns the mode of the running session, or ModeIdle
func (s *Streamer) State() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ModeIdle
	}
	return s.sess.mode
}

// Stop asks the running session to exit at its next checkpoint. It does not
// interrupt an in-flight source call; wait for the start call to return.
func (s *Streamer) Stop() {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess != nil {
		s.logger.Info("Stopping streamer", "mode", sess.mode.String())
		sess.stop()
	}
}

// LiveSource returns the configured live source
func (s *Streamer) LiveSource() LiveSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// SetLiveSource replaces the live source. It fails while a session runs.
func (s *Streamer) SetLiveSource(src LiveSource) error {
	if src == nil {
		return ErrNoLiveSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return ErrAlreadyRunning
	}
	s.live = src
	return nil
}

// ArchiveSource returns the configured archive source, which may be nil
func (s *Streamer) ArchiveSource() ArchiveSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archive
}

// SetArchiveSource replaces the archive source. It fails while a session runs.
func (s *Streamer) SetArchiveSource(src ArchiveSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return ErrAlreadyRunning
	}
	s.archive = src
	return nil
}

// Filters returns the active filter set
func (s *Streamer) Filters() []*filter.EventFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*filter.EventFilter(nil), s.filters...)
}

// SetFilters replaces the filter set wholesale. A running session picks the
// new set up at its next ledger.
func (s *Streamer) SetFilters(filters []*filter.EventFilter) error {
	if err := filter.ValidateSet(filters); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append([]*filter.EventFilter(nil), filters...)
	return nil
}

// ClearFilters removes every filter so all events are delivered
func (s *Streamer) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = nil
}

func (s *Streamer) activeFilters() []*filter.EventFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// begin claims the streamer for a new session
func (s *Streamer) begin(mode Mode) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return nil, ErrAlreadyRunning
	}
	sess, err := newSession(mode, s.live, s.archive, s.seenCapacity)
	if err != nil {
		return nil, err
	}
	s.sess = sess
	metrics.StreamerMode.WithLabelValues(s.name).Set(float64(mode))
	return sess, nil
}

// end returns the streamer to idle
func (s *Streamer) end(sess *session, err error) {
	s.mu.Lock()
	if s.sess == sess {
		s.sess = nil
	}
	s.mu.Unlock()
	metrics.StreamerMode.WithLabelValues(s.name).Set(float64(ModeIdle))

	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("streamer").Inc()
		s.logger.Error("Streamer session failed", "mode", sess.mode.String(), "ledger", sess.cursor, "error", err)
		return
	}
	s.logger.Info("Streamer session finished", "mode", sess.mode.String(), "ledger", sess.cursor)
}

// deliver forwards ev to onEvent unless it was delivered recently
func (s *Streamer) deliver(ctx context.Context, sess *session, ev models.Event, onEvent models.EventHandler) error {
	if !sess.remember(ev.ID) {
		metrics.DuplicatesSuppressed.Inc()
		s.logger.Debug("Duplicate event suppressed", "id", ev.ID)
		return nil
	}
	if err := onEvent(ctx, ev); err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}
	metrics.EventsDelivered.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

func (s *Streamer) logLedger(source string, sequence uint32, started time.Time, events int) {
	elapsed := time.Since(started)
	metrics.LedgersProcessed.WithLabelValues(source).Inc()
	metrics.LedgerProcessingDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	metrics.CurrentLedger.WithLabelValues(s.name).Set(float64(sequence))

	// INFO every 10 ledgers, DEBUG otherwise
	log := s.logger.Debug
	if sequence%10 == 0 {
		log = s.logger.Info
	}
	log("Ledger processed",
		"source", source,
		"sequence", sequence,
		"events", events,
		"total_ms", elapsed.Milliseconds(),
	)
}
