package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventstream/internal/metrics"
	"eventstream/internal/models"
	"eventstream/internal/sink"
)

// Orchestrator fans delivered events out to every registered sink
type Orchestrator struct {
	sinks []sink.Sink
}

// New creates a new Orchestrator with the given sinks
func New(sinks []sink.Sink) *Orchestrator {
	return &Orchestrator{
		sinks: sinks,
	}
}

// Handle runs an event through all registered sinks in order. It satisfies
// models.EventHandler; the first sink failure aborts delivery of the event.
func (o *Orchestrator) Handle(ctx context.Context, event models.Event) error {
	slog.Debug("Orchestrator: Handling event",
		"id", event.ID,
		"ledger", event.Ledger,
		"sinks_count", len(o.sinks),
	)

	record, err := sink.NewRecord(event)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("orchestrator").Inc()
		return err
	}

	for _, s := range o.sinks {
		startTime := time.Now()
		if err := s.Write(ctx, record); err != nil {
			slog.Error("Sink write failed",
				"sink", s.Name(),
				"id", event.ID,
				"error", err,
			)
			metrics.ErrorsTotal.WithLabelValues(s.Name()).Inc()
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
		metrics.SinkWriteDuration.WithLabelValues(s.Name()).Observe(time.Since(startTime).Seconds())
		metrics.EventsSaved.WithLabelValues(s.Name()).Inc()
	}

	return nil
}

// Sinks returns the list of registered sinks (for inspection/testing)
func (o *Orchestrator) Sinks() []sink.Sink {
	return o.sinks
}
