package sink

import (
	"context"
	"fmt"

	"eventstream/internal/models"
	"eventstream/internal/storage"
)

// PostgresSink stores events through the storage repository. Inserts are
// idempotent, so replaying a ledger after a restart is safe.
type PostgresSink struct {
	repo storage.Repository
}

// NewPostgresSink creates a new PostgresSink instance
func NewPostgresSink(repo storage.Repository) *PostgresSink {
	return &PostgresSink{repo: repo}
}

// Write stores the record
func (s *PostgresSink) Write(ctx context.Context, record models.EventRecord) error {
	if _, err := s.repo.SaveEvent(ctx, &record); err != nil {
		return fmt.Errorf("failed to store event %s: %w", record.ID, err)
	}
	return nil
}

// Name returns the sink name
func (s *PostgresSink) Name() string {
	return "postgres"
}
