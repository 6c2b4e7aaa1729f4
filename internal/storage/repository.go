package storage

import (
	"context"

	"eventstream/internal/models"
)

// Repository defines the interface for all storage operations
type Repository interface {
	// Schema
	EnsureSchema(ctx context.Context) error

	// Events
	SaveEvent(ctx context.Context, record *models.EventRecord) (bool, error)
	ListEvents(ctx context.Context, contractID string, limit, offset int) ([]models.EventRecord, error)

	// Progress
	GetLastProcessedLedger(ctx context.Context) (uint32, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
