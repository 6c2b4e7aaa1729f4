package ledger

import (
	"context"

	"eventstream/internal/filter"
	"eventstream/internal/models"

	"github.com/stellar/go/xdr"
)

// HealthStatusHealthy is the status a usable live source reports
const HealthStatusHealthy = "healthy"

// Health is the live source's view of its retention window
type Health struct {
	Status          string
	OldestLedger    uint32
	LatestLedger    uint32
	RetentionWindow uint32
}

// Healthy reports whether the source can serve queries
func (h Health) Healthy() bool {
	return h.Status == HealthStatusHealthy
}

// EventQuery requests one page of events. When Cursor is set the source resumes
// after it and StartLedger is ignored.
type EventQuery struct {
	StartLedger uint32
	EndLedger   uint32 // exclusive
	Cursor      string
	Filters     []*filter.EventFilter
	Limit       uint
}

// EventPage is one page of events plus the source's tip at query time
type EventPage struct {
	Events       []models.Event
	Cursor       string
	LatestLedger uint32
}

// LiveSource serves recent events inside a bounded retention window
type LiveSource interface {
	GetHealth(ctx context.Context) (Health, error)
	GetEvents(ctx context.Context, query EventQuery) (EventPage, error)
}

// ArchiveSource serves raw close records for any historical ledger
type ArchiveSource interface {
	GetLedger(ctx context.Context, sequence uint32) (xdr.LedgerCloseMeta, error)
}
