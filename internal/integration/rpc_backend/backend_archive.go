package rpc_backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stellar/go/ingest/ledgerbackend"
	"github.com/stellar/go/xdr"
)

// BackendFactory builds a fresh, unprepared ledger backend
type BackendFactory interface {
	BuildBackend() (ledgerbackend.LedgerBackend, error)
}

// BackendArchive serves historical close records from a ledgerbackend.
// The backend streams forward from a prepared start, so a request that does
// not follow the previous one rebuilds and re-prepares it.
type BackendArchive struct {
	mu      sync.Mutex
	factory BackendFactory
	backend ledgerbackend.LedgerBackend
	next    uint32 // sequence the prepared range serves next
}

// NewBackendArchive creates a new BackendArchive instance
func NewBackendArchive(factory BackendFactory) *BackendArchive {
	return &BackendArchive{factory: factory}
}

// GetLedger fetches the close record of sequence
func (a *BackendArchive) GetLedger(ctx context.Context, sequence uint32) (xdr.LedgerCloseMeta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.backend == nil || sequence != a.next {
		if err := a.prepare(ctx, sequence); err != nil {
			return xdr.LedgerCloseMeta{}, err
		}
	}

	lcm, err := a.backend.GetLedger(ctx, sequence)
	if err != nil {
		return xdr.LedgerCloseMeta{}, fmt.Errorf("failed to get ledger %d from backend: %w", sequence, err)
	}
	a.next = sequence + 1
	return lcm, nil
}

func (a *BackendArchive) prepare(ctx context.Context, start uint32) error {
	if err := a.closeBackend(); err != nil {
		slog.Warn("Failed to close previous ledger backend", "error", err)
	}

	backend, err := a.factory.BuildBackend()
	if err != nil {
		return fmt.Errorf("failed to build ledger backend: %w", err)
	}

	// Unbounded range for continuous streaming
	if err := backend.PrepareRange(ctx, ledgerbackend.UnboundedRange(start)); err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to prepare range from %d: %w", start, err)
	}

	slog.Debug("Ledger backend prepared", "start_ledger", start)
	a.backend = backend
	a.next = start
	return nil
}

func (a *BackendArchive) closeBackend() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

// Close gracefully shuts down the backend
func (a *BackendArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeBackend()
}
