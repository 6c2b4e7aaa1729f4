package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventstream/internal/ledgertest"
	"eventstream/internal/models"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

type sourceCall struct {
	method string
	at     time.Time
}

// fakeLive serves scripted per-ledger events. Cursors have the form "ledger:offset".
type fakeLive struct {
	mu        sync.Mutex
	health    Health
	healths   []Health // served by GetHealth before health
	tips      []uint32 // page LatestLedger overrides, one per GetEvents
	healthErr error
	events    map[uint32][]models.Event
	queries   []EventQuery
	calls     []sourceCall
}

func newFakeLive(oldest, latest uint32) *fakeLive {
	return &fakeLive{
		health: Health{Status: HealthStatusHealthy, OldestLedger: oldest, LatestLedger: latest},
		events: make(map[uint32][]models.Event),
	}
}

func (f *fakeLive) GetHealth(context.Context) (Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceCall{"getHealth", time.Now()})
	if len(f.healths) > 0 {
		h := f.healths[0]
		f.healths = f.healths[1:]
		return h, f.healthErr
	}
	return f.health, f.healthErr
}

func (f *fakeLive) GetEvents(_ context.Context, q EventQuery) (EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceCall{"getEvents", time.Now()})
	f.queries = append(f.queries, q)

	sequence, offset := q.StartLedger, 0
	if q.Cursor != "" {
		if _, err := fmt.Sscanf(q.Cursor, "%d:%d", &sequence, &offset); err != nil {
			return EventPage{}, err
		}
	}

	all := f.events[sequence]
	end := offset + int(q.Limit)
	if end > len(all) {
		end = len(all)
	}
	tip := f.health.LatestLedger
	if len(f.tips) > 0 {
		tip = f.tips[0]
		f.tips = f.tips[1:]
	}
	return EventPage{
		Events:       append([]models.Event(nil), all[offset:end]...),
		Cursor:       fmt.Sprintf("%d:%d", sequence, end),
		LatestLedger: tip,
	}, nil
}

func (f *fakeLive) setLatest(latest uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health.LatestLedger = latest
}

func (f *fakeLive) callLog() []sourceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sourceCall(nil), f.calls...)
}

func (f *fakeLive) queryLog() []EventQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EventQuery(nil), f.queries...)
}

// fakeArchive serves fixture ledgers, or an empty ledger when none is scripted
type fakeArchive struct {
	mu      sync.Mutex
	ledgers map[uint32]xdr.LedgerCloseMeta
	calls   []uint32
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{ledgers: make(map[uint32]xdr.LedgerCloseMeta)}
}

func (f *fakeArchive) GetLedger(_ context.Context, sequence uint32) (xdr.LedgerCloseMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sequence)
	if lcm, ok := f.ledgers[sequence]; ok {
		return lcm, nil
	}
	return ledgertest.LedgerV1(sequence), nil
}

func (f *fakeArchive) callLog() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.calls...)
}

// liveEvent builds an event as a live source would decode it
func liveEvent(t *testing.T, sequence, tx, index uint32, contract byte, topics ...xdr.ScVal) models.Event {
	t.Helper()
	id, err := models.NewEventID(models.EventPosition{Ledger: sequence, Tx: tx, Op: 1, Event: index})
	require.NoError(t, err)
	return models.Event{
		ID:                       id,
		Type:                     models.EventTypeContract,
		Ledger:                   sequence,
		LedgerClosedAt:           time.Unix(ledgertest.CloseTime, 0).UTC(),
		ContractID:               ledgertest.ContractAddress(contract),
		TxHash:                   fmt.Sprintf("%064x", tx),
		InSuccessfulContractCall: true,
		Topics:                   topics,
		Value:                    ledgertest.U32(index),
	}
}

// eventLedger builds an archive ledger with one contract event per topic list
func eventLedger(sequence uint32, contract byte, topics ...[]xdr.ScVal) xdr.LedgerCloseMeta {
	events := make([]xdr.ContractEvent, len(topics))
	for i, t := range topics {
		events[i] = ledgertest.ContractEvent(contract, ledgertest.U32(uint32(i)), t...)
	}
	return ledgertest.LedgerV1(sequence, ledgertest.Tx{Hash: byte(sequence), Meta: ledgertest.MetaV3(events...)})
}

// recorder collects delivered events
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) handle(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.events))
	for i, ev := range r.events {
		ids[i] = ev.ID
	}
	return ids
}

func fastConfig(live LiveSource, archive ArchiveSource) Config {
	return Config{
		LiveSource:         live,
		ArchiveSource:      archive,
		PagingInterval:     time.Millisecond,
		LedgerWaitInterval: 5 * time.Millisecond,
		ArchivalInterval:   time.Millisecond,
	}
}

func newTestStreamer(t *testing.T, cfg Config) *Streamer {
	t.Helper()
	s, err := NewStreamer(cfg)
	require.NoError(t, err)
	return s
}
