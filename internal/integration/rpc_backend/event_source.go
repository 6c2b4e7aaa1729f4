package rpc_backend

import (
	"context"
	"fmt"
	"time"

	"eventstream/internal/filter"
	"eventstream/internal/ledger"
	"eventstream/internal/models"

	protocol "github.com/stellar/go/protocols/rpc"
	"github.com/stellar/go/xdr"
)

// EventSource serves live events from the getHealth and getEvents methods
type EventSource struct {
	client *Client
}

// NewEventSource creates a new EventSource instance
func NewEventSource(client *Client) *EventSource {
	return &EventSource{client: client}
}

// GetHealth reports the retention window of the endpoint
func (s *EventSource) GetHealth(ctx context.Context) (ledger.Health, error) {
	resp, err := s.client.GetHealth(ctx)
	if err != nil {
		return ledger.Health{}, err
	}

	return ledger.Health{
		Status:          resp.Status,
		OldestLedger:    resp.OldestLedger,
		LatestLedger:    resp.LatestLedger,
		RetentionWindow: resp.LedgerRetentionWindow,
	}, nil
}

// GetEvents fetches one page of events. A cursor query carries no ledger
// range, so its page may run past query.EndLedger.
func (s *EventSource) GetEvents(ctx context.Context, query ledger.EventQuery) (ledger.EventPage, error) {
	req := protocol.GetEventsRequest{
		Filters:    encodeFilters(query.Filters),
		Pagination: &protocol.PaginationOptions{Limit: query.Limit},
		Format:     protocol.FormatBase64,
	}
	if query.Cursor != "" {
		cursor, err := protocol.ParseCursor(query.Cursor)
		if err != nil {
			return ledger.EventPage{}, err
		}
		req.Pagination.Cursor = &cursor
	} else {
		req.StartLedger = query.StartLedger
		req.EndLedger = query.EndLedger
	}

	resp, err := s.client.GetEvents(ctx, req)
	if err != nil {
		return ledger.EventPage{}, err
	}

	page := ledger.EventPage{
		Events:       make([]models.Event, 0, len(resp.Events)),
		Cursor:       resp.Cursor,
		LatestLedger: resp.LatestLedger,
	}
	for _, info := range resp.Events {
		ev, err := decodeEvent(info)
		if err != nil {
			return ledger.EventPage{}, err
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}

func encodeFilters(filters []*filter.EventFilter) []protocol.EventFilter {
	params := make([]protocol.EventFilter, 0, len(filters))
	for _, f := range filters {
		p := protocol.EventFilter{ContractIDs: f.ContractIDs()}
		if t, ok := f.Type(); ok {
			p.EventType = protocol.EventTypeSet{string(t): nil}
		}

		for _, tf := range f.Topics() {
			segments := tf.Segments()
			topic := make(protocol.TopicFilter, len(segments))
			for i, seg := range segments {
				switch s := seg.(type) {
				case filter.ValueSegment:
					val := s.Value
					topic[i] = protocol.SegmentFilter{ScVal: &val}
				case filter.AnySegment:
					wildcard := protocol.WildCardExactOne
					topic[i] = protocol.SegmentFilter{Wildcard: &wildcard}
				case filter.RestSegment:
					wildcard := protocol.WildCardZeroOrMore
					topic[i] = protocol.SegmentFilter{Wildcard: &wildcard}
				}
			}
			p.Topics = append(p.Topics, topic)
		}
		params = append(params, p)
	}
	return params
}

func decodeEvent(info protocol.EventInfo) (models.Event, error) {
	eventType, err := models.ParseEventType(info.EventType)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s: %w", info.ID, err)
	}
	if info.Ledger <= 0 {
		return models.Event{}, fmt.Errorf("event %s: invalid ledger %d", info.ID, info.Ledger)
	}

	closedAt, err := time.Parse(time.RFC3339, info.LedgerClosedAt)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s: invalid close time: %w", info.ID, err)
	}

	topics := make([]xdr.ScVal, len(info.TopicXDR))
	for i, raw := range info.TopicXDR {
		if err := xdr.SafeUnmarshalBase64(raw, &topics[i]); err != nil {
			return models.Event{}, fmt.Errorf("event %s: invalid topic %d: %w", info.ID, i, err)
		}
	}

	var value xdr.ScVal
	if info.ValueXDR != "" {
		if err := xdr.SafeUnmarshalBase64(info.ValueXDR, &value); err != nil {
			return models.Event{}, fmt.Errorf("event %s: invalid value: %w", info.ID, err)
		}
	}

	ev := models.Event{
		ID:                       info.ID,
		Type:                     eventType,
		Ledger:                   uint32(info.Ledger),
		LedgerClosedAt:           closedAt.UTC(),
		ContractID:               info.ContractID,
		TxHash:                   info.TransactionHash,
		InSuccessfulContractCall: info.InSuccessfulContractCall,
		Topics:                   topics,
		Value:                    value,
	}
	if err := ev.Validate(); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}
