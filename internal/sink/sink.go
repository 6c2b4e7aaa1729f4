package sink

import (
	"context"
	"fmt"

	"eventstream/internal/extraction"
	"eventstream/internal/models"

	"github.com/stellar/go/xdr"
)

// Sink accepts delivered events. A Write error aborts the streamer session,
// so a sink must only fail when the event was not stored.
type Sink interface {
	Write(ctx context.Context, record models.EventRecord) error
	Name() string
}

// NewRecord converts an event into its serialized form
func NewRecord(ev models.Event) (models.EventRecord, error) {
	rec := models.EventRecord{
		ID:                       ev.ID,
		Type:                     ev.Type,
		Ledger:                   ev.Ledger,
		LedgerClosedAt:           ev.LedgerClosedAt,
		ContractID:               ev.ContractID,
		TxHash:                   ev.TxHash,
		InSuccessfulContractCall: ev.InSuccessfulContractCall,
		Topics:                   make([]interface{}, len(ev.Topics)),
		TopicsXDR:                make([]string, len(ev.Topics)),
		Value:                    extraction.ScValToInterface(ev.Value),
	}

	for i, topic := range ev.Topics {
		encoded, err := xdr.MarshalBase64(topic)
		if err != nil {
			return models.EventRecord{}, fmt.Errorf("event %s: failed to encode topic %d: %w", ev.ID, i, err)
		}
		rec.TopicsXDR[i] = encoded
		rec.Topics[i] = extraction.ScValToInterface(topic)
	}

	value, err := xdr.MarshalBase64(ev.Value)
	if err != nil {
		return models.EventRecord{}, fmt.Errorf("event %s: failed to encode value: %w", ev.ID, err)
	}
	rec.ValueXDR = value

	return rec, nil
}
