package models

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// EventType classifies who emitted an event
type EventType string

const (
	EventTypeContract   EventType = "contract"
	EventTypeSystem     EventType = "system"
	EventTypeDiagnostic EventType = "diagnostic"
)

// ParseEventType converts the wire name of an event type
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventTypeContract, EventTypeSystem, EventTypeDiagnostic:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// Event represents one event emitted by a transaction operation.
// Values are created once by an extractor or a live source decoder and never mutated.
type Event struct {
	// Identification
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// Ledger context
	Ledger         uint32    `json:"ledger"`
	LedgerClosedAt time.Time `json:"ledger_closed_at"`

	// Emitter, empty for system events
	ContractID string `json:"contract_id,omitempty"`

	// Transaction context
	TxHash                   string `json:"tx_hash"`
	InSuccessfulContractCall bool   `json:"in_successful_contract_call"`

	// Event body
	Topics []xdr.ScVal `json:"-"`
	Value  xdr.ScVal   `json:"-"`
}

// EventHandler receives delivered events. Returning an error aborts the session.
type EventHandler func(ctx context.Context, event Event) error

// Position returns the decoded position of the event id
func (e Event) Position() (EventPosition, error) {
	return ParseEventID(e.ID)
}

// Validate checks the event invariants
func (e Event) Validate() error {
	pos, err := ParseEventID(e.ID)
	if err != nil {
		return err
	}
	if pos.Ledger != e.Ledger {
		return fmt.Errorf("event %s: id ledger %d does not match ledger %d", e.ID, pos.Ledger, e.Ledger)
	}
	if e.ContractID != "" {
		if err := ValidateContractID(e.ContractID); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ValidateContractID checks that id is a contract strkey (C...)
func ValidateContractID(id string) error {
	if _, err := strkey.Decode(strkey.VersionByteContract, id); err != nil {
		return fmt.Errorf("invalid contract address %q: %w", id, err)
	}
	return nil
}
