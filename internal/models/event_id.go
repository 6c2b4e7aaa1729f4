package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stellar/go/toid"
)

const (
	maxTxIndex = 1<<20 - 1
	maxOpIndex = 1<<12 - 1
)

// EventPosition locates an event inside a ledger. Tx, Op and Event are 1-based.
type EventPosition struct {
	Ledger uint32
	Tx     uint32
	Op     uint32
	Event  uint32
}

// NewEventID builds the order-preserving id of an event: the zero padded TOID of
// (ledger, tx, op) followed by the zero padded event index.
func NewEventID(pos EventPosition) (string, error) {
	if pos.Ledger > math.MaxInt32 {
		return "", fmt.Errorf("ledger %d out of range for event id", pos.Ledger)
	}
	if pos.Tx == 0 || pos.Tx > maxTxIndex {
		return "", fmt.Errorf("transaction index %d out of range for event id", pos.Tx)
	}
	if pos.Op == 0 || pos.Op > maxOpIndex {
		return "", fmt.Errorf("operation index %d out of range for event id", pos.Op)
	}
	if pos.Event == 0 {
		return "", fmt.Errorf("event index must be 1-based")
	}

	id := toid.New(int32(pos.Ledger), int32(pos.Tx), int32(pos.Op)).ToInt64()
	return fmt.Sprintf("%019d-%010d", id, pos.Event), nil
}

// ParseEventID decodes an id produced by NewEventID or by a live source
func ParseEventID(id string) (EventPosition, error) {
	prefix, suffix, ok := strings.Cut(id, "-")
	if !ok || len(prefix) != 19 || len(suffix) != 10 {
		return EventPosition{}, fmt.Errorf("malformed event id %q", id)
	}

	order, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || order < 0 {
		return EventPosition{}, fmt.Errorf("malformed event id %q: bad TOID", id)
	}
	index, err := strconv.ParseUint(suffix, 10, 32)
	if err != nil {
		return EventPosition{}, fmt.Errorf("malformed event id %q: bad event index", id)
	}

	parsed := toid.Parse(order)
	return EventPosition{
		Ledger: uint32(parsed.LedgerSequence),
		Tx:     uint32(parsed.TransactionOrder),
		Op:     uint32(parsed.OperationOrder),
		Event:  uint32(index),
	}, nil
}
