package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventstream/internal/filter"
	"eventstream/internal/models"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

var (
	// ErrUnsupportedLedgerVersion is returned for LedgerCloseMeta versions other than 1 and 2
	ErrUnsupportedLedgerVersion = errors.New("unsupported ledger close meta version")

	// ErrUnsupportedTxMeta is returned for transaction meta versions this extractor cannot read
	ErrUnsupportedTxMeta = errors.New("unsupported transaction meta version")

	// ErrMalformedLedger is returned when a ledger close meta is structurally invalid
	ErrMalformedLedger = errors.New("malformed ledger close meta")
)

// appliedTx is the part of a processed transaction the extractor reads
type appliedTx struct {
	result xdr.TransactionResultPair
	meta   xdr.TransactionMeta
}

// EventExtractor decodes raw ledger close records into events
type EventExtractor struct {
	logger *slog.Logger
}

// NewEventExtractor creates a new EventExtractor instance
func NewEventExtractor(logger *slog.Logger) *EventExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventExtractor{logger: logger}
}

// Extract invokes onEvent, in (transaction, operation, event) order, for every event of
// lcm matching at least one filter. All events are delivered when filters is empty.
func (e *EventExtractor) Extract(
	ctx context.Context,
	lcm xdr.LedgerCloseMeta,
	filters []*filter.EventFilter,
	onEvent models.EventHandler,
) error {
	header, txs, err := payload(lcm)
	if err != nil {
		return err
	}

	sequence := uint32(header.Header.LedgerSeq)
	closedAt := time.Unix(int64(header.Header.ScpValue.CloseTime), 0).UTC()

	delivered := 0
	for i, tx := range txs {
		opEvents, err := operationEvents(tx.meta)
		if err != nil {
			return fmt.Errorf("ledger %d tx %d: %w", sequence, i+1, err)
		}

		txHash := tx.result.TransactionHash.HexString()
		successful := isSuccessful(tx.result)

		for opIndex, events := range opEvents {
			for eventIndex, contractEvent := range events {
				pos := models.EventPosition{
					Ledger: sequence,
					Tx:     uint32(i + 1),
					Op:     uint32(opIndex + 1),
					Event:  uint32(eventIndex + 1),
				}

				event, err := buildEvent(pos, closedAt, txHash, successful, contractEvent)
				if err != nil {
					return fmt.Errorf("ledger %d tx %d op %d event %d: %w",
						sequence, pos.Tx, pos.Op, pos.Event, err)
				}

				matched, err := filter.MatchAny(filters, event)
				if err != nil {
					return err
				}
				if !matched {
					continue
				}

				if err := onEvent(ctx, event); err != nil {
					return err
				}
				delivered++
			}
		}
	}

	e.logger.Debug("Ledger events extracted",
		"sequence", sequence,
		"transactions", len(txs),
		"delivered", delivered,
	)
	return nil
}

// payload selects the header and applied transactions by close meta version
func payload(lcm xdr.LedgerCloseMeta) (xdr.LedgerHeaderHistoryEntry, []appliedTx, error) {
	var header xdr.LedgerHeaderHistoryEntry
	var txs []appliedTx

	switch lcm.V {
	case 1:
		v1, ok := lcm.GetV1()
		if !ok {
			return header, nil, fmt.Errorf("%w: version 1 without body", ErrMalformedLedger)
		}
		header = v1.LedgerHeader
		txs = make([]appliedTx, len(v1.TxProcessing))
		for i, processed := range v1.TxProcessing {
			txs[i] = appliedTx{result: processed.Result, meta: processed.TxApplyProcessing}
		}
	case 2:
		v2, ok := lcm.GetV2()
		if !ok {
			return header, nil, fmt.Errorf("%w: version 2 without body", ErrMalformedLedger)
		}
		header = v2.LedgerHeader
		txs = make([]appliedTx, len(v2.TxProcessing))
		for i, processed := range v2.TxProcessing {
			txs[i] = appliedTx{result: processed.Result, meta: processed.TxApplyProcessing}
		}
	default:
		return header, nil, fmt.Errorf("%w: %d", ErrUnsupportedLedgerVersion, lcm.V)
	}

	if header.Header.LedgerSeq == 0 {
		return header, nil, fmt.Errorf("%w: missing ledger sequence", ErrMalformedLedger)
	}
	return header, txs, nil
}

// operationEvents returns the events of each operation of a transaction.
// Transaction meta V3 attaches all Soroban events to the single invoke operation.
func operationEvents(meta xdr.TransactionMeta) ([][]xdr.ContractEvent, error) {
	switch meta.V {
	case 0, 1, 2:
		return nil, nil
	case 3:
		v3, ok := meta.GetV3()
		if !ok {
			return nil, fmt.Errorf("%w: meta version 3 without body", ErrMalformedLedger)
		}
		if v3.SorobanMeta == nil || len(v3.SorobanMeta.Events) == 0 {
			return nil, nil
		}
		return [][]xdr.ContractEvent{v3.SorobanMeta.Events}, nil
	case 4:
		v4, ok := meta.GetV4()
		if !ok {
			return nil, fmt.Errorf("%w: meta version 4 without body", ErrMalformedLedger)
		}
		events := make([][]xdr.ContractEvent, len(v4.Operations))
		for i, op := range v4.Operations {
			events[i] = op.Events
		}
		return events, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxMeta, meta.V)
	}
}

func buildEvent(
	pos models.EventPosition,
	closedAt time.Time,
	txHash string,
	successful bool,
	contractEvent xdr.ContractEvent,
) (models.Event, error) {
	id, err := models.NewEventID(pos)
	if err != nil {
		return models.Event{}, err
	}

	body, ok := contractEvent.Body.GetV0()
	if !ok {
		return models.Event{}, fmt.Errorf("%w: event body version %d", ErrMalformedLedger, contractEvent.Body.V)
	}

	eventType, err := eventTypeOf(contractEvent.Type)
	if err != nil {
		return models.Event{}, err
	}

	contractID := ""
	if contractEvent.ContractId != nil {
		contractID, err = strkey.Encode(strkey.VersionByteContract, (*contractEvent.ContractId)[:])
		if err != nil {
			return models.Event{}, fmt.Errorf("failed to encode contract id: %w", err)
		}
	}

	return models.Event{
		ID:                       id,
		Type:                     eventType,
		Ledger:                   pos.Ledger,
		LedgerClosedAt:           closedAt,
		ContractID:               contractID,
		TxHash:                   txHash,
		InSuccessfulContractCall: successful,
		Topics:                   body.Topics,
		Value:                    body.Data,
	}, nil
}

func eventTypeOf(t xdr.ContractEventType) (models.EventType, error) {
	switch t {
	case xdr.ContractEventTypeContract:
		return models.EventTypeContract, nil
	case xdr.ContractEventTypeSystem:
		return models.EventTypeSystem, nil
	case xdr.ContractEventTypeDiagnostic:
		return models.EventTypeDiagnostic, nil
	default:
		return "", fmt.Errorf("%w: unknown event type %d", ErrMalformedLedger, t)
	}
}

func isSuccessful(result xdr.TransactionResultPair) bool {
	code := result.Result.Result.Code
	return code == xdr.TransactionResultCodeTxSuccess ||
		code == xdr.TransactionResultCodeTxFeeBumpInnerSuccess
}
