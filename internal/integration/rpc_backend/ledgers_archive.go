package rpc_backend

import (
	"context"
	"fmt"

	protocol "github.com/stellar/go/protocols/rpc"
	"github.com/stellar/go/xdr"
)

// LedgersArchive serves historical close records through getLedgers, one
// ledger per request
type LedgersArchive struct {
	client *Client
}

// NewLedgersArchive creates a new LedgersArchive instance
func NewLedgersArchive(client *Client) *LedgersArchive {
	return &LedgersArchive{client: client}
}

// GetLedger fetches the close record of sequence
func (a *LedgersArchive) GetLedger(ctx context.Context, sequence uint32) (xdr.LedgerCloseMeta, error) {
	resp, err := a.client.GetLedgers(ctx, protocol.GetLedgersRequest{
		StartLedger: sequence,
		Pagination:  &protocol.LedgerPaginationOptions{Limit: 1},
		Format:      protocol.FormatBase64,
	})
	if err != nil {
		return xdr.LedgerCloseMeta{}, err
	}
	if len(resp.Ledgers) == 0 || resp.Ledgers[0].Sequence != sequence {
		return xdr.LedgerCloseMeta{}, fmt.Errorf("ledger %d not served, archive covers [%d, %d]",
			sequence, resp.OldestLedger, resp.LatestLedger)
	}

	var lcm xdr.LedgerCloseMeta
	if err := xdr.SafeUnmarshalBase64(resp.Ledgers[0].LedgerMetadata, &lcm); err != nil {
		return xdr.LedgerCloseMeta{}, fmt.Errorf("failed to decode ledger %d: %w", sequence, err)
	}
	return lcm, nil
}
