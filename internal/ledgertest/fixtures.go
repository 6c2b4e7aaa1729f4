// Package ledgertest builds small ledger close records for tests.
package ledgertest

import (
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// CloseTime is the close time stamped on every fixture ledger
const CloseTime = 1700000000

// ContractBytes returns a deterministic contract hash filled with b
func ContractBytes(b byte) [32]byte {
	var raw [32]byte
	for i := range raw {
		raw[i] = b
	}
	return raw
}

// ContractAddress returns the C... strkey of ContractBytes(b)
func ContractAddress(b byte) string {
	raw := ContractBytes(b)
	id, err := strkey.Encode(strkey.VersionByteContract, raw[:])
	if err != nil {
		panic(err)
	}
	return id
}

// Symbol returns a symbol ScVal
func Symbol(s string) xdr.ScVal {
	v := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &v}
}

// U32 returns a u32 ScVal
func U32(n uint32) xdr.ScVal {
	v := xdr.Uint32(n)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &v}
}

func setContractID[T ~[32]byte](dst **T, raw [32]byte) {
	id := T(raw)
	*dst = &id
}

// ContractEvent builds a contract-emitted event of contract b
func ContractEvent(b byte, data xdr.ScVal, topics ...xdr.ScVal) xdr.ContractEvent {
	ev := xdr.ContractEvent{
		Type: xdr.ContractEventTypeContract,
		Body: xdr.ContractEventBody{
			V:  0,
			V0: &xdr.ContractEventV0{Topics: topics, Data: data},
		},
	}
	setContractID(&ev.ContractId, ContractBytes(b))
	return ev
}

// SystemEvent builds a system event without an emitting contract
func SystemEvent(data xdr.ScVal, topics ...xdr.ScVal) xdr.ContractEvent {
	return xdr.ContractEvent{
		Type: xdr.ContractEventTypeSystem,
		Body: xdr.ContractEventBody{
			V:  0,
			V0: &xdr.ContractEventV0{Topics: topics, Data: data},
		},
	}
}

// Tx describes one applied transaction of a fixture ledger
type Tx struct {
	Hash   byte
	Failed bool
	Meta   xdr.TransactionMeta
}

// MetaV3 attaches events to the single Soroban operation of a transaction
func MetaV3(events ...xdr.ContractEvent) xdr.TransactionMeta {
	return xdr.TransactionMeta{
		V: 3,
		V3: &xdr.TransactionMetaV3{
			SorobanMeta: &xdr.SorobanTransactionMeta{Events: events},
		},
	}
}

// MetaV4 attaches one event list per operation
func MetaV4(ops ...[]xdr.ContractEvent) xdr.TransactionMeta {
	operations := make([]xdr.OperationMetaV2, len(ops))
	for i, events := range ops {
		operations[i] = xdr.OperationMetaV2{Events: events}
	}
	return xdr.TransactionMeta{
		V:  4,
		V4: &xdr.TransactionMetaV4{Operations: operations},
	}
}

// ClassicMeta is the meta of a transaction without events
func ClassicMeta() xdr.TransactionMeta {
	ops := []xdr.OperationMeta{}
	return xdr.TransactionMeta{V: 0, Operations: &ops}
}

func resultPair(tx Tx) xdr.TransactionResultPair {
	code := xdr.TransactionResultCodeTxSuccess
	if tx.Failed {
		code = xdr.TransactionResultCodeTxFailed
	}
	var hash xdr.Hash
	hash[0] = tx.Hash
	return xdr.TransactionResultPair{
		TransactionHash: hash,
		Result: xdr.TransactionResult{
			Result: xdr.TransactionResultResult{Code: code},
		},
	}
}

func header(sequence uint32) xdr.LedgerHeaderHistoryEntry {
	return xdr.LedgerHeaderHistoryEntry{
		Header: xdr.LedgerHeader{
			LedgerSeq: xdr.Uint32(sequence),
			ScpValue:  xdr.StellarValue{CloseTime: xdr.TimePoint(CloseTime)},
		},
	}
}

// LedgerV1 builds a version 1 ledger close record
func LedgerV1(sequence uint32, txs ...Tx) xdr.LedgerCloseMeta {
	processing := make([]xdr.TransactionResultMeta, len(txs))
	for i, tx := range txs {
		processing[i] = xdr.TransactionResultMeta{
			Result:            resultPair(tx),
			TxApplyProcessing: tx.Meta,
		}
	}
	return xdr.LedgerCloseMeta{
		V: 1,
		V1: &xdr.LedgerCloseMetaV1{
			LedgerHeader: header(sequence),
			TxProcessing: processing,
		},
	}
}

// LedgerV2 builds a version 2 ledger close record
func LedgerV2(sequence uint32, txs ...Tx) xdr.LedgerCloseMeta {
	processing := make([]xdr.TransactionResultMetaV1, len(txs))
	for i, tx := range txs {
		processing[i] = xdr.TransactionResultMetaV1{
			Result:            resultPair(tx),
			TxApplyProcessing: tx.Meta,
		}
	}
	return xdr.LedgerCloseMeta{
		V: 2,
		V2: &xdr.LedgerCloseMetaV2{
			LedgerHeader: header(sequence),
			TxProcessing: processing,
		},
	}
}
