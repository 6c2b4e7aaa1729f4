package models

import "time"

// EventRecord is the serialized form of an Event handed to sinks and the API.
// XDR fields carry the exact base64 encoding, the other body fields a decoded view.
type EventRecord struct {
	// Identification
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// Ledger context
	Ledger         uint32    `json:"ledger"`
	LedgerClosedAt time.Time `json:"ledger_closed_at"`

	// Emitter
	ContractID string `json:"contract_id,omitempty"`

	// Transaction context
	TxHash                   string `json:"tx_hash"`
	InSuccessfulContractCall bool   `json:"in_successful_contract_call"`

	// Body
	Topics    []interface{} `json:"topics"`
	TopicsXDR []string      `json:"topics_xdr"`
	Value     interface{}   `json:"value"`
	ValueXDR  string        `json:"value_xdr"`
}

// EventListResponse is the page returned by the events endpoint
type EventListResponse struct {
	Events []EventRecord `json:"events"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
