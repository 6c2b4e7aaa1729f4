package rpc_backend

import "time"

// ClientTimeoutConfig bounds each RPC call
type ClientTimeoutConfig struct {
	Timeout time.Duration // per call, 0 disables
}

// ClientConfig configures the RPC client and the ledger backend built from it
type ClientConfig struct {
	Endpoint      string
	BufferSize    int
	TimeoutConfig ClientTimeoutConfig
}
