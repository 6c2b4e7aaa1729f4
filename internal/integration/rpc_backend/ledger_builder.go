package rpc_backend

import (
	"fmt"
	"net/http"

	"github.com/stellar/go/ingest/ledgerbackend"
)

type LedgerBuilder struct {
	ClientConfig ClientConfig
}

// Build will create a new ledgerbackend.RPCLedgerBackend from ClientConfig
func (lw *LedgerBuilder) Build() (*ledgerbackend.RPCLedgerBackend, error) {
	backendOptions, err := lw.newBackendOptions()
	if err != nil {
		return nil, err
	}
	return ledgerbackend.NewRPCLedgerBackend(*backendOptions), nil
}

// BuildBackend satisfies BackendFactory
func (lw *LedgerBuilder) BuildBackend() (ledgerbackend.LedgerBackend, error) {
	return lw.Build()
}

// newBackendOptions will create a new backend options object from the client config
func (lw *LedgerBuilder) newBackendOptions() (*ledgerbackend.RPCLedgerBackendOptions, error) {
	if lw.ClientConfig.Endpoint == "" {
		return nil, fmt.Errorf("ClientConfig.Endpoint value is empty, please provide a valid endpoint")
	}

	bufferSize := lw.ClientConfig.BufferSize
	if bufferSize <= 0 {
		bufferSize = 10
	}

	return &ledgerbackend.RPCLedgerBackendOptions{
		RPCServerURL: lw.ClientConfig.Endpoint,
		BufferSize:   uint32(bufferSize),
		HttpClient:   &http.Client{Timeout: lw.ClientConfig.TimeoutConfig.Timeout},
	}, nil
}
