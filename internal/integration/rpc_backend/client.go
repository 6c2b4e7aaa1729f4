package rpc_backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	rpcclient "github.com/stellar/go/clients/rpcclient"
	protocol "github.com/stellar/go/protocols/rpc"
)

// Client wraps a Stellar RPC client with a per call timeout
type Client struct {
	rpc    *rpcclient.Client
	config ClientConfig
}

// NewClient creates a new Client from ClientConfig
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, errors.New("ClientConfig.Endpoint value is empty, please provide a valid endpoint")
	}

	return &Client{
		rpc:    rpcclient.NewClient(config.Endpoint, &http.Client{}),
		config: config,
	}, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := c.config.TimeoutConfig.Timeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// GetHealth calls getHealth
func (c *Client) GetHealth(ctx context.Context) (protocol.GetHealthResponse, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return protocol.GetHealthResponse{}, fmt.Errorf("rpc call %s: %w", protocol.GetHealthMethodName, err)
	}
	return resp, nil
}

// GetEvents calls getEvents
func (c *Client) GetEvents(ctx context.Context, req protocol.GetEventsRequest) (protocol.GetEventsResponse, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.rpc.GetEvents(ctx, req)
	if err != nil {
		return protocol.GetEventsResponse{}, fmt.Errorf("rpc call %s: %w", protocol.GetEventsMethodName, err)
	}
	return resp, nil
}

// GetLedgers calls getLedgers
func (c *Client) GetLedgers(ctx context.Context, req protocol.GetLedgersRequest) (protocol.GetLedgersResponse, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.rpc.GetLedgers(ctx, req)
	if err != nil {
		return protocol.GetLedgersResponse{}, fmt.Errorf("rpc call %s: %w", protocol.GetLedgersMethodName, err)
	}
	return resp, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.rpc.Close()
}
