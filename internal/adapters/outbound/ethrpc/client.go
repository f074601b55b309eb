// Package ethrpc fetches transaction receipts from an Ethereum JSON-RPC node.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that Client implements outbound.ReceiptClient.
var _ outbound.ReceiptClient = (*Client)(nil)

// Config holds configuration for the RPC client.
type Config struct {
	// URL is the JSON-RPC endpoint (http, https, ws or wss).
	URL string

	// Timeout is the maximum time for a single HTTP request. Default: 30s
	Timeout time.Duration

	// MaxConns caps connections to the node. Default: 8
	MaxConns int
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		Timeout:  30 * time.Second,
		MaxConns: 8,
	}
}

// Client is a receipt client on top of go-ethereum's rpc.Client.
type Client struct {
	rpc    *rpc.Client
	logger *slog.Logger
}

// Dial connects to the node at cfg.URL.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	defaults := ConfigDefaults()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = defaults.MaxConns
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        cfg.MaxConns * 2,
			MaxIdleConnsPerHost: cfg.MaxConns,
			MaxConnsPerHost:     cfg.MaxConns,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.URL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("connecting to RPC: %w", err)
	}
	return NewClient(rpcClient, logger), nil
}

// NewClient wraps an existing rpc.Client.
func NewClient(rpcClient *rpc.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:    rpcClient,
		logger: logger.With("component", "ethrpc-client"),
	}
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// GetTransactionReceipt calls eth_getTransactionReceipt and returns the raw result.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt %s: %w", txHash.Hex(), err)
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%s: %w", txHash.Hex(), outbound.ErrReceiptNotFound)
	}
	return raw, nil
}

// GetTransactionReceipts fetches several receipts in one JSON-RPC batch.
// Unknown transactions get a nil entry; any per-call RPC error fails the batch.
func (c *Client) GetTransactionReceipts(ctx context.Context, txHashes []common.Hash) ([]json.RawMessage, error) {
	if len(txHashes) == 0 {
		return []json.RawMessage{}, nil
	}

	raws := make([]json.RawMessage, len(txHashes))
	elems := make([]rpc.BatchElem, len(txHashes))
	for i, h := range txHashes {
		elems[i] = rpc.BatchElem{
			Method: "eth_getTransactionReceipt",
			Args:   []interface{}{h},
			Result: &raws[i],
		}
	}

	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return nil, fmt.Errorf("batch eth_getTransactionReceipt failed: %w", err)
	}

	for i, elem := range elems {
		if elem.Error != nil {
			return nil, fmt.Errorf("eth_getTransactionReceipt %s: %w", txHashes[i].Hex(), elem.Error)
		}
		if isNull(raws[i]) {
			c.logger.Debug("receipt not found", "tx", txHashes[i].Hex())
			raws[i] = nil
		}
	}
	return raws, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
