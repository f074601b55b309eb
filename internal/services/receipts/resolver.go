// Package receipts resolves transaction receipts, serving a synthetic receipt for
// genesis transactions, which the node cannot return.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/archon-research/stl-oracles/internal/pkg/blockchain"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// batchClient is implemented by receipt clients that can fetch many receipts per round trip.
type batchClient interface {
	GetTransactionReceipts(ctx context.Context, txHashes []common.Hash) ([]json.RawMessage, error)
}

// DefaultConcurrency bounds in-flight lookups when the client cannot batch.
const DefaultConcurrency = 4

// Resolver returns raw receipt JSON for transaction hashes.
type Resolver struct {
	client      outbound.ReceiptClient
	genesis     json.RawMessage
	concurrency int
	logger      *slog.Logger
}

// NewResolver creates a resolver delegating non-genesis lookups to client.
func NewResolver(client outbound.ReceiptClient, logger *slog.Logger) (*Resolver, error) {
	if client == nil {
		return nil, fmt.Errorf("receipt client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	genesis, err := blockchain.FakeGenesisTxReceiptJSON()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		client:      client,
		genesis:     genesis,
		concurrency: DefaultConcurrency,
		logger:      logger.With("component", "receipt-resolver"),
	}, nil
}

// GetTransactionReceipt returns the receipt of txHash. The genesis hash yields the
// fake genesis receipt without contacting the node.
func (r *Resolver) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (json.RawMessage, error) {
	if blockchain.IsGenesisTx(txHash) {
		return r.genesisReceipt(), nil
	}
	return r.client.GetTransactionReceipt(ctx, txHash)
}

// GetTransactionReceipts returns receipts in input order. Unknown transactions
// get a nil entry.
func (r *Resolver) GetTransactionReceipts(ctx context.Context, txHashes []common.Hash) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(txHashes))

	var (
		pending []common.Hash
		index   []int
	)
	for i, h := range txHashes {
		if blockchain.IsGenesisTx(h) {
			out[i] = r.genesisReceipt()
			continue
		}
		pending = append(pending, h)
		index = append(index, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	if bc, ok := r.client.(batchClient); ok {
		raws, err := bc.GetTransactionReceipts(ctx, pending)
		if err != nil {
			return nil, err
		}
		if len(raws) != len(pending) {
			return nil, fmt.Errorf("receipt batch returned %d results for %d hashes", len(raws), len(pending))
		}
		for j, raw := range raws {
			out[index[j]] = raw
		}
		return out, nil
	}

	// Fall back to one call per receipt, a few in flight at a time.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for j, h := range pending {
		g.Go(func() error {
			raw, err := r.client.GetTransactionReceipt(gCtx, h)
			if err != nil {
				if errors.Is(err, outbound.ErrReceiptNotFound) {
					r.logger.Debug("receipt not found", "tx", h.Hex())
					return nil
				}
				return err
			}
			out[index[j]] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) genesisReceipt() json.RawMessage {
	cp := make(json.RawMessage, len(r.genesis))
	copy(cp, r.genesis)
	return cp
}
