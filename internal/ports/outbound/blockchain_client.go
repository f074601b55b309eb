package outbound

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReceiptNotFound is returned when the node has no receipt for a transaction.
var ErrReceiptNotFound = errors.New("receipt not found")

// ReceiptClient fetches transaction receipts via RPC.
type ReceiptClient interface {
	// GetTransactionReceipt returns the raw receipt JSON for txHash.
	// Returns ErrReceiptNotFound if the transaction is unknown or not yet mined.
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (json.RawMessage, error)
}
