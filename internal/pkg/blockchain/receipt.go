package blockchain

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Receipt is the JSON shape of a transaction receipt as consumed by ingestion.
// Quantities are plain JSON numbers; hashes, addresses and the bloom are 0x-prefixed hex.
type Receipt struct {
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       uint64          `json:"blockNumber"`
	ContractAddress   *common.Address `json:"contractAddress"`
	CumulativeGasUsed uint64          `json:"cumulativeGasUsed"`
	EffectiveGasPrice uint64          `json:"effectiveGasPrice"`
	From              common.Address  `json:"from"`
	GasUsed           uint64          `json:"gasUsed"`
	Logs              []*types.Log    `json:"logs"`
	LogsBloom         types.Bloom     `json:"logsBloom"`
	Root              common.Hash     `json:"root"`
	To                common.Address  `json:"to"`
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  uint            `json:"transactionIndex"`
	Type              string          `json:"type"`
}

// Genesis transactions are plain value transfers defined at the protocol level,
// so their receipt reuses mainnet values for that shape.
const (
	genesisGasUsed           = 21000
	genesisEffectiveGasPrice = 50000000000000
	genesisTxType            = "0x0"
)

var fakeGenesisTxReceipt = Receipt{
	BlockHash:         GenesisHash,
	BlockNumber:       0,
	ContractAddress:   nil,
	CumulativeGasUsed: genesisGasUsed,
	EffectiveGasPrice: genesisEffectiveGasPrice,
	From:              ZeroAddress,
	GasUsed:           genesisGasUsed,
	LogsBloom:         types.Bloom{},
	Root:              GenesisHash,
	To:                ZeroAddress,
	TransactionHash:   GenesisHash,
	TransactionIndex:  0,
	Type:              genesisTxType,
}

// FakeGenesisTxReceipt returns the receipt served for genesis transactions,
// which never had a mined receipt. Each call returns an independent copy.
func FakeGenesisTxReceipt() Receipt {
	r := fakeGenesisTxReceipt
	r.Logs = []*types.Log{}
	return r
}

// FakeGenesisTxReceiptJSON returns FakeGenesisTxReceipt encoded as JSON.
func FakeGenesisTxReceiptJSON() (json.RawMessage, error) {
	b, err := json.Marshal(FakeGenesisTxReceipt())
	if err != nil {
		return nil, fmt.Errorf("encoding genesis receipt: %w", err)
	}
	return b, nil
}
