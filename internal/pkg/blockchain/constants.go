// Package blockchain holds EVM chain constants shared by adapters and services.
package blockchain

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// NativeCurrencyAddressHex stands in for a chain's base currency wherever a
	// token address is expected.
	NativeCurrencyAddressHex = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// DefaultTokenDecimals is assumed for tokens that do not report decimals.
	DefaultTokenDecimals = 18

	// MaxBlocktimeCache bounds how many recent block timestamps a block-time
	// cache keeps: about 55 minutes at a 13 second block time.
	MaxBlocktimeCache = 250
)

// Zero32BytesHex is the all-zero 32-byte value, "0x" followed by 64 zeros.
var Zero32BytesHex = "0x" + strings.Repeat("0", 2*common.HashLength)

var (
	// ZeroAddress is reserved and never a real account.
	ZeroAddress = common.Address{}

	// NativeCurrencyAddress is the parsed form of NativeCurrencyAddressHex.
	NativeCurrencyAddress = common.HexToAddress(NativeCurrencyAddressHex)

	// GenesisHash is the transaction hash used for genesis-block transactions.
	GenesisHash = common.HexToHash(Zero32BytesHex)

	// AddressRegex matches an address-shaped token in free text.
	AddressRegex = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
)

var (
	// ERC20Properties are the metadata calls made against an ERC20 token.
	ERC20Properties = []string{"decimals", "symbol", "name"}

	// ERC721Properties are the metadata calls made against an ERC721 token.
	ERC721Properties = []string{"symbol", "name"}
)

// IsGenesisTx reports whether txHash identifies a genesis-block transaction.
func IsGenesisTx(txHash common.Hash) bool {
	return txHash == GenesisHash
}
