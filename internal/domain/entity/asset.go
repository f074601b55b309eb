package entity

import (
	"fmt"
	"strings"
)

// Asset identifies something that can be priced, together with the identifiers
// each oracle uses for it.
type Asset struct {
	// Identifier is the canonical asset identifier (e.g. "ETH", "eip155:1/erc20:0x6B17...").
	Identifier string

	// Symbol is the ticker symbol (e.g. "ETH", "USD").
	Symbol string

	// OracleIDs maps an oracle name to the id that oracle knows the asset by,
	// e.g. "coingecko" -> "ethereum" or "defillama" -> "ethereum:0x6b17...".
	OracleIDs map[string]string
}

// NewAsset creates a new Asset with validation.
func NewAsset(identifier, symbol string, oracleIDs map[string]string) (*Asset, error) {
	a := &Asset{
		Identifier: identifier,
		Symbol:     symbol,
		OracleIDs:  oracleIDs,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Asset) validate() error {
	if strings.TrimSpace(a.Identifier) == "" {
		return fmt.Errorf("identifier must not be empty")
	}
	for oracle, id := range a.OracleIDs {
		if oracle == "" || id == "" {
			return fmt.Errorf("asset %s: oracle ids must be non-empty, got %q -> %q", a.Identifier, oracle, id)
		}
	}
	return nil
}

// OracleID returns the id the named oracle uses for this asset.
func (a Asset) OracleID(oracle string) (string, bool) {
	id, ok := a.OracleIDs[oracle]
	return id, ok && id != ""
}

// String returns the asset identifier.
func (a Asset) String() string {
	return a.Identifier
}
