package entity

import (
	"encoding/json"
	"fmt"
)

// CoinMetadata is the per-coin record returned by an oracle's coin list.
// Its shape belongs to the oracle; this package only requires it to be a JSON object.
type CoinMetadata map[string]any

// CoinList maps an oracle-specific coin id to its metadata.
type CoinList map[string]CoinMetadata

// Encode serializes the coin list to its JSON cache representation.
func (cl CoinList) Encode() (string, error) {
	if cl == nil {
		cl = CoinList{}
	}
	b, err := json.Marshal(cl)
	if err != nil {
		return "", fmt.Errorf("encoding coin list: %w", err)
	}
	return string(b), nil
}

// ParseCoinList decodes a cached coin list. ok is false when raw is not a JSON
// object of JSON objects; callers treat that the same as a missing entry.
func ParseCoinList(raw string) (list CoinList, ok bool) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
		return nil, false
	}

	list = make(CoinList, len(decoded))
	for id, rawMeta := range decoded {
		var meta CoinMetadata
		if err := json.Unmarshal(rawMeta, &meta); err != nil || meta == nil {
			return nil, false
		}
		list[id] = meta
	}
	return list, true
}
