package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price is a decimal amount of the target asset. Prices produced by oracles are positive.
type Price = decimal.Decimal

// NewPrice validates that p is strictly positive.
func NewPrice(p decimal.Decimal) (Price, error) {
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", p.String())
	}
	return p, nil
}

// ManualPrice is a user-entered latest price for an asset.
// Currency is the identifier of the asset the price is expressed in.
type ManualPrice struct {
	AssetID   string
	Price     Price
	Currency  string
	ExpiresAt time.Time
}

// NewManualPrice creates a new ManualPrice entity with validation.
func NewManualPrice(assetID string, price decimal.Decimal, currency string, expiresAt time.Time) (*ManualPrice, error) {
	mp := &ManualPrice{
		AssetID:   assetID,
		Price:     price,
		Currency:  currency,
		ExpiresAt: expiresAt,
	}
	if err := mp.validate(); err != nil {
		return nil, err
	}
	return mp, nil
}

func (mp *ManualPrice) validate() error {
	if mp.AssetID == "" {
		return fmt.Errorf("assetID must not be empty")
	}
	if mp.Currency == "" {
		return fmt.Errorf("currency must not be empty")
	}
	if !mp.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", mp.Price.String())
	}
	return nil
}

// Active reports whether the price has not yet expired at now.
// A zero ExpiresAt never expires.
func (mp ManualPrice) Active(now time.Time) bool {
	return mp.ExpiresAt.IsZero() || now.Before(mp.ExpiresAt)
}
