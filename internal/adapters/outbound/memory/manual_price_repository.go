package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that ManualPriceRepository implements outbound.ManualPriceRepository
var _ outbound.ManualPriceRepository = (*ManualPriceRepository)(nil)

// ManualPriceRepository keeps the latest manual price per asset in memory.
type ManualPriceRepository struct {
	mu     sync.RWMutex
	prices map[string]entity.ManualPrice
}

// NewManualPriceRepository creates a new, empty repository.
func NewManualPriceRepository() *ManualPriceRepository {
	return &ManualPriceRepository{
		prices: make(map[string]entity.ManualPrice),
	}
}

// GetManualPrice returns a copy of the stored price, or nil if there is none.
func (r *ManualPriceRepository) GetManualPrice(_ context.Context, assetID string) (*entity.ManualPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prices[assetID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpsertManualPrice replaces the latest manual price for price.AssetID.
func (r *ManualPriceRepository) UpsertManualPrice(_ context.Context, price *entity.ManualPrice) error {
	if price == nil {
		return fmt.Errorf("manual price cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[price.AssetID] = *price
	return nil
}
