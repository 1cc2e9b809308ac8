package product

import (
	"context"
	"fmt"

	"repairpos/internal/core/id"
)

// Service resolves products for line item construction.
type Service struct {
	reader Reader
}

// NewService creates a product service.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// Get retrieves a product without resolving its cost.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.reader.GetByID(ctx, productID)
}

// Resolve loads a product and its effective cost.
func (s *Service) Resolve(ctx context.Context, productID id.ID) (Resolved, error) {
	p, err := s.reader.GetByID(ctx, productID)
	if err != nil {
		return Resolved{}, err
	}
	costs, err := s.reader.GetCosts(ctx, productID)
	if err != nil {
		return Resolved{}, fmt.Errorf("load costs for product %s: %w", productID, err)
	}
	return Resolved{Product: p, Cost: EffectiveCost(costs, p.AverageCost)}, nil
}
