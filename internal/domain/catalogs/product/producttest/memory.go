// Package producttest provides an in-memory product.Reader for tests.
package producttest

import (
	"context"

	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/product"
)

// Store keeps products and costs in maps.
type Store struct {
	Products map[id.ID]*product.Product
	Costs    map[id.ID][]product.Cost
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Products: make(map[id.ID]*product.Product),
		Costs:    make(map[id.ID][]product.Cost),
	}
}

// Add stores a product with the given sell price and flags.
func (s *Store) Add(code, sellPrice string, inventoried, serialized bool) *product.Product {
	p := &product.Product{
		BaseEntity:  entity.NewBaseEntity(),
		Code:        code,
		Description: code + " description",
		SellPrice:   decimal.RequireFromString(sellPrice),
		Taxable:     true,
		Inventoried: inventoried,
		Serialized:  serialized,
	}
	s.Products[p.ID] = p
	return p
}

// AddCost attaches a cost row to a product.
func (s *Store) AddCost(productID id.ID, amount string, isDefault bool) {
	s.Costs[productID] = append(s.Costs[productID], product.Cost{
		BaseEntity: entity.NewBaseEntity(),
		ProductID:  productID,
		Amount:     decimal.RequireFromString(amount),
		IsDefault:  isDefault,
	})
}

func (s *Store) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := s.Products[productID]
	if !ok || p.IsDeleted() {
		return nil, apperror.NewNotFound("product", productID)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetCosts(_ context.Context, productID id.ID) ([]product.Cost, error) {
	return append([]product.Cost(nil), s.Costs[productID]...), nil
}

var _ product.Reader = (*Store)(nil)
