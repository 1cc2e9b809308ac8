package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/internal/infrastructure/storage/postgres"
)

const (
	productTable     = "cat_products"
	productCostTable = "cat_product_costs"
)

var _ product.Reader = (*ProductRepo)(nil)

// ProductRepo reads and seeds products and their supplier costs.
type ProductRepo struct {
	*BaseCatalogRepo[product.Product]
	costs *BaseCatalogRepo[product.Cost]
}

// NewProductRepo creates a product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[product.Product](txManager, productTable, "product"),
		costs:           NewBaseCatalogRepo[product.Cost](txManager, productCostTable, "product cost"),
	}
}

// GetCosts returns the live costs of a product, the default one first.
func (r *ProductRepo) GetCosts(ctx context.Context, productID id.ID) ([]product.Cost, error) {
	q := r.costs.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("default_cost DESC", "created_at")
	rows, err := r.costs.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]product.Cost, len(rows))
	for i, c := range rows {
		out[i] = *c
	}
	return out, nil
}

// CreateCost stores a supplier cost.
func (r *ProductRepo) CreateCost(ctx context.Context, c *product.Cost) error {
	return r.costs.Create(ctx, c)
}
