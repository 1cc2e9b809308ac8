package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/infrastructure/storage/postgres"
)

const locationTable = "cat_locations"

var _ location.Repository = (*LocationRepo)(nil)

// LocationRepo implements location.Repository.
type LocationRepo struct {
	*BaseCatalogRepo[location.Location]
}

// NewLocationRepo creates a location repository.
func NewLocationRepo(txManager *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[location.Location](txManager, locationTable, "location"),
	}
}

func (r *LocationRepo) GetBySystemKey(ctx context.Context, key location.SystemKey) (*location.Location, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"system_key": string(key)}), key)
}

func (r *LocationRepo) GetDefault(ctx context.Context) (*location.Location, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"default_location": true}), "default")
}

func (r *LocationRepo) ListSelectable(ctx context.Context) ([]*location.Location, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"system_use_only": false}).
		OrderBy("name")
	return r.FindAll(ctx, q)
}

// ClearDefault clears the default flag on every other location.
func (r *LocationRepo) ClearDefault(ctx context.Context, keepID id.ID) error {
	q := r.Builder().
		Update(locationTable).
		Set("default_location", false).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"default_location": true}).
		Where(squirrel.NotEq{"id": keepID})
	return r.exec(ctx, q, "clear default")
}
