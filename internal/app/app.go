// Package app wires the storage layer and domain services from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"repairpos/internal/config"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/internal/domain/documents/sale"
	"repairpos/internal/domain/monetary"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/infrastructure/cache"
	"repairpos/internal/infrastructure/storage/postgres"
	"repairpos/internal/infrastructure/storage/postgres/catalog_repo"
	"repairpos/internal/infrastructure/storage/postgres/document_repo"
	"repairpos/internal/infrastructure/storage/postgres/register_repo"
	"repairpos/pkg/logger"
	"repairpos/pkg/numerator"
)

// App holds the wired services.
type App struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	EntityLog *postgres.EntityLog
	Redis     *redis.Client

	Currencies  *currency.Service
	Locations   *location.Service
	Products    *product.Service
	ProductRepo *catalog_repo.ProductRepo
	Ledger      *inventory.Ledger
	Transfers   *inventory.TransferService
	Quantities  *inventory.QuantityView
	Sales       *sale.Service
}

// New connects to PostgreSQL (and Redis when enabled) and builds every
// service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg))
	if err != nil {
		return nil, err
	}

	a, err := Wire(ctx, pool, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds the services over an existing pool.
func Wire(ctx context.Context, pool *postgres.Pool, cfg *config.Config) (*App, error) {
	txm := postgres.NewTxManager(pool)
	if cfg.Database.StatementTimeout > 0 {
		txm = txm.WithStatementTimeout(cfg.Database.StatementTimeout)
	}

	entityLog, err := postgres.NewEntityLog(txm)
	if err != nil {
		return nil, fmt.Errorf("create entity log: %w", err)
	}

	a := &App{Pool: pool, TxManager: txm, EntityLog: entityLog}

	// the interface stays nil unless redis is enabled
	var qc inventory.QuantityCache
	if cfg.Redis.Enabled {
		a.Redis, err = cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		qc = cache.NewQuantityCache(a.Redis, cfg.Redis.TTL)
		logger.Info(ctx, "quantity cache enabled", "addr", cfg.Redis.Addr)
	}

	gen := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	a.Currencies = currency.NewService(catalog_repo.NewCurrencyRepo(txm), txm, entityLog)
	a.Locations = location.NewService(catalog_repo.NewLocationRepo(txm), txm, entityLog)
	a.ProductRepo = catalog_repo.NewProductRepo(txm)
	a.Products = product.NewService(a.ProductRepo)

	a.Ledger = inventory.NewLedger(
		register_repo.NewIncrementRepo(txm),
		register_repo.NewSerialRepo(txm),
		a.ProductRepo,
		a.Locations,
		txm,
	)
	a.Transfers = inventory.NewTransferService(a.Ledger, register_repo.NewTransferRepo(txm), gen, txm, entityLog, qc)
	a.Quantities = inventory.NewQuantityView(a.Ledger, qc)
	a.Sales = sale.NewService(
		document_repo.NewSaleRepo(txm),
		a.Products,
		a.Locations,
		monetary.NewSnapshotService(a.Currencies),
		a.Transfers,
		gen,
		txm,
		entityLog,
	)
	return a, nil
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	a.Pool.Close()
}
