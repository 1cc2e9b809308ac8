// Package main bootstraps a database: schema, system locations and the
// default currency and tax. Every step is idempotent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"repairpos/internal/app"
	"repairpos/internal/config"
	appctx "repairpos/internal/core/context"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/infrastructure/storage/postgres"
	"repairpos/pkg/logger"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.toml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.IsDevelopment()})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := appctx.StartOperation(context.Background(), "seed")
	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}

	a, err := app.Wire(ctx, pool, cfg)
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}

	if err := a.Locations.EnsureSystemLocations(ctx); err != nil {
		log.Fatalw("failed to seed locations", "error", err)
	}
	if err := seedCurrency(ctx, a.Currencies, cfg.Seed); err != nil {
		log.Fatalw("failed to seed currency", "error", err)
	}

	log.Info("seed complete")
}

func seedCurrency(ctx context.Context, rates *currency.Service, seed config.SeedConfig) error {
	taxRate, err := decimal.NewFromString(seed.TaxRate)
	if err != nil {
		return fmt.Errorf("parse seed tax rate %q: %w", seed.TaxRate, err)
	}

	existing, err := rates.ListCurrencies(ctx)
	if err != nil {
		return err
	}

	var cur *currency.Currency
	for _, c := range existing {
		if c.Code == seed.CurrencyCode {
			cur = c
			break
		}
	}
	if cur == nil {
		cur = currency.NewCurrency(seed.CurrencyName, seed.CurrencyCode, types.One())
		cur.IsDefault = len(existing) == 0
		if err := rates.CreateCurrency(ctx, cur); err != nil {
			return err
		}
	}

	taxes, err := rates.ListTaxes(ctx, cur.ID)
	if err != nil {
		return err
	}
	for _, t := range taxes {
		if t.TaxCode == seed.TaxCode {
			logger.Info(ctx, "seed currency present", "code", cur.Code, "tax", t.TaxCode)
			return nil
		}
	}

	tax := currency.NewTax(cur.ID, seed.TaxCode, taxRate)
	tax.DefaultTax = len(taxes) == 0
	return rates.CreateTax(ctx, tax)
}
