package currency

import (
	"context"
	"fmt"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/tx"
	"repairpos/internal/domain/audit"
	"repairpos/pkg/logger"
)

const (
	entityCurrency = "currency"
	entityTax      = "tax"
)

// Service provides business logic for the Currency and Tax catalogs.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new Currency service.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     recorder,
	}
}

// --- Currency ---

// CreateCurrency validates and stores a new currency.
// A currency created with IsDefault takes the flag from the previous default.
func (s *Service) CreateCurrency(ctx context.Context, c *Currency) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkCodeUnique(ctx, c.Code, c.ID); err != nil {
			return err
		}
		if c.IsDefault {
			if err := s.repo.ClearDefault(ctx, c.ID); err != nil {
				return fmt.Errorf("clear default currency: %w", err)
			}
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityCurrency, c.ID, audit.ActionCreate)
		entry.SystemNote = fmt.Sprintf("currency %s created with rate %s", c.Code, c.ExchangeRate)
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "currency created", "id", c.ID, "code", c.Code)
	return nil
}

// UpdateCurrency stores edits to name, code and rate.
// The default flag is only changed through SetDefaultCurrency.
// Existing document snapshots are not affected.
func (s *Service) UpdateCurrency(ctx context.Context, c *Currency) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		if existing.Version != c.Version {
			return apperror.NewConcurrentModification(entityCurrency, c.ID)
		}
		if err := s.checkCodeUnique(ctx, c.Code, c.ID); err != nil {
			return err
		}

		c.IsDefault = existing.IsDefault
		c.Touch()
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityCurrency, c.ID, audit.ActionUpdate)
		entry.Changes = map[string]any{
			"exchangeRate": map[string]string{"old": existing.ExchangeRate.String(), "new": c.ExchangeRate.String()},
		}
		return s.audit.Record(ctx, entry)
	})
}

// SetDefaultCurrency makes the currency the single system default.
func (s *Service) SetDefaultCurrency(ctx context.Context, currencyID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, currencyID)
		if err != nil {
			return err
		}
		if c.IsDefault {
			return nil
		}

		if err := s.repo.ClearDefault(ctx, c.ID); err != nil {
			return fmt.Errorf("clear default currency: %w", err)
		}
		c.IsDefault = true
		c.Touch()
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityCurrency, c.ID, audit.ActionDefault)
		entry.SystemNote = fmt.Sprintf("%s set as default currency", c.Code)
		if err := s.audit.Record(ctx, entry); err != nil {
			return err
		}

		logger.Info(ctx, "default currency changed", "id", c.ID, "code", c.Code)
		return nil
	})
}

// DeleteCurrency tombstones a currency. The default currency cannot be removed.
func (s *Service) DeleteCurrency(ctx context.Context, currencyID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, currencyID)
		if err != nil {
			return err
		}
		if c.IsDefault {
			return apperror.NewState(apperror.CodeNotRemovable, "cannot delete the default currency").
				WithDetail("currencyId", c.ID.String())
		}

		c.MarkDeleted()
		c.Touch()
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.NewEntry(ctx, entityCurrency, c.ID, audit.ActionDelete))
	})
}

// GetCurrency retrieves a currency by ID.
func (s *Service) GetCurrency(ctx context.Context, currencyID id.ID) (*Currency, error) {
	return s.repo.GetByID(ctx, currencyID)
}

// ListCurrencies returns all live currencies.
func (s *Service) ListCurrencies(ctx context.Context) ([]*Currency, error) {
	return s.repo.List(ctx)
}

// --- Tax ---

// CreateTax validates and stores a new tax under an existing currency.
func (s *Service) CreateTax(ctx context.Context, t *Tax) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, t.CurrencyID); err != nil {
			return err
		}
		if err := s.checkTaxCodeUnique(ctx, t.TaxCode, t.ID); err != nil {
			return err
		}
		if t.DefaultTax {
			if err := s.repo.ClearDefaultTax(ctx, t.CurrencyID, t.ID); err != nil {
				return fmt.Errorf("clear default tax: %w", err)
			}
		}
		if err := s.repo.CreateTax(ctx, t); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityTax, t.ID, audit.ActionCreate)
		entry.SystemNote = fmt.Sprintf("tax %s created with rate %s", t.TaxCode, t.TaxRate)
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "tax created", "id", t.ID, "taxCode", t.TaxCode)
	return nil
}

// UpdateTax stores edits to code and rate. Currency and default flag are kept.
func (s *Service) UpdateTax(ctx context.Context, t *Tax) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetTaxForUpdate(ctx, t.ID)
		if err != nil {
			return err
		}
		if existing.Version != t.Version {
			return apperror.NewConcurrentModification(entityTax, t.ID)
		}
		if err := s.checkTaxCodeUnique(ctx, t.TaxCode, t.ID); err != nil {
			return err
		}

		t.CurrencyID = existing.CurrencyID
		t.DefaultTax = existing.DefaultTax
		t.Touch()
		if err := s.repo.UpdateTax(ctx, t); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityTax, t.ID, audit.ActionUpdate)
		entry.Changes = map[string]any{
			"taxRate": map[string]string{"old": existing.TaxRate.String(), "new": t.TaxRate.String()},
		}
		return s.audit.Record(ctx, entry)
	})
}

// SetDefaultTax makes the tax the single default of its currency.
func (s *Service) SetDefaultTax(ctx context.Context, taxID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTaxForUpdate(ctx, taxID)
		if err != nil {
			return err
		}
		if t.DefaultTax {
			return nil
		}

		if err := s.repo.ClearDefaultTax(ctx, t.CurrencyID, t.ID); err != nil {
			return fmt.Errorf("clear default tax: %w", err)
		}
		t.DefaultTax = true
		t.Touch()
		if err := s.repo.UpdateTax(ctx, t); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityTax, t.ID, audit.ActionDefault)
		entry.SystemNote = fmt.Sprintf("%s set as default tax", t.TaxCode)
		return s.audit.Record(ctx, entry)
	})
}

// DeleteTax tombstones a tax. Non-removable and default taxes are kept.
func (s *Service) DeleteTax(ctx context.Context, taxID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTaxForUpdate(ctx, taxID)
		if err != nil {
			return err
		}
		if !t.Removable || t.DefaultTax {
			return apperror.NewState(apperror.CodeNotRemovable, "tax cannot be removed").
				WithDetail("taxId", t.ID.String())
		}

		t.MarkDeleted()
		t.Touch()
		if err := s.repo.UpdateTax(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.NewEntry(ctx, entityTax, t.ID, audit.ActionDelete))
	})
}

// GetTax retrieves a tax by ID.
func (s *Service) GetTax(ctx context.Context, taxID id.ID) (*Tax, error) {
	return s.repo.GetTaxByID(ctx, taxID)
}

// ListTaxes returns the live taxes of a currency.
func (s *Service) ListTaxes(ctx context.Context, currencyID id.ID) ([]*Tax, error) {
	return s.repo.ListTaxes(ctx, currencyID)
}

// IsValidPair reports whether the tax exists and belongs to the currency.
func (s *Service) IsValidPair(ctx context.Context, currencyID, taxID id.ID) (bool, error) {
	t, err := s.repo.GetTaxByID(ctx, taxID)
	if apperror.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.CurrencyID == currencyID, nil
}

// --- Default resolution ---

// DefaultCurrency resolves the system default currency.
// Its absence is a configuration error.
func (s *Service) DefaultCurrency(ctx context.Context) (*Currency, error) {
	c, err := s.repo.GetDefaultForShare(ctx)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewConfiguration(apperror.CodeDefaultCurrencyMissing, "Default currency not found")
	}
	return c, err
}

// DefaultTax resolves the default tax of a currency.
func (s *Service) DefaultTax(ctx context.Context, currencyID id.ID) (*Tax, error) {
	t, err := s.repo.GetDefaultTaxForShare(ctx, currencyID)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewConfiguration(apperror.CodeDefaultTaxMissing, "Default tax not found").
			WithDetail("currencyId", currencyID.String())
	}
	return t, err
}

// BaseCurrency resolves the currency with exchange rate exactly 1.0000.
func (s *Service) BaseCurrency(ctx context.Context) (*Currency, error) {
	c, err := s.repo.GetBaseForShare(ctx)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewConfiguration(apperror.CodeBaseCurrencyMissing, "Default exchange rate currency not found")
	}
	return c, err
}

func (s *Service) checkCodeUnique(ctx context.Context, code string, excludeID id.ID) error {
	existing, err := s.repo.FindByCode(ctx, code)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != excludeID {
		return apperror.NewDuplicate(entityCurrency, "code", code)
	}
	return nil
}

func (s *Service) checkTaxCodeUnique(ctx context.Context, code string, excludeID id.ID) error {
	existing, err := s.repo.FindTaxByCode(ctx, code)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != excludeID {
		return apperror.NewDuplicate(entityTax, "taxCode", code)
	}
	return nil
}
