// Package currencytest provides an in-memory currency.Repository for tests.
package currencytest

import (
	"context"
	"sort"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/currency"
)

// Store keeps currencies and taxes in maps. Not safe for concurrent use.
type Store struct {
	Currencies map[id.ID]*currency.Currency
	Taxes      map[id.ID]*currency.Tax
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Currencies: make(map[id.ID]*currency.Currency),
		Taxes:      make(map[id.ID]*currency.Tax),
	}
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	curs := make(map[id.ID]*currency.Currency, len(s.Currencies))
	for k, v := range s.Currencies {
		c := *v
		curs[k] = &c
	}
	taxes := make(map[id.ID]*currency.Tax, len(s.Taxes))
	for k, v := range s.Taxes {
		t := *v
		taxes[k] = &t
	}
	return func() {
		s.Currencies = curs
		s.Taxes = taxes
	}
}

func (s *Store) Create(_ context.Context, c *currency.Currency) error {
	cp := *c
	s.Currencies[c.ID] = &cp
	return nil
}

func (s *Store) Update(_ context.Context, c *currency.Currency) error {
	if _, ok := s.Currencies[c.ID]; !ok {
		return apperror.NewNotFound("currency", c.ID)
	}
	cp := *c
	s.Currencies[c.ID] = &cp
	return nil
}

func (s *Store) GetByID(_ context.Context, currencyID id.ID) (*currency.Currency, error) {
	return s.currency(func(c *currency.Currency) bool { return c.ID == currencyID }, currencyID)
}

func (s *Store) GetForUpdate(ctx context.Context, currencyID id.ID) (*currency.Currency, error) {
	return s.GetByID(ctx, currencyID)
}

func (s *Store) List(_ context.Context) ([]*currency.Currency, error) {
	var out []*currency.Currency
	for _, c := range s.Currencies {
		if !c.IsDeleted() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) FindByCode(_ context.Context, code string) (*currency.Currency, error) {
	return s.currency(func(c *currency.Currency) bool { return c.Code == code }, code)
}

func (s *Store) GetDefaultForShare(_ context.Context) (*currency.Currency, error) {
	return s.currency(func(c *currency.Currency) bool { return c.IsDefault }, "default")
}

func (s *Store) GetBaseForShare(_ context.Context) (*currency.Currency, error) {
	return s.currency(func(c *currency.Currency) bool { return c.IsBase() }, "base")
}

func (s *Store) ClearDefault(_ context.Context, keepID id.ID) error {
	for _, c := range s.Currencies {
		if c.ID != keepID {
			c.IsDefault = false
		}
	}
	return nil
}

func (s *Store) CreateTax(_ context.Context, t *currency.Tax) error {
	cp := *t
	s.Taxes[t.ID] = &cp
	return nil
}

func (s *Store) UpdateTax(_ context.Context, t *currency.Tax) error {
	if _, ok := s.Taxes[t.ID]; !ok {
		return apperror.NewNotFound("tax", t.ID)
	}
	cp := *t
	s.Taxes[t.ID] = &cp
	return nil
}

func (s *Store) GetTaxByID(_ context.Context, taxID id.ID) (*currency.Tax, error) {
	return s.tax(func(t *currency.Tax) bool { return t.ID == taxID }, taxID)
}

func (s *Store) GetTaxForUpdate(ctx context.Context, taxID id.ID) (*currency.Tax, error) {
	return s.GetTaxByID(ctx, taxID)
}

func (s *Store) FindTaxByCode(_ context.Context, code string) (*currency.Tax, error) {
	return s.tax(func(t *currency.Tax) bool { return t.TaxCode == code }, code)
}

func (s *Store) ListTaxes(_ context.Context, currencyID id.ID) ([]*currency.Tax, error) {
	var out []*currency.Tax
	for _, t := range s.Taxes {
		if !t.IsDeleted() && t.CurrencyID == currencyID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaxCode < out[j].TaxCode })
	return out, nil
}

func (s *Store) GetDefaultTaxForShare(_ context.Context, currencyID id.ID) (*currency.Tax, error) {
	return s.tax(func(t *currency.Tax) bool { return t.CurrencyID == currencyID && t.DefaultTax }, currencyID)
}

func (s *Store) ClearDefaultTax(_ context.Context, currencyID, keepID id.ID) error {
	for _, t := range s.Taxes {
		if t.CurrencyID == currencyID && t.ID != keepID {
			t.DefaultTax = false
		}
	}
	return nil
}

// DefaultCount returns how many live currencies carry the default flag.
func (s *Store) DefaultCount() int {
	n := 0
	for _, c := range s.Currencies {
		if c.IsDefault && !c.IsDeleted() {
			n++
		}
	}
	return n
}

func (s *Store) currency(match func(*currency.Currency) bool, key any) (*currency.Currency, error) {
	for _, c := range s.Currencies {
		if !c.IsDeleted() && match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("currency", key)
}

func (s *Store) tax(match func(*currency.Tax) bool, key any) (*currency.Tax, error) {
	for _, t := range s.Taxes {
		if !t.IsDeleted() && match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("tax", key)
}

var _ currency.Repository = (*Store)(nil)
