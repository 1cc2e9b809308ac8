// Package inventorytest provides in-memory inventory repositories and a
// quantity cache for tests.
package inventorytest

import (
	"context"
	"sort"
	"time"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
)

// Store implements the increment, serial and transfer repositories over
// slices and maps. Not safe for concurrent use.
type Store struct {
	Increments []inventory.Increment
	Serials    map[id.ID]*inventory.SerialNumber
	Links      map[id.ID][]id.ID // increment -> serials
	Transfers  map[id.ID]*inventory.Transfer
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Serials:   make(map[id.ID]*inventory.SerialNumber),
		Links:     make(map[id.ID][]id.ID),
		Transfers: make(map[id.ID]*inventory.Transfer),
	}
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	incs := append([]inventory.Increment(nil), s.Increments...)
	serials := make(map[id.ID]*inventory.SerialNumber, len(s.Serials))
	for k, v := range s.Serials {
		cp := *v
		serials[k] = &cp
	}
	links := make(map[id.ID][]id.ID, len(s.Links))
	for k, v := range s.Links {
		links[k] = append([]id.ID(nil), v...)
	}
	transfers := make(map[id.ID]*inventory.Transfer, len(s.Transfers))
	for k, v := range s.Transfers {
		cp := *v
		transfers[k] = &cp
	}
	return func() {
		s.Increments = incs
		s.Serials = serials
		s.Links = links
		s.Transfers = transfers
	}
}

// IncrementRepo returns the increment repository view.
func (s *Store) IncrementRepo() inventory.IncrementRepository { return (*increments)(s) }

// SerialRepo returns the serial repository view.
func (s *Store) SerialRepo() inventory.SerialRepository { return (*serials)(s) }

// TransferRepo returns the transfer repository view.
func (s *Store) TransferRepo() inventory.TransferRepository { return (*transfers)(s) }

// LiveTransfers returns the count of transfers that are not tombstoned.
func (s *Store) LiveTransfers() int {
	n := 0
	for _, t := range s.Transfers {
		if !t.IsDeleted() {
			n++
		}
	}
	return n
}

type increments Store

func (s *increments) Create(_ context.Context, inc *inventory.Increment) error {
	s.Increments = append(s.Increments, *inc)
	return nil
}

func (s *increments) GetForUpdate(_ context.Context, incrementID id.ID) (*inventory.Increment, error) {
	for _, inc := range s.Increments {
		if inc.ID == incrementID && !inc.IsDeleted() {
			cp := inc
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("inventory increment", incrementID)
}

func (s *increments) MarkDeleted(_ context.Context, incrementID id.ID, at time.Time) error {
	for i := range s.Increments {
		if s.Increments[i].ID == incrementID {
			s.Increments[i].DeletedAt = &at
			return nil
		}
	}
	return apperror.NewNotFound("inventory increment", incrementID)
}

func (s *increments) SumQuantity(_ context.Context, productID, locationID id.ID) (int64, error) {
	var sum int64
	for _, inc := range s.Increments {
		if !inc.IsDeleted() && inc.ProductID == productID && inc.LocationID == locationID {
			sum += inc.Amount
		}
	}
	return sum, nil
}

func (s *increments) SumByProduct(_ context.Context, productID id.ID) (map[id.ID]int64, error) {
	out := make(map[id.ID]int64)
	for _, inc := range s.Increments {
		if !inc.IsDeleted() && inc.ProductID == productID {
			out[inc.LocationID] += inc.Amount
		}
	}
	return out, nil
}

func (s *increments) ProductsChangedSince(_ context.Context, since time.Time) ([]id.ID, error) {
	seen := make(map[id.ID]bool)
	var out []id.ID
	for _, inc := range s.Increments {
		changed := inc.CreatedAt.After(since) || (inc.DeletedAt != nil && inc.DeletedAt.After(since))
		if changed && !seen[inc.ProductID] {
			seen[inc.ProductID] = true
			out = append(out, inc.ProductID)
		}
	}
	return out, nil
}

func (s *increments) ListBySerial(_ context.Context, serialID id.ID) ([]inventory.Increment, error) {
	var out []inventory.Increment
	for _, inc := range s.Increments {
		for _, sid := range s.Links[inc.ID] {
			if sid == serialID {
				out = append(out, inc)
				break
			}
		}
	}
	return out, nil
}

type serials Store

func (s *serials) LockByNumbers(_ context.Context, productID id.ID, numbers []string) (map[string]*inventory.SerialNumber, error) {
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	out := make(map[string]*inventory.SerialNumber)
	for _, sn := range s.Serials {
		if sn.ProductID == productID && want[sn.SerialNumber] {
			cp := *sn
			out[sn.SerialNumber] = &cp
		}
	}
	return out, nil
}

func (s *serials) Find(_ context.Context, productID id.ID, number string) (*inventory.SerialNumber, error) {
	for _, sn := range s.Serials {
		if sn.ProductID == productID && sn.SerialNumber == number {
			cp := *sn
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("serial number", number)
}

func (s *serials) Create(_ context.Context, sn *inventory.SerialNumber) error {
	for _, existing := range s.Serials {
		if existing.ProductID == sn.ProductID && existing.SerialNumber == sn.SerialNumber {
			return apperror.NewDuplicate("serial number", "serialNumber", sn.SerialNumber)
		}
	}
	cp := *sn
	s.Serials[sn.ID] = &cp
	return nil
}

func (s *serials) Update(_ context.Context, sn *inventory.SerialNumber) error {
	if _, ok := s.Serials[sn.ID]; !ok {
		return apperror.NewNotFound("serial number", sn.ID)
	}
	cp := *sn
	s.Serials[sn.ID] = &cp
	return nil
}

func (s *serials) Link(_ context.Context, incrementID id.ID, serialIDs []id.ID) error {
	s.Links[incrementID] = append(s.Links[incrementID], serialIDs...)
	return nil
}

func (s *serials) ListByIncrement(_ context.Context, incrementID id.ID) ([]*inventory.SerialNumber, error) {
	var out []*inventory.SerialNumber
	for _, sid := range s.Links[incrementID] {
		cp := *s.Serials[sid]
		out = append(out, &cp)
	}
	return out, nil
}

type transfers Store

func (s *transfers) Create(_ context.Context, t *inventory.Transfer) error {
	cp := *t
	s.Transfers[t.ID] = &cp
	return nil
}

func (s *transfers) Update(_ context.Context, t *inventory.Transfer) error {
	if _, ok := s.Transfers[t.ID]; !ok {
		return apperror.NewNotFound("inventory transfer", t.ID)
	}
	cp := *t
	s.Transfers[t.ID] = &cp
	return nil
}

func (s *transfers) GetByID(_ context.Context, transferID id.ID) (*inventory.Transfer, error) {
	t, ok := s.Transfers[transferID]
	if !ok || t.IsDeleted() {
		return nil, apperror.NewNotFound("inventory transfer", transferID)
	}
	cp := *t
	return &cp, nil
}

func (s *transfers) GetForUpdate(ctx context.Context, transferID id.ID) (*inventory.Transfer, error) {
	return s.GetByID(ctx, transferID)
}

func (s *transfers) ListByProduct(_ context.Context, productID id.ID) ([]*inventory.Transfer, error) {
	var out []*inventory.Transfer
	for _, t := range s.Transfers {
		if !t.IsDeleted() && t.ProductID == productID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

// Cache is an in-memory QuantityCache that counts invalidations.
type Cache struct {
	Values        map[id.ID]map[id.ID]int64
	Invalidations int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{Values: make(map[id.ID]map[id.ID]int64)}
}

func (c *Cache) Get(_ context.Context, productID, locationID id.ID) (int64, bool, error) {
	qty, ok := c.Values[productID][locationID]
	return qty, ok, nil
}

func (c *Cache) Set(_ context.Context, productID, locationID id.ID, qty int64) error {
	if c.Values[productID] == nil {
		c.Values[productID] = make(map[id.ID]int64)
	}
	c.Values[productID][locationID] = qty
	return nil
}

func (c *Cache) InvalidateProduct(_ context.Context, productID id.ID) error {
	delete(c.Values, productID)
	c.Invalidations++
	return nil
}

func (c *Cache) ReplaceProduct(_ context.Context, productID id.ID, quantities map[id.ID]int64) error {
	fresh := make(map[id.ID]int64, len(quantities))
	for k, v := range quantities {
		fresh[k] = v
	}
	c.Values[productID] = fresh
	return nil
}

var _ inventory.QuantityCache = (*Cache)(nil)
