// Package locationtest provides an in-memory location.Repository for tests.
package locationtest

import (
	"context"
	"sort"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/location"
)

// Store keeps locations in a map.
type Store struct {
	Rows map[id.ID]*location.Location
}

// New creates an empty store.
func New() *Store {
	return &Store{Rows: make(map[id.ID]*location.Location)}
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	rows := make(map[id.ID]*location.Location, len(s.Rows))
	for k, v := range s.Rows {
		cp := *v
		rows[k] = &cp
	}
	return func() { s.Rows = rows }
}

func (s *Store) Create(_ context.Context, loc *location.Location) error {
	cp := *loc
	s.Rows[loc.ID] = &cp
	return nil
}

func (s *Store) Update(_ context.Context, loc *location.Location) error {
	if _, ok := s.Rows[loc.ID]; !ok {
		return apperror.NewNotFound("location", loc.ID)
	}
	cp := *loc
	s.Rows[loc.ID] = &cp
	return nil
}

func (s *Store) GetByID(_ context.Context, locationID id.ID) (*location.Location, error) {
	return s.find(func(l *location.Location) bool { return l.ID == locationID }, locationID)
}

func (s *Store) GetForUpdate(ctx context.Context, locationID id.ID) (*location.Location, error) {
	return s.GetByID(ctx, locationID)
}

func (s *Store) GetBySystemKey(_ context.Context, key location.SystemKey) (*location.Location, error) {
	return s.find(func(l *location.Location) bool { return l.Is(key) }, key)
}

func (s *Store) GetDefault(_ context.Context) (*location.Location, error) {
	return s.find(func(l *location.Location) bool { return l.DefaultLocation }, "default")
}

func (s *Store) ListSelectable(_ context.Context) ([]*location.Location, error) {
	var out []*location.Location
	for _, l := range s.Rows {
		if !l.IsDeleted() && !l.SystemUseOnly {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ClearDefault(_ context.Context, keepID id.ID) error {
	for _, l := range s.Rows {
		if l.ID != keepID {
			l.DefaultLocation = false
		}
	}
	return nil
}

// MustSystem returns a system location or panics. Test helper.
func (s *Store) MustSystem(key location.SystemKey) *location.Location {
	loc, err := s.GetBySystemKey(context.Background(), key)
	if err != nil {
		panic(err)
	}
	return loc
}

// MustDefault returns the default location or panics. Test helper.
func (s *Store) MustDefault() *location.Location {
	loc, err := s.GetDefault(context.Background())
	if err != nil {
		panic(err)
	}
	return loc
}

func (s *Store) find(match func(*location.Location) bool, key any) (*location.Location, error) {
	for _, l := range s.Rows {
		if !l.IsDeleted() && match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("location", key)
}

var _ location.Repository = (*Store)(nil)
