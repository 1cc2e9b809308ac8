// Package saletest provides an in-memory sale repository for tests.
package saletest

import (
	"context"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/documents/sale"
)

// Store keeps sales in maps. Lines are stored apart from headers, as the
// database does.
type Store struct {
	Headers map[id.ID]sale.Sale
	Lines   map[id.ID][]sale.SaleLine
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Headers: make(map[id.ID]sale.Sale),
		Lines:   make(map[id.ID][]sale.SaleLine),
	}
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	headers := make(map[id.ID]sale.Sale, len(s.Headers))
	for k, v := range s.Headers {
		headers[k] = v
	}
	lines := make(map[id.ID][]sale.SaleLine, len(s.Lines))
	for k, v := range s.Lines {
		lines[k] = append([]sale.SaleLine(nil), v...)
	}
	return func() {
		s.Headers = headers
		s.Lines = lines
	}
}

func (s *Store) Create(_ context.Context, doc *sale.Sale) error {
	if _, ok := s.Headers[doc.ID]; ok {
		return apperror.NewDuplicate("sale", "id", doc.ID.String())
	}
	s.Headers[doc.ID] = header(doc)
	return nil
}

func (s *Store) Update(_ context.Context, doc *sale.Sale) error {
	stored, ok := s.Headers[doc.ID]
	if !ok {
		return apperror.NewNotFound("sale", doc.ID)
	}
	if stored.Version != doc.StoredVersion() {
		return apperror.NewConcurrentModification("sale", doc.ID)
	}
	s.Headers[doc.ID] = header(doc)
	return nil
}

func (s *Store) GetByID(_ context.Context, saleID id.ID) (*sale.Sale, error) {
	stored, ok := s.Headers[saleID]
	if !ok || stored.IsDeleted() {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return &stored, nil
}

func (s *Store) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return s.GetByID(ctx, saleID)
}

func (s *Store) GetLines(_ context.Context, saleID id.ID) ([]sale.SaleLine, error) {
	return append([]sale.SaleLine(nil), s.Lines[saleID]...), nil
}

func (s *Store) SaveLines(_ context.Context, saleID id.ID, lines []sale.SaleLine) error {
	s.Lines[saleID] = append([]sale.SaleLine(nil), lines...)
	return nil
}

func header(doc *sale.Sale) sale.Sale {
	h := *doc
	h.Lines = nil
	return h
}

var _ sale.Repository = (*Store)(nil)
