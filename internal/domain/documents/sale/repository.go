package sale

import (
	"context"

	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/monetary"
)

// Repository stores sale headers and their lines.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	// Update writes the header; it fails with a concurrent modification
	// error unless the stored version is s.Version-1.
	Update(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	GetLines(ctx context.Context, saleID id.ID) ([]SaleLine, error)
	// SaveLines replaces the stored line set.
	SaveLines(ctx context.Context, saleID id.ID, lines []SaleLine) error
}

// Record is the flat storage shape of a sale header.
type Record struct {
	entity.Document
	LocationID id.ID `db:"location_id"`
	monetary.Snapshot
	monetary.TotalsRecord
}

// LineRecord is the flat storage shape of a sale line.
type LineRecord struct {
	ID     id.ID `db:"line_id"`
	SaleID id.ID `db:"sale_id"`
	LineNo int   `db:"line_no"`
	monetary.LineRecord
}

// ToRecord flattens the header. Totals must be current.
func (s *Sale) ToRecord() (Record, error) {
	totals, err := s.Money.TotalsRecord()
	if err != nil {
		return Record{}, err
	}
	return Record{
		Document:     s.Document,
		LocationID:   s.LocationID,
		Snapshot:     s.Money.Snapshot(),
		TotalsRecord: totals,
	}, nil
}

// FromRecord restores a header without lines.
func FromRecord(rec Record) *Sale {
	return &Sale{
		Document:   rec.Document,
		LocationID: rec.LocationID,
		Money:      monetary.DocumentFromRecord(rec.Snapshot, rec.TotalsRecord),
	}
}

// ToLineRecords flattens lines for storage.
func ToLineRecords(saleID id.ID, lines []SaleLine) []LineRecord {
	out := make([]LineRecord, len(lines))
	for i := range lines {
		out[i] = LineRecord{
			ID:         lines[i].ID,
			SaleID:     saleID,
			LineNo:     lines[i].LineNo,
			LineRecord: lines[i].Record(),
		}
	}
	return out
}

// LinesFromRecords rebuilds lines, recomputing their amounts.
func LinesFromRecords(recs []LineRecord) ([]SaleLine, error) {
	out := make([]SaleLine, 0, len(recs))
	for _, rec := range recs {
		line, err := monetary.LineFromRecord(rec.LineRecord)
		if err != nil {
			return nil, err
		}
		out = append(out, SaleLine{ID: rec.ID, LineNo: rec.LineNo, Line: line})
	}
	return out, nil
}
