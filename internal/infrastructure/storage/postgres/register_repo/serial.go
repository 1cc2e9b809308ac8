package register_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/infrastructure/storage/postgres"
)

var (
	_ inventory.SerialRepository = (*SerialRepo)(nil)

	serialCols = postgres.ExtractDBColumns[inventory.SerialNumber]()
)

type serialLink struct {
	IncrementID id.ID `db:"increment_id"`
	SerialID    id.ID `db:"serial_id"`
}

// SerialRepo implements inventory.SerialRepository.
type SerialRepo struct {
	repo
	inserter *postgres.BatchInserter
}

// NewSerialRepo creates a serial number repository.
func NewSerialRepo(txManager *postgres.TxManager) *SerialRepo {
	return &SerialRepo{
		repo:     newRepo(txManager),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// LockByNumbers takes row locks in serial number order so two transfers
// touching the same serials cannot deadlock.
func (r *SerialRepo) LockByNumbers(ctx context.Context, productID id.ID, numbers []string) (map[string]*inventory.SerialNumber, error) {
	out := make(map[string]*inventory.SerialNumber, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}

	var rows []*inventory.SerialNumber
	if err := r.selectAll(ctx, &rows, r.lockQuery(productID, numbers), "serial numbers"); err != nil {
		return nil, err
	}
	for _, sn := range rows {
		out[sn.SerialNumber] = sn
	}
	return out, nil
}

func (r *SerialRepo) lockQuery(productID id.ID, numbers []string) squirrel.SelectBuilder {
	return r.builder.Select(serialCols...).
		From(serialNumbersTable).
		Where(squirrel.Eq{"product_id": productID, "serial_number": numbers}).
		OrderBy("serial_number").
		Suffix("FOR UPDATE")
}

func (r *SerialRepo) Find(ctx context.Context, productID id.ID, number string) (*inventory.SerialNumber, error) {
	q := r.builder.Select(serialCols...).
		From(serialNumbersTable).
		Where(squirrel.Eq{"product_id": productID, "serial_number": number})

	var sn inventory.SerialNumber
	if err := r.get(ctx, &sn, q, "serial number", number); err != nil {
		return nil, err
	}
	return &sn, nil
}

func (r *SerialRepo) Create(ctx context.Context, sn *inventory.SerialNumber) error {
	q := r.builder.Insert(serialNumbersTable).SetMap(postgres.StructToMap(sn))
	_, err := r.exec(ctx, q, "serial number", sn.SerialNumber)
	return err
}

func (r *SerialRepo) Update(ctx context.Context, sn *inventory.SerialNumber) error {
	q := r.builder.Update(serialNumbersTable).
		Set("location_id", sn.LocationID).
		Set("is_sold", sn.IsSold).
		Set("updated_at", sn.UpdatedAt).
		Set("deleted_at", sn.DeletedAt).
		Where(squirrel.Eq{"id": sn.ID})

	n, err := r.exec(ctx, q, "serial number", sn.SerialNumber)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("serial number", sn.ID)
	}
	return nil
}

// Link writes the pivot rows with COPY.
func (r *SerialRepo) Link(ctx context.Context, incrementID id.ID, serialIDs []id.ID) error {
	links := make([]serialLink, len(serialIDs))
	for i, sid := range serialIDs {
		links[i] = serialLink{IncrementID: incrementID, SerialID: sid}
	}
	cols, rows := postgres.StructRows(links)
	return r.inserter.Insert(ctx, incrementSerials, cols, rows)
}

func (r *SerialRepo) ListByIncrement(ctx context.Context, incrementID id.ID) ([]*inventory.SerialNumber, error) {
	cols := make([]string, len(serialCols))
	for i, c := range serialCols {
		cols[i] = "sn." + c
	}
	q := r.builder.Select(cols...).
		From(serialNumbersTable + " sn").
		Join(incrementSerials + " l ON l.serial_id = sn.id").
		Where(squirrel.Eq{"l.increment_id": incrementID}).
		OrderBy("sn.serial_number")

	var out []*inventory.SerialNumber
	if err := r.selectAll(ctx, &out, q, "increment serials"); err != nil {
		return nil, err
	}
	return out, nil
}
