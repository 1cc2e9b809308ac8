package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"repairpos/internal/core/id"
	"repairpos/internal/domain/audit"
)

const entityLogTable = "sys_entity_log"

// CompressionAlgo names the codec applied to a stored change payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are
// stored zstd-compressed.
const DefaultCompressThreshold = 4 * 1024

var _ audit.Recorder = (*EntityLog)(nil)

// entityLogRow is the stored form of audit.Entry.
type entityLogRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            *id.ID          `db:"user_id"`
	UserNote          string          `db:"user_note"`
	SystemNote        string          `db:"system_note"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// EntityLog writes audit entries to sys_entity_log inside the caller's
// transaction.
type EntityLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewEntityLog creates the entity log recorder.
func NewEntityLog(txManager *TxManager) (*EntityLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &EntityLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record implements audit.Recorder.
func (l *EntityLog) Record(ctx context.Context, entry audit.Entry) error {
	row, err := l.encode(entry)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert(entityLogTable).
		SetMap(StructToMap(row)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record %s log entry: %w", entry.EntityType, err)
	}
	return nil
}

// History returns the log of one entity, oldest first.
func (l *EntityLog) History(ctx context.Context, entityType string, entityID id.ID) ([]audit.Entry, error) {
	query, args, err := sq.Select(ExtractDBColumns[entityLogRow]()...).
		From(entityLogTable).
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at", "id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []entityLogRow
	if err := pgxscan.Select(ctx, l.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := l.decode(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *EntityLog) encode(entry audit.Entry) (entityLogRow, error) {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	row := entityLogRow{
		ID:              entry.ID,
		EntityType:      entry.EntityType,
		EntityID:        entry.EntityID,
		Action:          string(entry.Action),
		UserID:          entry.UserID,
		UserNote:        entry.UserNote,
		SystemNote:      entry.SystemNote,
		CompressionAlgo: CompressionNone,
		CreatedAt:       entry.CreatedAt,
	}
	if len(entry.Changes) == 0 {
		return row, nil
	}

	payload, err := json.Marshal(entry.Changes)
	if err != nil {
		return entityLogRow{}, fmt.Errorf("marshal changes: %w", err)
	}
	if len(payload) > l.compressThreshold {
		row.ChangesCompressed = l.encoder.EncodeAll(payload, nil)
		row.CompressionAlgo = CompressionZstd
		return row, nil
	}
	row.Changes = payload
	return row, nil
}

func (l *EntityLog) decode(row entityLogRow) (audit.Entry, error) {
	e := audit.Entry{
		ID:         row.ID,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Action:     audit.Action(row.Action),
		UserID:     row.UserID,
		UserNote:   row.UserNote,
		SystemNote: row.SystemNote,
		CreatedAt:  row.CreatedAt,
	}

	payload := []byte(row.Changes)
	if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
		var err error
		payload, err = l.decoder.DecodeAll(row.ChangesCompressed, nil)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("decompress changes: %w", err)
		}
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Changes); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	return e, nil
}
