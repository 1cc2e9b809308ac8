// Package audit defines the entity log: user and system notes attached to
// master data and ledger entities.
package audit

import (
	"context"
	"time"

	appctx "repairpos/internal/core/context"
	"repairpos/internal/core/id"
)

// Action is the kind of change an entry describes.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
	ActionDefault Action = "set_default"
)

// Entry is a single entity log record.
type Entry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	// UserID is nil for system notes.
	UserID     *id.ID
	UserNote   string
	SystemNote string
	// Changes is an arbitrary JSON-serializable payload.
	Changes   map[string]any
	CreatedAt time.Time
}

// NewEntry builds an entry attributed to the acting user in ctx, if any.
func NewEntry(ctx context.Context, entityType string, entityID id.ID, action Action) Entry {
	return Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     id.Ptr(appctx.ActorID(ctx)),
		CreatedAt:  time.Now().UTC(),
	}
}

// Recorder persists entity log entries. Implementations must write in the
// transaction carried by ctx so the entry shares the fate of the change.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in a slice. Test helper.
type Memory struct {
	Entries []Entry
}

// Record implements Recorder.
func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

// Snapshot implements txtest.Snapshotter.
func (m *Memory) Snapshot() func() {
	saved := append([]Entry(nil), m.Entries...)
	return func() { m.Entries = saved }
}
