// Package entity holds the persisted base types shared by catalogs,
// documents and ledger rows.
package entity

import (
	"context"
	"strings"
	"time"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
)

// Validatable checks the in-memory invariants of an entity.
type Validatable interface {
	Validate(ctx context.Context) error
}

// Tombstone marks a row as logically removed. Ledger rows are never
// physically deleted, so every sum must skip tombstoned rows.
type Tombstone struct {
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the row is tombstoned.
func (t *Tombstone) IsDeleted() bool { return t.DeletedAt != nil }

// MarkDeleted tombstones the row now.
func (t *Tombstone) MarkDeleted() {
	now := time.Now().UTC()
	t.DeletedAt = &now
}

// Revive clears the tombstone.
func (t *Tombstone) Revive() { t.DeletedAt = nil }

// BaseEntity carries the key, the optimistic lock version and timestamps.
type BaseEntity struct {
	ID        id.ID     `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Tombstone
}

// NewBaseEntity returns version 1 with a fresh UUIDv7.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: id.New(), Version: 1, CreatedAt: now, UpdatedAt: now}
}

// Touch bumps the version before an update.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// StoredVersion is the version an update expects to find in storage,
// one behind the touched in-memory copy.
func (b *BaseEntity) StoredVersion() int { return b.Version - 1 }

// Catalog is master data with a display name (currencies, locations).
type Catalog struct {
	BaseEntity

	Name string `db:"name" json:"name"`
}

// NewCatalog trims name and assigns a new identity.
func NewCatalog(name string) Catalog {
	return Catalog{BaseEntity: NewBaseEntity(), Name: strings.TrimSpace(name)}
}

// Validate requires a non-blank name.
func (c *Catalog) Validate(context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Document is a numbered business transaction. Once completed it has moved
// stock and is frozen.
type Document struct {
	BaseEntity

	Number    string    `db:"number" json:"number"`
	Date      time.Time `db:"date" json:"date"`
	Completed bool      `db:"completed" json:"completed"`
	CreatedBy *id.ID    `db:"created_by" json:"createdBy,omitempty"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
}

// NewDocument dates the document now and records who created it.
func NewDocument(createdBy id.ID) Document {
	return Document{
		BaseEntity: NewBaseEntity(),
		Date:       time.Now().UTC(),
		CreatedBy:  id.Ptr(createdBy),
	}
}

// Validate requires a business date.
func (d *Document) Validate(context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return nil
}

// CanModify fails with DOCUMENT_COMPLETED once the document is frozen.
func (d *Document) CanModify() error {
	if !d.Completed {
		return nil
	}
	return apperror.NewState(apperror.CodeDocumentCompleted, "cannot modify a completed document").
		WithDetail("documentId", d.ID.String())
}

// MarkCompleted freezes the document and bumps its version.
func (d *Document) MarkCompleted() {
	d.Completed = true
	d.Touch()
}
