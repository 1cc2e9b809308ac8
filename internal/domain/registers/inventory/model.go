// Package inventory provides the inventory ledger and transfer orchestrator.
//
// Quantity is never stored: the quantity of a product at a location is the
// sum of its live increments. Increments and transfers are append-only and
// are tombstoned, never edited.
package inventory

import (
	"time"

	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
)

// Increment is a signed quantity change of a product at a location.
type Increment struct {
	ID         id.ID     `db:"id" json:"id"`
	ProductID  id.ID     `db:"product_id" json:"productId"`
	LocationID id.ID     `db:"location_id" json:"locationId"`
	Amount     int64     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	entity.Tombstone
}

// SerialNumber tracks one physical unit of a serialized product.
// A tombstoned serial has been dissolved by an adjustment and may be revived.
type SerialNumber struct {
	ID           id.ID     `db:"id" json:"id"`
	SerialNumber string    `db:"serial_number" json:"serialNumber"`
	ProductID    id.ID     `db:"product_id" json:"productId"`
	LocationID   id.ID     `db:"location_id" json:"locationId"`
	IsSold       bool      `db:"is_sold" json:"isSold"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
	entity.Tombstone
}

// TransferType classifies a transfer.
type TransferType string

const (
	TypeTransfer           TransferType = "location_transfer"
	TypeAdjustment         TransferType = "adjustment"
	TypeMultiStoreTransfer TransferType = "multistore_transfer"
)

// IsPaired reports whether the type moves stock between two locations.
func (t TransferType) IsPaired() bool {
	return t == TypeTransfer || t == TypeMultiStoreTransfer
}

// LabelPrefix returns the number prefix: T, A or MST.
func (t TransferType) LabelPrefix() string {
	switch t {
	case TypeAdjustment:
		return "A"
	case TypeMultiStoreTransfer:
		return "MST"
	default:
		return "T"
	}
}

// Transfer groups the increments of one stock movement.
// Adjustments have no "from" side; paired types have both, with amounts of
// equal magnitude and opposite sign.
type Transfer struct {
	ID              id.ID        `db:"id" json:"id"`
	Number          string       `db:"number" json:"number"`
	Type            TransferType `db:"type" json:"type"`
	ProductID       id.ID        `db:"product_id" json:"productId"`
	FromLocationID  *id.ID       `db:"from_location_id" json:"fromLocationId,omitempty"`
	FromIncrementID *id.ID       `db:"from_increment_id" json:"fromIncrementId,omitempty"`
	ToLocationID    id.ID        `db:"to_location_id" json:"toLocationId"`
	ToIncrementID   id.ID        `db:"to_increment_id" json:"toIncrementId"`
	UserID          id.ID        `db:"user_id" json:"userId"`
	Notes           string       `db:"notes" json:"notes"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
	entity.Tombstone
}
