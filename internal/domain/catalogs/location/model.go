// Package location provides the inventory location catalog.
// A fixed set of system locations records why stock is where it is
// (sold, in transit, returned); they are never offered to end users.
package location

import (
	"context"

	"repairpos/internal/core/entity"
)

// SystemKey identifies a system location independently of its display name.
type SystemKey string

const (
	KeyInTransit      SystemKey = "in_transit"
	KeyTransferredOut SystemKey = "transferred_out"
	KeyTransferredIn  SystemKey = "transferred_in"
	KeyStock          SystemKey = "stock"
	KeySold           SystemKey = "sold"
	KeyReturned       SystemKey = "returned"
	KeyPOReceive      SystemKey = "po_receive"
	KeyPOReturn       SystemKey = "po_return"
	KeyUnknown        SystemKey = "unknown"
)

// SystemLocations lists every system location with its display name.
var SystemLocations = []struct {
	Key  SystemKey
	Name string
}{
	{KeyInTransit, "In Transit"},
	{KeyTransferredOut, "Transferred Out"},
	{KeyTransferredIn, "Transferred In"},
	{KeyStock, "Stock"},
	{KeySold, "Sold"},
	{KeyReturned, "Returned"},
	{KeyPOReceive, "Purchase Order Receive"},
	{KeyPOReturn, "Purchase Order Return"},
	{KeyUnknown, "Unknown"},
}

// DefaultLocationName is the name of the user-visible default location.
const DefaultLocationName = "Stock"

// Location is a place where inventory can be.
type Location struct {
	entity.Catalog

	DefaultLocation bool `db:"default_location" json:"defaultLocation"`

	// SystemUseOnly hides the location from user-facing pickers
	SystemUseOnly bool `db:"system_use_only" json:"systemUseOnly"`

	CanBeRemoved bool `db:"can_be_removed" json:"canBeRemoved"`

	// SystemKey is set on system locations only
	SystemKey *SystemKey `db:"system_key" json:"systemKey,omitempty"`
}

// NewLocation creates a removable, user-visible location.
func NewLocation(name string) *Location {
	return &Location{
		Catalog:      entity.NewCatalog(name),
		CanBeRemoved: true,
	}
}

// NewSystemLocation creates a hidden, permanent location.
func NewSystemLocation(key SystemKey, name string) *Location {
	return &Location{
		Catalog:       entity.NewCatalog(name),
		SystemUseOnly: true,
		SystemKey:     &key,
	}
}

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	return l.Catalog.Validate(ctx)
}

// Is reports whether l is the system location with the given key.
func (l *Location) Is(key SystemKey) bool {
	return l.SystemKey != nil && *l.SystemKey == key
}
