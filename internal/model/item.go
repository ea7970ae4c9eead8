package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// ItemType enumerates the kinds of rentable assets.
type ItemType string

const (
	ItemVehicle    ItemType = "vehicle"
	ItemProperty   ItemType = "property"
	ItemBoat       ItemType = "boat"
	ItemEquipment  ItemType = "equipment"
	ItemExperience ItemType = "experience"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemVehicle, ItemProperty, ItemBoat, ItemEquipment, ItemExperience:
		return true
	}
	return false
}

// ItemStatus is the administrative status of an item. Whether an item is
// free on given dates is derived from bookings, never stored here.
type ItemStatus string

const (
	ItemActive      ItemStatus = "ACTIVE"
	ItemInactive    ItemStatus = "INACTIVE"
	ItemMaintenance ItemStatus = "MAINTENANCE"
)

func (s ItemStatus) Valid() bool {
	return s == ItemActive || s == ItemInactive || s == ItemMaintenance
}

// Item is a rentable asset.
type Item struct {
	ID         uint64          `db:"id" json:"id"`                 // primary key
	TenantID   tenant.ID       `db:"tenant_id" json:"-"`           // owning tenant
	Type       ItemType        `db:"type" json:"type"`             // vehicle, property, ...
	Name       string          `db:"name" json:"name"`             // display name
	BasePrice  decimal.Decimal `db:"base_price" json:"base_price"` // default daily rate
	Status     ItemStatus      `db:"status" json:"status"`         // ACTIVE, INACTIVE or MAINTENANCE
	Attributes Attributes      `db:"attributes" json:"attributes"` // type-specific properties
	Photos     StringList      `db:"photos" json:"photos"`         // storage references
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
