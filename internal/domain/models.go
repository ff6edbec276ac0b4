package domain

import (
	"encoding/json"
	"time"
)

type InventoryItem struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Quantity     int       `db:"quantity" json:"quantity"`
	MinThreshold int       `db:"min_threshold" json:"min_threshold"`
	Unit         string    `db:"unit" json:"unit"`
	Category     string    `db:"category" json:"category"`
	CreatedBy    int64     `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Populated by joins on users; empty when the owner row is gone.
	CreatedByUsername *string `db:"created_by_username" json:"created_by_username,omitempty"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i InventoryItem) IsLowStock() bool { return i.Quantity <= i.MinThreshold }

// MarshalJSON adds the derived is_low_stock flag so it is never stale.
func (i InventoryItem) MarshalJSON() ([]byte, error) {
	type plain InventoryItem
	return json.Marshal(struct {
		plain
		IsLowStock bool `json:"is_low_stock"`
	}{plain(i), i.IsLowStock()})
}

type Vendor struct {
	ID            int64     `db:"id" json:"id"`
	CompanyName   string    `db:"company_name" json:"company_name"`
	ContactPerson string    `db:"contact_person" json:"contact_person"`
	Email         string    `db:"email" json:"email"`
	Phone         string    `db:"phone" json:"phone"`
	Address       string    `db:"address" json:"address"`
	Specialty     string    `db:"specialty" json:"specialty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// VendorItem is an inventory item as supplied by a particular vendor.
type VendorItem struct {
	InventoryItem
	IsPrimary bool `db:"is_primary" json:"is_primary"`
}

func (v VendorItem) MarshalJSON() ([]byte, error) {
	type plain InventoryItem
	return json.Marshal(struct {
		plain
		IsLowStock bool `json:"is_low_stock"`
		IsPrimary  bool `json:"is_primary"`
	}{plain(v.InventoryItem), v.IsLowStock(), v.IsPrimary})
}

type ContactType string

const (
	ContactEmail    ContactType = "email"
	ContactPhone    ContactType = "phone"
	ContactInPerson ContactType = "in_person"
)

type ContactRecord struct {
	ID            int64       `db:"id" json:"id"`
	UserID        int64       `db:"user_id" json:"user_id"`
	VendorID      int64       `db:"vendor_id" json:"vendor_id"`
	InventoryID   int64       `db:"inventory_id" json:"inventory_id"`
	Message       string      `db:"message" json:"message"`
	ContactType   ContactType `db:"contact_type" json:"contact_type"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	VendorName    *string     `db:"vendor_name" json:"vendor_name,omitempty"`
	InventoryName *string     `db:"inventory_name" json:"inventory_name,omitempty"`
}

// DashboardSummary backs the dashboard tiles.
type DashboardSummary struct {
	TotalItems          int `db:"total_items" json:"total_items"`
	LowStockItems       int `db:"low_stock_items" json:"low_stock_items"`
	TotalVendors        int `db:"total_vendors" json:"total_vendors"`
	UnreadNotifications int `db:"unread_notifications" json:"unread_notifications"`
}
