package domain

import "time"

type NotificationType string

const (
	NotificationLowStock      NotificationType = "low_stock"
	NotificationVendorContact NotificationType = "vendor_contact"
	NotificationSystem        NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLowStock, NotificationVendorContact, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	ID          int64            `db:"id" json:"id"`
	Type        NotificationType `db:"type" json:"type"`
	Message     string           `db:"message" json:"message"`
	UserID      int64            `db:"user_id" json:"user_id"`
	VendorID    *int64           `db:"vendor_id" json:"vendor_id"`
	InventoryID *int64           `db:"inventory_id" json:"inventory_id"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`

	VendorName    *string `db:"vendor_name" json:"vendor_name,omitempty"`
	InventoryName *string `db:"inventory_name" json:"inventory_name,omitempty"`
}

// NewNotification is the input to the notification store.
type NewNotification struct {
	Type        NotificationType
	Message     string
	UserID      int64
	VendorID    *int64
	InventoryID *int64
}
