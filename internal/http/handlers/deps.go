package handlers

import (
	"net/http"

	"stockroom/internal/services"
)

// Services are the application services the API exposes.
type Services struct {
	Auth          *services.AuthService
	Inventory     *services.InventoryService
	Vendors       *services.VendorService
	Notifications *services.NotificationService
}

type Deps struct {
	Auth                *services.AuthService
	AuthHandler         *AuthHandler
	InventoryHandler    *InventoryHandler
	VendorHandler       *VendorHandler
	NotificationHandler *NotificationHandler
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewDeps(s Services, metrics http.Handler) *Deps {
	return &Deps{
		Auth:                s.Auth,
		AuthHandler:         &AuthHandler{Auth: s.Auth},
		InventoryHandler:    &InventoryHandler{Inv: s.Inventory},
		VendorHandler:       &VendorHandler{Vendors: s.Vendors},
		NotificationHandler: &NotificationHandler{Notes: s.Notifications},
		Metrics:             metrics,
	}
}
