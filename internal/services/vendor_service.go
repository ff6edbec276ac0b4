package services

import (
	"context"
	"errors"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
)

type VendorInput struct {
	CompanyName   string `json:"company_name" validate:"required,min=1,max=100"`
	ContactPerson string `json:"contact_person" validate:"required,min=1,max=100"`
	Email         string `json:"email" validate:"required,mail"`
	Phone         string `json:"phone" validate:"max=20"`
	Address       string `json:"address" validate:"max=500"`
	Specialty     string `json:"specialty" validate:"max=100"`
}

func (in VendorInput) vendor() domain.Vendor {
	return domain.Vendor{
		CompanyName:   strings.TrimSpace(in.CompanyName),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		Specialty:     strings.TrimSpace(in.Specialty),
	}
}

type LinkInput struct {
	InventoryID int64 `json:"inventory_id" validate:"required,gt=0"`
	IsPrimary   bool  `json:"is_primary"`
}

type ContactInput struct {
	VendorID     int64   `json:"vendor_id" validate:"required,gt=0"`
	InventoryIDs []int64 `json:"inventory_ids" validate:"required,min=1,dive,gt=0"`
	Message      string  `json:"message" validate:"required,min=1,max=1000"`
	ContactType  string  `json:"contact_type" validate:"required,oneof=email phone in_person"`
}

// ContactResult is what a vendor contact produced.
type ContactResult struct {
	Vendor       *domain.Vendor         `json:"vendor"`
	Items        []domain.InventoryItem `json:"items"`
	Notification *domain.Notification   `json:"notification"`
}

// Deliverer pushes an already stored notification.
type Deliverer interface {
	Deliver(ctx context.Context, n *domain.Notification)
}

type VendorService struct {
	Vendors *repos.VendorRepo
	Inv     *repos.InventoryRepo
	Notify  Deliverer
}

func NewVendorService(vendors *repos.VendorRepo, inv *repos.InventoryRepo, notify Deliverer) *VendorService {
	return &VendorService{Vendors: vendors, Inv: inv, Notify: notify}
}

const duplicateVendor = "Vendor with this email already exists"

func (s *VendorService) List() ([]domain.Vendor, error) { return s.Vendors.List() }

func (s *VendorService) Get(id int64) (*domain.Vendor, error) {
	v, err := s.Vendors.Get(id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, notFound("Vendor not found")
	}
	return v, err
}

func (s *VendorService) Create(in VendorInput) (*domain.Vendor, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	v := in.vendor()
	if err := s.Vendors.Create(&v); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, conflict(duplicateVendor)
		}
		return nil, err
	}
	return s.Get(v.ID)
}

func (s *VendorService) Update(id int64, in VendorInput) (*domain.Vendor, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	v := in.vendor()
	v.ID = id
	if err := s.Vendors.Update(&v); err != nil {
		switch {
		case errors.Is(err, repos.ErrConflict):
			return nil, conflict(duplicateVendor)
		case errors.Is(err, repos.ErrNotFound):
			return nil, notFound("Vendor not found")
		}
		return nil, err
	}
	return s.Get(id)
}

// Delete removes the vendor with its links, contact history and notifications.
func (s *VendorService) Delete(id int64) (string, error) {
	v, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if err := s.Vendors.Delete(id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return "", notFound("Vendor not found")
		}
		return "", err
	}
	return v.CompanyName, nil
}

func (s *VendorService) Search(q string) ([]domain.Vendor, error) { return s.Vendors.Search(q) }

func (s *VendorService) BySpecialty(specialty string) ([]domain.Vendor, error) {
	return s.Vendors.BySpecialty(strings.TrimSpace(specialty))
}

func (s *VendorService) Items(vendorID int64) ([]domain.VendorItem, error) {
	if _, err := s.Get(vendorID); err != nil {
		return nil, err
	}
	return s.Vendors.Items(vendorID)
}

func (s *VendorService) LinkItem(vendorID int64, in LinkInput) error {
	if err := check(in); err != nil {
		return err
	}
	if _, err := s.Get(vendorID); err != nil {
		return err
	}
	if _, err := s.Inv.Get(in.InventoryID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return notFound("Inventory item not found")
		}
		return err
	}
	return s.Vendors.LinkItem(vendorID, in.InventoryID, in.IsPrimary)
}

// Contact records an outreach about one or more items and notifies the caller.
// History rows and the notification commit together; the push happens after.
func (s *VendorService) Contact(ctx context.Context, userID int64, in ContactInput) (*ContactResult, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := check(in); err != nil {
		return nil, err
	}
	v, err := s.Get(in.VendorID)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(in.InventoryIDs)
	items, err := s.Inv.ByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		return nil, invalid("inventory_ids", "Some inventory items not found")
	}
	n, err := s.Vendors.RecordContact(repos.Contact{
		UserID: userID, Vendor: *v, Items: items, Message: in.Message, Type: domain.ContactType(in.ContactType),
	})
	if err != nil {
		return nil, err
	}
	if s.Notify != nil {
		s.Notify.Deliver(ctx, n)
	}
	return &ContactResult{Vendor: v, Items: items, Notification: n}, nil
}

func (s *VendorService) ContactHistory(userID, vendorID int64) ([]domain.ContactRecord, error) {
	return s.Vendors.ContactHistory(userID, vendorID)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
