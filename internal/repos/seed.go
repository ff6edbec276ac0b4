package repos

import (
	"fmt"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "Password123"

// Seed inserts demo users, items and vendors when the users table is empty.
// It reports whether anything was written.
func Seed(db *sqlx.DB) (bool, error) {
	users := NewUserRepo(db)
	n, err := users.Count()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := &domain.User{Username: "admin", Email: "admin@stockroom.local", Hash: string(hash), Role: domain.RoleAdmin}
	clerk := &domain.User{Username: "clerk", Email: "clerk@stockroom.local", Hash: string(hash), Role: domain.RoleUser}
	for _, u := range []*domain.User{admin, clerk} {
		if err := users.Create(u); err != nil {
			return false, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	inv := NewInventoryRepo(db)
	items := []*domain.InventoryItem{
		{Name: "USB-C Cable", Description: "1m braided cable", Quantity: 120, MinThreshold: 20, Unit: "pieces", Category: "Accessories", CreatedBy: admin.ID},
		{Name: "Label Printer Tape", Description: "12mm black on white", Quantity: 4, MinThreshold: 10, Unit: "boxes", Category: "Consumables", CreatedBy: admin.ID},
		{Name: "Office Chair", Description: "Mesh back, adjustable", Quantity: 8, MinThreshold: 2, Unit: "units", Category: "Furniture", CreatedBy: clerk.ID},
		{Name: "Cordless Drill", Description: "18V with two batteries", Quantity: 1, MinThreshold: 3, Unit: "units", Category: "Tools", CreatedBy: clerk.ID},
		{Name: "Printer Paper", Description: "A4, 80gsm", Quantity: 35, MinThreshold: 15, Unit: "boxes", Category: "Consumables", CreatedBy: admin.ID},
	}
	for _, it := range items {
		if err := inv.Create(it); err != nil {
			return false, fmt.Errorf("seed item %s: %w", it.Name, err)
		}
	}

	vendors := NewVendorRepo(db)
	vs := []*domain.Vendor{
		{CompanyName: "Northwind Supplies", ContactPerson: "Ana Ruiz", Email: "sales@northwind.example", Phone: "+1-555-0101", Address: "12 Harbor Rd, Portland, OR", Specialty: "Consumables"},
		{CompanyName: "Ironclad Tools", ContactPerson: "Sam Okafor", Email: "orders@ironclad.example", Phone: "+1-555-0102", Address: "400 Mill St, Dayton, OH", Specialty: "Tools"},
		{CompanyName: "Seatwell Furniture", ContactPerson: "Lee Chen", Email: "hello@seatwell.example", Phone: "+1-555-0103", Address: "9 Oak Ave, Austin, TX", Specialty: "Furniture"},
	}
	for _, v := range vs {
		if err := vendors.Create(v); err != nil {
			return false, fmt.Errorf("seed vendor %s: %w", v.CompanyName, err)
		}
	}
	links := []struct {
		vendor, item int
		primary      bool
	}{{0, 1, true}, {0, 4, true}, {1, 3, true}, {2, 2, true}, {0, 0, false}}
	for _, l := range links {
		if err := vendors.LinkItem(vs[l.vendor].ID, items[l.item].ID, l.primary); err != nil {
			return false, fmt.Errorf("seed vendor link: %w", err)
		}
	}
	return true, nil
}
