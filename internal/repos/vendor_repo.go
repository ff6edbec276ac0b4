package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
)

type VendorRepo struct{ db *sqlx.DB }

func NewVendorRepo(db *sqlx.DB) *VendorRepo { return &VendorRepo{db: db} }

const vendorSelect = `SELECT id, company_name, contact_person, email, phone, address, specialty, created_at, updated_at FROM vendors`

func (r *VendorRepo) List() ([]domain.Vendor, error) {
	vs := []domain.Vendor{}
	err := r.db.Select(&vs, vendorSelect+` ORDER BY company_name, id`)
	return vs, err
}

func (r *VendorRepo) Get(id int64) (*domain.Vendor, error) {
	var v domain.Vendor
	if err := r.db.Get(&v, vendorSelect+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// emailTaken reports whether another vendor (not exceptID) already uses email.
func (r *VendorRepo) emailTaken(email string, exceptID int64) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM vendors WHERE LOWER(email) = LOWER(?) AND id <> ?`, email, exceptID)
	return n > 0, err
}

func (r *VendorRepo) Create(v *domain.Vendor) error {
	v.Email = strings.ToLower(v.Email)
	taken, err := r.emailTaken(v.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrConflict
	}
	v.CreatedAt = now()
	v.UpdatedAt = v.CreatedAt
	res, err := r.db.Exec(`
		INSERT INTO vendors(company_name, contact_person, email, phone, address, specialty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.CompanyName, v.ContactPerson, v.Email, v.Phone, v.Address, v.Specialty, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

func (r *VendorRepo) Update(v *domain.Vendor) error {
	v.Email = strings.ToLower(v.Email)
	taken, err := r.emailTaken(v.Email, v.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrConflict
	}
	v.UpdatedAt = now()
	res, err := r.db.Exec(`
		UPDATE vendors
		SET company_name = ?, contact_person = ?, email = ?, phone = ?, address = ?, specialty = ?, updated_at = ?
		WHERE id = ?`,
		v.CompanyName, v.ContactPerson, v.Email, v.Phone, v.Address, v.Specialty, v.UpdatedAt, v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the vendor and everything that references it in one transaction:
// item links, contact history, notifications, then the vendor row.
func (r *VendorRepo) Delete(id int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM vendor_inventory WHERE vendor_id = ?`,
		`DELETE FROM contact_history WHERE vendor_id = ?`,
		`DELETE FROM notifications WHERE vendor_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	res, err := tx.Exec(`DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Search matches q against company name, specialty or contact person.
func (r *VendorRepo) Search(q string) ([]domain.Vendor, error) {
	vs := []domain.Vendor{}
	like := "%" + q + "%"
	err := r.db.Select(&vs, vendorSelect+`
		WHERE company_name LIKE ? OR specialty LIKE ? OR contact_person LIKE ?
		ORDER BY company_name, id`, like, like, like)
	return vs, err
}

func (r *VendorRepo) BySpecialty(specialty string) ([]domain.Vendor, error) {
	vs := []domain.Vendor{}
	err := r.db.Select(&vs, vendorSelect+` WHERE specialty = ? ORDER BY company_name, id`, specialty)
	return vs, err
}

// Items lists the inventory a vendor supplies, by name.
func (r *VendorRepo) Items(vendorID int64) ([]domain.VendorItem, error) {
	items := []domain.VendorItem{}
	err := r.db.Select(&items, `SELECT `+itemCols+`, u.username AS created_by_username, vi.is_primary
		FROM inventory i
		JOIN vendor_inventory vi ON vi.inventory_id = i.id
		LEFT JOIN users u ON u.id = i.created_by
		WHERE vi.vendor_id = ?
		ORDER BY i.name, i.id`, vendorID)
	return items, err
}

// LinkItem records that vendorID supplies itemID; linking again updates is_primary.
func (r *VendorRepo) LinkItem(vendorID, itemID int64, primary bool) error {
	q := `INSERT INTO vendor_inventory(vendor_id, inventory_id, is_primary) VALUES (?, ?, ?)
		ON CONFLICT(vendor_id, inventory_id) DO UPDATE SET is_primary = excluded.is_primary`
	if r.db.DriverName() == DriverMySQL {
		q = `INSERT INTO vendor_inventory(vendor_id, inventory_id, is_primary) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE is_primary = VALUES(is_primary)`
	}
	_, err := r.db.Exec(q, vendorID, itemID, primary)
	return err
}

// Contact is one outreach to a vendor about one or more items.
type Contact struct {
	UserID  int64
	Vendor  domain.Vendor
	Items   []domain.InventoryItem
	Message string
	Type    domain.ContactType
}

// RecordContact writes one contact_history row per item and a single
// vendor_contact notification naming all items, atomically. The stored
// notification is returned so the caller can deliver it after commit.
func (r *VendorRepo) RecordContact(c Contact) (*domain.Notification, error) {
	if len(c.Items) == 0 {
		return nil, errors.New("contact needs at least one item")
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	at := now()
	names := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, err := tx.Exec(`
			INSERT INTO contact_history(user_id, vendor_id, inventory_id, message, contact_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.UserID, c.Vendor.ID, it.ID, c.Message, c.Type, at); err != nil {
			return nil, fmt.Errorf("insert contact history: %w", err)
		}
		names = append(names, it.Name)
	}

	vendorID := c.Vendor.ID
	n := domain.NewNotification{
		Type:     domain.NotificationVendorContact,
		Message:  fmt.Sprintf("You contacted %s about: %s", c.Vendor.CompanyName, strings.Join(names, ", ")),
		UserID:   c.UserID,
		VendorID: &vendorID,
	}
	id, err := insertNotification(tx, n, at)
	if err != nil {
		return nil, fmt.Errorf("insert contact notification: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	vendorName := c.Vendor.CompanyName
	return &domain.Notification{
		ID: id, Type: n.Type, Message: n.Message, UserID: n.UserID,
		VendorID: n.VendorID, CreatedAt: at, VendorName: &vendorName,
	}, nil
}

// ContactHistory lists a user's contacts, newest first, optionally for one vendor.
func (r *VendorRepo) ContactHistory(userID, vendorID int64) ([]domain.ContactRecord, error) {
	recs := []domain.ContactRecord{}
	q := `SELECT ch.id, ch.user_id, ch.vendor_id, ch.inventory_id, ch.message, ch.contact_type, ch.created_at,
		       v.company_name AS vendor_name, i.name AS inventory_name
		FROM contact_history ch
		LEFT JOIN vendors v ON v.id = ch.vendor_id
		LEFT JOIN inventory i ON i.id = ch.inventory_id
		WHERE ch.user_id = ?`
	args := []any{userID}
	if vendorID > 0 {
		q += ` AND ch.vendor_id = ?`
		args = append(args, vendorID)
	}
	err := r.db.Select(&recs, q+` ORDER BY ch.created_at DESC, ch.id DESC`, args...)
	return recs, err
}
