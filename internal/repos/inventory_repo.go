package repos

import (
	"database/sql"
	"errors"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const itemCols = `i.id, i.name, i.description, i.quantity, i.min_threshold, i.unit, i.category, i.created_by, i.created_at, i.updated_at`

// Items carry the owner's username; the LEFT JOIN keeps items whose owner row is gone.
const itemSelect = `SELECT ` + itemCols + `, u.username AS created_by_username
	FROM inventory i
	LEFT JOIN users u ON u.id = i.created_by`

// List returns every item, most recently updated first.
func (r *InventoryRepo) List() ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := r.db.Select(&items, itemSelect+` ORDER BY i.updated_at DESC, i.id DESC`)
	return items, err
}

func (r *InventoryRepo) Get(id int64) (*domain.InventoryItem, error) {
	var it domain.InventoryItem
	if err := r.db.Get(&it, itemSelect+` WHERE i.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// ByIDs returns the items that exist among ids, in id order.
func (r *InventoryRepo) ByIDs(ids []int64) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	if len(ids) == 0 {
		return items, nil
	}
	q, args, err := sqlx.In(itemSelect+` WHERE i.id IN (?) ORDER BY i.id`, ids)
	if err != nil {
		return nil, err
	}
	err = r.db.Select(&items, r.db.Rebind(q), args...)
	return items, err
}

func (r *InventoryRepo) Create(it *domain.InventoryItem) error {
	it.CreatedAt = now()
	it.UpdatedAt = it.CreatedAt
	res, err := r.db.Exec(`
		INSERT INTO inventory(name, description, quantity, min_threshold, unit, category, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Name, it.Description, it.Quantity, it.MinThreshold, it.Unit, it.Category, it.CreatedBy, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return err
	}
	it.ID, err = res.LastInsertId()
	return err
}

// Update overwrites the editable fields of an existing item. Ownership is unchanged.
func (r *InventoryRepo) Update(it *domain.InventoryItem) error {
	it.UpdatedAt = now()
	res, err := r.db.Exec(`
		UPDATE inventory
		SET name = ?, description = ?, quantity = ?, min_threshold = ?, unit = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		it.Name, it.Description, it.Quantity, it.MinThreshold, it.Unit, it.Category, it.UpdatedAt, it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item with its vendor links, contact history and alert ledger.
// Notifications that referenced it are kept with inventory_id cleared.
func (r *InventoryRepo) Delete(id int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM vendor_inventory WHERE inventory_id = ?`,
		`DELETE FROM contact_history WHERE inventory_id = ?`,
		`UPDATE notifications SET inventory_id = NULL WHERE inventory_id = ?`,
		`DELETE FROM alert_ledger WHERE inventory_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	res, err := tx.Exec(`DELETE FROM inventory WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// LowStock lists items at or below their threshold, emptiest first.
func (r *InventoryRepo) LowStock() ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := r.db.Select(&items, itemSelect+` WHERE i.quantity <= i.min_threshold ORDER BY i.quantity ASC, i.id ASC`)
	return items, err
}

// LowStockOwned is the sweep's scan: breached items joined with an existing owner.
func (r *InventoryRepo) LowStockOwned() ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := r.db.Select(&items, `SELECT `+itemCols+`, u.username AS created_by_username
		FROM inventory i
		JOIN users u ON u.id = i.created_by
		WHERE i.quantity <= i.min_threshold
		ORDER BY i.id`)
	return items, err
}

// Search matches q as a substring of name, category or description.
func (r *InventoryRepo) Search(q string) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	like := "%" + q + "%"
	err := r.db.Select(&items, itemSelect+`
		WHERE i.name LIKE ? OR i.category LIKE ? OR i.description LIKE ?
		ORDER BY i.updated_at DESC, i.id DESC`, like, like, like)
	return items, err
}

// Summary aggregates the dashboard tiles. Unread notifications are counted for userID.
func (r *InventoryRepo) Summary(userID int64) (domain.DashboardSummary, error) {
	var s domain.DashboardSummary
	err := r.db.Get(&s, `
		SELECT
		  (SELECT COUNT(*) FROM inventory) AS total_items,
		  (SELECT COUNT(*) FROM inventory WHERE quantity <= min_threshold) AS low_stock_items,
		  (SELECT COUNT(*) FROM vendors) AS total_vendors,
		  (SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?) AS unread_notifications`,
		userID, false)
	return s, err
}
