package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
)

type NotificationRepo struct {
	db    *sqlx.DB
	clock func() time.Time
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db, clock: now}
}

// WithClock replaces the timestamp source used for created_at.
func (r *NotificationRepo) WithClock(clock func() time.Time) *NotificationRepo {
	r.clock = func() time.Time { return clock().UTC() }
	return r
}

const notificationSelect = `SELECT n.id, n.type, n.message, n.user_id, n.vendor_id, n.inventory_id, n.is_read, n.created_at,
	       v.company_name AS vendor_name, i.name AS inventory_name
	FROM notifications n
	LEFT JOIN vendors v ON v.id = n.vendor_id
	LEFT JOIN inventory i ON i.id = n.inventory_id`

// insertNotification writes the notification and, when it names an item, an
// alert_ledger row. The ledger outlives the notification so the alert window
// survives the recipient deleting it.
func insertNotification(ex sqlx.Execer, n domain.NewNotification, at time.Time) (int64, error) {
	res, err := ex.Exec(`
		INSERT INTO notifications(type, message, user_id, vendor_id, inventory_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.Type, n.Message, n.UserID, n.VendorID, n.InventoryID, false, at)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if n.InventoryID != nil {
		if _, err := ex.Exec(`
			INSERT INTO alert_ledger(type, inventory_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
			n.Type, *n.InventoryID, n.UserID, at); err != nil {
			return 0, fmt.Errorf("insert alert ledger: %w", err)
		}
	}
	return id, nil
}

// Create stores an unread notification and returns it with joined names.
func (r *NotificationRepo) Create(n domain.NewNotification) (*domain.Notification, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := insertNotification(tx, n, r.clock())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.Get(id)
}

func (r *NotificationRepo) Get(id int64) (*domain.Notification, error) {
	var n domain.Notification
	if err := r.db.Get(&n, notificationSelect+` WHERE n.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// List returns the recipient's notifications newest first. limit <= 0 means all.
func (r *NotificationRepo) List(userID int64, limit int) ([]domain.Notification, error) {
	ns := []domain.Notification{}
	q := notificationSelect + ` WHERE n.user_id = ? ORDER BY n.created_at DESC, n.id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	err := r.db.Select(&ns, q, args...)
	return ns, err
}

// owned reports whether notification id belongs to userID.
func (r *NotificationRepo) owned(id, userID int64) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	return n > 0, err
}

// MarkRead flags one notification as read. A foreign or missing id is ErrNotFound.
func (r *NotificationRepo) MarkRead(id, userID int64) error {
	res, err := r.db.Exec(`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// MySQL reports zero affected rows when the row was already read.
	ok, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of userID and returns how many changed.
func (r *NotificationRepo) MarkAllRead(userID int64) (int64, error) {
	res, err := r.db.Exec(`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) Delete(id, userID int64) error {
	res, err := r.db.Exec(`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) UnreadCount(userID int64) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false)
	return n, err
}

// HasRecentAlert reports whether an alert of type t about itemID was raised
// for userID at or after since. It reads alert_ledger, so deleting the
// notification does not reopen the window.
func (r *NotificationRepo) HasRecentAlert(t domain.NotificationType, itemID, userID int64, since time.Time) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM alert_ledger
		WHERE type = ? AND inventory_id = ? AND user_id = ? AND created_at >= ?`,
		t, itemID, userID, since.UTC())
	return n > 0, err
}
