package repos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// OpenDB opens an SQLite database and ensures the schema exists.
func OpenDB(dsn string) (*sqlx.DB, error) {
	return Open(DriverSQLite, dsn, 1)
}

// Open connects to the given driver ("sqlite" or "mysql") and ensures the schema.
func Open(driver, dsn string, maxConns int) (*sqlx.DB, error) {
	var schema []string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
		// One writer at a time; also keeps ":memory:" on a single connection.
		maxConns = 1
	case DriverMySQL:
		schema = mysqlSchema
		var err error
		if dsn, err = MySQLDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	if driver == DriverMySQL {
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return db, nil
}

// MySQLDSN forces parseTime and UTC on a go-sql-driver DSN so DATETIME columns
// scan into time.Time the same way they do on sqlite.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func now() time.Time { return time.Now().UTC() }

// isUniqueViolation reports duplicate-key errors from either driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin')),
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS inventory(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  min_threshold INTEGER NOT NULL DEFAULT 0 CHECK (min_threshold >= 0),
  unit TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  created_by INTEGER NOT NULL REFERENCES users(id),
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_owner ON inventory(created_by)`,
	`CREATE TABLE IF NOT EXISTS vendors(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_name TEXT NOT NULL,
  contact_person TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  specialty TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS vendor_inventory(
  vendor_id INTEGER NOT NULL REFERENCES vendors(id),
  inventory_id INTEGER NOT NULL REFERENCES inventory(id),
  is_primary INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (vendor_id, inventory_id)
)`,
	`CREATE TABLE IF NOT EXISTS contact_history(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id),
  vendor_id INTEGER NOT NULL REFERENCES vendors(id),
  inventory_id INTEGER NOT NULL REFERENCES inventory(id),
  message TEXT NOT NULL,
  contact_type TEXT NOT NULL CHECK (contact_type IN ('email','phone','in_person')),
  created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_contact_vendor ON contact_history(vendor_id)`,
	`CREATE TABLE IF NOT EXISTS notifications(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  type TEXT NOT NULL CHECK (type IN ('low_stock','vendor_contact','system')),
  message TEXT NOT NULL,
  user_id INTEGER NOT NULL REFERENCES users(id),
  vendor_id INTEGER NULL REFERENCES vendors(id),
  inventory_id INTEGER NULL REFERENCES inventory(id),
  is_read INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_alert ON notifications(type, inventory_id, user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS alert_ledger(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  type TEXT NOT NULL,
  inventory_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_ledger ON alert_ledger(type, inventory_id, user_id, created_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  username VARCHAR(50) NOT NULL UNIQUE,
  email VARCHAR(100) NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL,
  role ENUM('user','admin') NOT NULL DEFAULT 'user',
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS inventory(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(100) NOT NULL,
  description VARCHAR(500) NOT NULL DEFAULT '',
  quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  min_threshold INT NOT NULL DEFAULT 0 CHECK (min_threshold >= 0),
  unit VARCHAR(20) NOT NULL,
  category VARCHAR(50) NOT NULL DEFAULT '',
  created_by BIGINT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  INDEX idx_inventory_owner (created_by),
  FOREIGN KEY (created_by) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS vendors(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  company_name VARCHAR(100) NOT NULL,
  contact_person VARCHAR(100) NOT NULL,
  email VARCHAR(100) NOT NULL UNIQUE,
  phone VARCHAR(20) NOT NULL DEFAULT '',
  address VARCHAR(500) NOT NULL DEFAULT '',
  specialty VARCHAR(100) NOT NULL DEFAULT '',
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS vendor_inventory(
  vendor_id BIGINT NOT NULL,
  inventory_id BIGINT NOT NULL,
  is_primary BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (vendor_id, inventory_id),
  FOREIGN KEY (vendor_id) REFERENCES vendors(id),
  FOREIGN KEY (inventory_id) REFERENCES inventory(id)
)`,
	`CREATE TABLE IF NOT EXISTS contact_history(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  vendor_id BIGINT NOT NULL,
  inventory_id BIGINT NOT NULL,
  message VARCHAR(1000) NOT NULL,
  contact_type ENUM('email','phone','in_person') NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_contact_vendor (vendor_id),
  FOREIGN KEY (user_id) REFERENCES users(id),
  FOREIGN KEY (vendor_id) REFERENCES vendors(id),
  FOREIGN KEY (inventory_id) REFERENCES inventory(id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  type ENUM('low_stock','vendor_contact','system') NOT NULL,
  message VARCHAR(500) NOT NULL,
  user_id BIGINT NOT NULL,
  vendor_id BIGINT NULL,
  inventory_id BIGINT NULL,
  is_read BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_notifications_user (user_id, created_at),
  INDEX idx_notifications_alert (type, inventory_id, user_id, created_at),
  FOREIGN KEY (user_id) REFERENCES users(id),
  FOREIGN KEY (vendor_id) REFERENCES vendors(id),
  FOREIGN KEY (inventory_id) REFERENCES inventory(id)
)`,
	`CREATE TABLE IF NOT EXISTS alert_ledger(
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  type VARCHAR(20) NOT NULL,
  inventory_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_alert_ledger (type, inventory_id, user_id, created_at)
)`,
}
