package repos

import (
	"database/sql"
	"errors"
	"strings"

	"stockroom/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,username,email,password_hash,role,created_at,updated_at`

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	return r.one(`SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
}

func (r *UserRepo) ByID(id int64) (*domain.User, error) {
	return r.one(`SELECT `+userCols+` FROM users WHERE id=?`, id)
}

func (r *UserRepo) one(q string, arg any) (*domain.User, error) {
	var u domain.User
	if err := r.DB.Get(&u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a user with the given email or username is present.
func (r *UserRepo) Exists(email, username string) (bool, error) {
	var n int
	err := r.DB.Get(&n, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?) OR username=?`, email, username)
	return n > 0, err
}

func (r *UserRepo) Create(u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	res, err := r.DB.Exec(`INSERT INTO users(username,email,password_hash,role,created_at,updated_at) VALUES(?,?,?,?,?,?)`,
		u.Username, u.Email, u.Hash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UpdateProfile changes username and email. Conflicts with other accounts return ErrConflict.
func (r *UserRepo) UpdateProfile(id int64, username, email string) (*domain.User, error) {
	var taken int
	if err := r.DB.Get(&taken, `SELECT COUNT(*) FROM users WHERE (username=? OR LOWER(email)=LOWER(?)) AND id<>?`, username, email, id); err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrConflict
	}
	res, err := r.DB.Exec(`UPDATE users SET username=?, email=?, updated_at=? WHERE id=?`, username, strings.ToLower(email), now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.ByID(id)
}

func (r *UserRepo) SetPassword(id int64, hash string) error {
	res, err := r.DB.Exec(`UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, hash, now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Count() (int, error) {
	var n int
	err := r.DB.Get(&n, `SELECT COUNT(*) FROM users`)
	return n, err
}
