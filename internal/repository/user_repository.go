package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,first_name,last_name,password_hash,role,is_active,is_verified,manages,created_at,updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u       model.User
		manages string
	)
	err := s.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.IsVerified, &manages, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrUserNotFound
		}
		return u, err
	}
	u.Manages = splitBlocks(manages)
	return u, nil
}

// Create inserts user u with the given plain password and returns its ID.
// New self-registered users are active but not yet verified.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, password_hash, role, is_active, is_verified, manages) VALUES (?,?,?,?,?,?,?,?)",
		u.Email, u.FirstName, u.LastName, hash, u.Role, u.IsActive, u.IsVerified, strings.Join(u.Manages, ","))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpsertAdmin creates an admin account or resets the password and the
// managed blocks of an existing one.
func (r *UserRepo) UpsertAdmin(ctx context.Context, u model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, password_hash, role, is_active, is_verified, manages)
		 VALUES (?,?,?,?,?,1,1,?)
		 ON DUPLICATE KEY UPDATE password_hash=VALUES(password_hash), role=VALUES(role), is_active=1, is_verified=1,
		     manages=VALUES(manages), first_name=VALUES(first_name)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.FirstName, u.LastName, hash, model.RoleAdmin, strings.Join(u.Manages, ","))
	return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// SetVerified approves or un-approves a user account.
func (r *UserRepo) SetVerified(ctx context.Context, email string, verified bool) error {
	return r.setFlag(ctx, "is_verified", email, verified)
}

// SetActive blocks or unblocks a user account.
func (r *UserRepo) SetActive(ctx context.Context, email string, active bool) error {
	return r.setFlag(ctx, "is_active", email, active)
}

func (r *UserRepo) setFlag(ctx context.Context, col, email string, v bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+col+"=? WHERE email=?", v, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

// ListNotifiable returns the active, verified users that receive
// broadcast emails (new halls, announcements).
func (r *UserRepo) ListNotifiable(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE role=? AND is_active=1 AND is_verified=1 ORDER BY id", model.RoleUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func splitBlocks(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
