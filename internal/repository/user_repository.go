package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/LostFrxks/homy/internal/utils"
)

// User mirrors the 'users' table. Role is one of admin, manager or
// realtor; admin and manager count as staff.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// ErrResetCodeInvalid is returned when a password-reset code does not
// match, has expired or was already consumed.
var ErrResetCodeInvalid = errors.New("reset code invalid")

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
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

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// StoreResetCode saves the hash of a password-reset code with a 30
// minute expiry. Only the hash is persisted; the raw code leaves the
// system through the mail collaborator. Returns sql.ErrNoRows when no
// user has that email — callers answer ok regardless so lookups do not
// reveal which addresses exist.
func (r *UserRepo) StoreResetCode(ctx context.Context, email, codeHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET reset_code_hash=?, reset_code_expires_at=? WHERE email=?`,
		codeHash, time.Now().UTC().Add(30*time.Minute), email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ConsumeResetCode validates a reset code hash for the email, clears it
// and sets the new password hash. Codes are single-use.
func (r *UserRepo) ConsumeResetCode(ctx context.Context, email, codeHash, newPasswordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users
         SET password_hash=?, reset_code_hash=NULL, reset_code_expires_at=NULL
         WHERE email=? AND reset_code_hash=? AND reset_code_expires_at > ?`,
		newPasswordHash, email, codeHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResetCodeInvalid
	}
	return nil
}
