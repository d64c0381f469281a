package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Users is the repository for the users table. It also serves as billing.Identity.
type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

var _ billing.Identity = (*Users)(nil)

// Create inserts user. Emails are stored lower-cased; ErrDuplicateEmail when taken.
func (u *Users) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	now := time.Now().UTC()

	res, err := u.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, full_name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.FullName, user.Timezone, now, now,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

const userColumns = `id, email, password_hash, full_name, timezone, created_at, updated_at`

// GetByEmail is used by login.
func (u *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return u.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID returns ErrNotFound for unknown ids.
func (u *Users) GetByID(ctx context.Context, id int64) (models.User, error) {
	return u.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (u *Users) get(ctx context.Context, query string, arg any) (models.User, error) {
	var user models.User
	err := u.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Timezone,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Profile implements billing.Identity.
func (u *Users) Profile(ctx context.Context, userID int64) (billing.Profile, error) {
	user, err := u.GetByID(ctx, userID)
	if err != nil {
		return billing.Profile{}, err
	}
	return billing.Profile{UserID: user.ID, Email: user.Email, Name: user.FullName}, nil
}
