package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/lostfound/internal/model"
)

const userColumns = `id, username, email, phone_number, password, role, created_at`

// CreateUser creates a new user. The password is stored as given; callers
// decide whether it is plaintext or a hash.
func CreateUser(ctx context.Context, db *sqlx.DB, username, password, email, phone, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("creating user: invalid role %q", role)
	}

	var id int64
	err := db.QueryRowxContext(ctx, db.Rebind(
		`INSERT INTO users (username, password, email, phone_number, role)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		username, password, email, phone, role,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sqlx.DB, id int64) (*model.User, error) {
	return getUserWhere(ctx, db, "id = ?", id)
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, db *sqlx.DB, username string) (*model.User, error) {
	return getUserWhere(ctx, db, "username = ?", username)
}

// GetUserByEmail returns a user by email.
func GetUserByEmail(ctx context.Context, db *sqlx.DB, email string) (*model.User, error) {
	return getUserWhere(ctx, db, "email = ?", email)
}

func getUserWhere(ctx context.Context, db *sqlx.DB, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	err := db.GetContext(ctx, u, db.Rebind(`SELECT `+userColumns+` FROM users WHERE `+cond), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// UsernameExists reports whether a user with the given username exists.
func UsernameExists(ctx context.Context, db *sqlx.DB, username string) (bool, error) {
	return exists(ctx, db, `SELECT COUNT(*) FROM users WHERE username = ?`, username)
}

// EmailExists reports whether a user with the given email exists.
func EmailExists(ctx context.Context, db *sqlx.DB, email string) (bool, error) {
	return exists(ctx, db, `SELECT COUNT(*) FROM users WHERE email = ?`, email)
}

func exists(ctx context.Context, db *sqlx.DB, query string, arg any) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(query), arg); err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return count > 0, nil
}
