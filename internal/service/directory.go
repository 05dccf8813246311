package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// Directory registers and looks up users.
type Directory struct {
	DB        *sqlx.DB
	Passwords auth.Passwords
}

// NewDirectory returns a Directory storing passwords with p.
func NewDirectory(db *sqlx.DB, p auth.Passwords) *Directory {
	return &Directory{DB: db, Passwords: p}
}

// RegisterInput carries the fields of a registration.
type RegisterInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
}

// Register creates a USER account. The username is checked before the email.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	return d.create(ctx, in, model.RoleUser)
}

// CreateAdmin creates an ADMIN account.
func (d *Directory) CreateAdmin(ctx context.Context, in RegisterInput) (*model.User, error) {
	return d.create(ctx, in, model.RoleAdmin)
}

func (d *Directory) create(ctx context.Context, in RegisterInput, role string) (*model.User, error) {
	taken, err := store.UsernameExists(ctx, d.DB, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUsername
	}

	taken, err = store.EmailExists(ctx, d.DB, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	stored, err := d.Passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, d.DB, in.Username, stored, in.Email, in.PhoneNumber, role)
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", in.Username, err)
	}
	return user, nil
}

// FindByUsername returns the user or ErrUserNotFound.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, d.DB, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByEmail returns the user registered with email or ErrUserNotFound.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, d.DB, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByID returns the user or ErrUserNotFound.
func (d *Directory) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := store.GetUser(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
