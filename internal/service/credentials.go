package service

import (
	"context"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/model"
)

// Credentials checks passwords and maps Basic tokens back to users.
type Credentials struct {
	Users     *Directory
	Passwords auth.Passwords
}

// NewCredentials returns a Credentials service backed by users.
func NewCredentials(users *Directory) *Credentials {
	return &Credentials{Users: users, Passwords: users.Passwords}
}

// Login checks the password and returns the Basic token for the user.
func (c *Credentials) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := c.Users.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}

	if !c.Passwords.Verify(user.Password, password) {
		return "", nil, ErrInvalidCredentials
	}

	return auth.EncodeToken(username, password), user, nil
}

// ResolveFromHeader returns the user named by an "Authorization: Basic"
// header value.
//
// Only the username half of the token is used; the password is not
// re-verified against the stored one.
func (c *Credentials) ResolveFromHeader(ctx context.Context, header string) (*model.User, error) {
	username, _, err := auth.ParseHeader(header)
	if err != nil {
		return nil, err
	}
	return c.Users.FindByUsername(ctx, username)
}
