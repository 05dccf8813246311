package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password storage modes.
const (
	ModePlain  = "plain"
	ModeBcrypt = "bcrypt"
)

// ErrPasswordTooLong is returned by bcrypt mode for passwords over 72 bytes.
var ErrPasswordTooLong = errors.New("Password must be at most 72 bytes")

// Passwords turns a password into its stored form and checks candidates
// against it.
type Passwords interface {
	Hash(password string) (string, error)
	Verify(stored, candidate string) bool
}

// NewPasswords returns the password store for mode.
func NewPasswords(mode string) (Passwords, error) {
	switch mode {
	case ModePlain, "":
		return PlainPasswords{}, nil
	case ModeBcrypt:
		return BcryptPasswords{Cost: bcrypt.DefaultCost}, nil
	}
	return nil, fmt.Errorf("unknown password mode %q", mode)
}

// PlainPasswords stores passwords verbatim.
type PlainPasswords struct{}

// Hash returns the password unchanged.
func (PlainPasswords) Hash(password string) (string, error) {
	return password, nil
}

// Verify compares the stored and candidate passwords for exact equality.
func (PlainPasswords) Verify(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptPasswords stores bcrypt hashes.
type BcryptPasswords struct {
	Cost int
}

// Hash hashes the password with bcrypt.
func (b BcryptPasswords) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify checks candidate against a bcrypt hash.
func (BcryptPasswords) Verify(stored, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}
