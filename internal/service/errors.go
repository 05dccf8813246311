package service

import (
	"errors"

	"github.com/erazemk/lostfound/internal/auth"
)

// Domain errors. Callers match them with errors.Is; details may be wrapped
// around them with fmt.Errorf("%w: ..."). The messages are sent to clients
// verbatim, so they keep the wording existing clients display.
var (
	ErrDuplicateUsername  = errors.New("Username is already taken!")
	ErrDuplicateEmail     = errors.New("Email is already in use!")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrItemNotFound       = errors.New("Item not found")
	ErrNotAuthorized      = errors.New("Not authorized")
	ErrInvalidDate        = errors.New("Invalid date")
	ErrInvalidImage       = errors.New("Invalid image")

	ErrMissingOrInvalidHeader = auth.ErrMissingHeader
	ErrInvalidHeader          = auth.ErrMalformedToken
	ErrPasswordTooLong        = auth.ErrPasswordTooLong
)
