package auth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// BasicPrefix is the Authorization scheme prefix the API accepts.
const BasicPrefix = "Basic "

var (
	// ErrMissingHeader is returned when the header is empty or not a Basic header.
	ErrMissingHeader = errors.New("Missing or invalid Authorization header")
	// ErrMalformedToken is returned when the token cannot be decoded into username:password.
	ErrMalformedToken = errors.New("Invalid Authorization header")
)

// EncodeToken returns base64(username + ":" + password). The token is
// reversible; it identifies a user, it does not protect the password.
func EncodeToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// DecodeToken reverses EncodeToken, splitting at the first colon.
func DecodeToken(token string) (username, password string, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrMalformedToken
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", ErrMalformedToken
	}
	return username, password, nil
}

// ParseHeader extracts the credentials from an "Authorization: Basic <token>" value.
func ParseHeader(header string) (username, password string, err error) {
	if !strings.HasPrefix(header, BasicPrefix) {
		return "", "", ErrMissingHeader
	}
	return DecodeToken(strings.TrimPrefix(header, BasicPrefix))
}
