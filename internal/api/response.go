package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lostfound/internal/service"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// textError writes message as a plain-text error body.
func textError(w http.ResponseWriter, status int, message string) {
	textResponse(w, status, message)
}

// textResponse writes a plain-text response with the given status code.
func textResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// clientErrors are domain failures reported back with their message and a 400.
var clientErrors = []error{
	service.ErrDuplicateUsername,
	service.ErrDuplicateEmail,
	service.ErrUserNotFound,
	service.ErrInvalidCredentials,
	service.ErrMissingOrInvalidHeader,
	service.ErrInvalidHeader,
	service.ErrInvalidDate,
	service.ErrInvalidImage,
	service.ErrPasswordTooLong,
}

// errorStatus maps an error from the service layer to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// serviceError writes err with the status errorStatus picks. Unexpected
// errors are logged and hidden from the client.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		textError(w, status, "internal error")
		return
	}
	textError(w, status, err.Error())
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
