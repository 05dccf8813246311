package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/lostfound/internal/service"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	Directory   *service.Directory
	Credentials *service.Credentials
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		textError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		textError(w, http.StatusBadRequest, "username, password, and email required")
		return
	}

	user, err := h.Directory.Register(r.Context(), service.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}

	slog.Info("user registered", "user", user.Username, "id", user.ID)
	jsonResponse(w, http.StatusOK, authResponse{
		Message:  "User registered successfully!",
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		textError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		textError(w, http.StatusBadRequest, "username and password required")
		return
	}

	token, user, err := h.Credentials.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserNotFound) {
			slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		}
		serviceError(w, r, err)
		return
	}

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, authResponse{
		Message:  "Login successful",
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Token:    token,
	})
}
