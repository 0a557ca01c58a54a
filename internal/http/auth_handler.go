package http

import (
	"errors"
	"net/http"

	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/pkg/logger"
)

type Authenticator interface {
	Login(email, password string) (string, error)
}

type AuthHandler struct {
	login   Authenticator
	maxBody int64
}

func NewAuthHandler(login Authenticator, maxBody int64) *AuthHandler {
	return &AuthHandler{login: login, maxBody: maxBody}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponseDTO struct {
	Token string `json:"token"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	token, err := h.login.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, LoginResponseDTO{Token: token})
}
