package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/internal/service"
	"github.com/justuche224/swift/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service errors to HTTP statuses. Store
// internals are logged and never returned to the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	var pe *service.PersistenceError

	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, "invalid_request", ve.Error())
	case errors.Is(err, service.ErrUnauthorized):
		if _, ok := auth.IdentityFromContext(r.Context()); ok {
			respondError(w, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, service.ErrGiftNotFound):
		respondError(w, http.StatusNotFound, "gift_not_found", "gift not found")
	case errors.As(err, &pe) && pe.Retryable:
		logger.FromContext(r.Context()).WarnContext(r.Context(), "retryable store failure", "op", pe.Op, "error", pe.Err)
		respondError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, please retry")
	default:
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) bool {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter. Missing or malformed
// values yield 0 so the service applies its default.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
