package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"foodhub/auth"
	"foodhub/catalog"
	"foodhub/database"
	"foodhub/uploads"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type messageBody struct {
	Message string `json:"message"`
}

type vendorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// statusFor maps service errors to HTTP statuses. Ownership failures keep
// the 401 existing clients rely on.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrValidation),
		errors.Is(err, auth.ErrValidation),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, uploads.ErrUnsupportedType),
		errors.Is(err, errBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotOwner),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, catalog.ErrRestaurantNotFound):
		return catalog.ErrRestaurantNotFound.Error()
	case errors.Is(err, catalog.ErrItemNotFound):
		return catalog.ErrItemNotFound.Error()
	case errors.Is(err, auth.ErrEmailTaken):
		return auth.ErrEmailTaken.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrValidation):
		return strings.ReplaceAll(err.Error(), "\n", ", ")
	}
	return err.Error()
}

// writeError answers with {message}. Server-side failures are logged.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeMessage(w, status, messageFor(err))
}

// writeVendorError answers with {success:false, message}.
func writeVendorError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, vendorBody{Success: false, Message: messageFor(err)})
}
