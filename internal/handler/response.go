package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-account-service/internal/model"
	"go-account-service/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
	})
}

// writeError renders the error taxonomy. Anything unclassified is logged and
// collapsed to a 500 with a stable message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "unexpected server error"

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		message = apiErr.Message
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusNotFound
		message = "user not found"
	case errors.Is(err, model.ErrUserAlreadyExists):
		status = http.StatusBadRequest
		message = "user already exists"
	case errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "invalid credentials"
	case errors.Is(err, model.ErrTokenExpired), errors.Is(err, model.ErrTokenInvalid):
		status = http.StatusUnauthorized
		message = "invalid or expired token"
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "authentication required"
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
		message = "you are not allowed to do this action"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		StatusCode: status,
		Message:    message,
	})
}
