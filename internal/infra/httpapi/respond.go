package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"health_notification_service/internal/app"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
)

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, resp any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, successResponse{Message: msg, Data: data}, http.StatusOK)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnknownAction),
		errors.Is(err, app.ErrKindMismatch),
		errors.Is(err, app.ErrInvalidDate),
		errors.Is(err, app.ErrUnknownKind),
		errors.Is(err, app.ErrInvalidPreferences),
		errors.Is(err, app.ErrNoDeviceToken):
		return http.StatusBadRequest
	case errors.Is(err, notification.ErrStateNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrSlotClosed),
		errors.Is(err, app.ErrJobBusy):
		return http.StatusConflict
	case errors.Is(err, app.ErrDeliveryFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	resp := errorResponse{Message: err.Error()}
	var verr ValidationError
	if errors.As(err, &verr) {
		resp.Message = "validation failed"
		resp.Error = verr
	}
	if code == http.StatusInternalServerError {
		resp.Message = "internal server error"
	}
	writeJSON(w, resp, code)
}
