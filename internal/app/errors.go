package app

import "errors"

// Client-facing errors. Callers map them to 4xx responses.
var (
	ErrUnknownAction = errors.New("action is not permitted for this notification kind")
	ErrUnknownKind   = errors.New("unknown notification kind")
	ErrKindMismatch  = errors.New("notification kind does not match the slot")
	ErrSlotClosed    = errors.New("slot is already closed")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrNoDeviceToken = errors.New("no device token registered for this user")
)

// ErrDeliveryFailed wraps a gateway failure surfaced synchronously (send-test).
var ErrDeliveryFailed = errors.New("delivery failed")
