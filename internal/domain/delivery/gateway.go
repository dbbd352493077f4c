// Package delivery defines the channel-neutral push contract used by the reminder pipeline.
package delivery

import "context"

// Payload keys. All values are strings so every transport can carry them as-is.
const (
	KeyKind          = "notification_type"
	KeySlot          = "slot_label"
	KeyDate          = "date"
	KeyUser          = "uid"
	KeyTitle         = "title"
	KeyBody          = "body"
	KeyActions       = "actions"
	KeyIsReminder    = "is_reminder"
	KeyReminderCount = "reminder_count"
	KeyEmoji         = "emoji"
)

// Payload is the flat string map handed to a gateway.
type Payload map[string]string

// ErrorKind classifies a failed send.
type ErrorKind string

const (
	ErrorKindNone ErrorKind = ""
	// ErrorKindTokenInvalid means the token is permanently unusable and should be purged.
	ErrorKindTokenInvalid ErrorKind = "token_invalid"
	ErrorKindTransient    ErrorKind = "transient"
)

// Result is the outcome of one send.
type Result struct {
	Success   bool
	MessageID string
	ErrorKind ErrorKind
	Err       error
}

// Ok builds a successful result.
func Ok(messageID string) Result {
	return Result{Success: true, MessageID: messageID}
}

// Failed builds a failed result of the given kind.
func Failed(kind ErrorKind, err error) Result {
	return Result{ErrorKind: kind, Err: err}
}

// Gateway sends one message to one device token. Implementations do not retry.
type Gateway interface {
	Send(ctx context.Context, token string, payload Payload) Result
}
