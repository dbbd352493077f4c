// internal/domain/notification/state.go
package notification

import (
	"database/sql"
	"time"
)

// DateLayout is the calendar-date format used in keys.
const DateLayout = "2006-01-02"

// Key identifies one slot of one user on one day.
type Key struct {
	UserID    string
	Date      string
	SlotLabel string
}

// State tracks where a reminder slot is in its lifecycle.
// Corresponds to the 'notification_states' table.
type State struct {
	UserID       string
	Date         string // YYYY-MM-DD
	SlotLabel    string
	Kind         Kind
	ScheduledAt  time.Time // UTC
	Status       Status
	SentAt       sql.NullTime
	Reminded15At sql.NullTime
	Reminded30At sql.NullTime
	ResolvedAt   sql.NullTime
	ActionTaken  sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key returns the composite identity of s.
func (s *State) Key() Key {
	return Key{UserID: s.UserID, Date: s.Date, SlotLabel: s.SlotLabel}
}

// StageStartedAt returns the instant the current stage's clock started:
// the scheduled instant for pending, otherwise the last stamp reached.
func (s *State) StageStartedAt() (time.Time, bool) {
	switch s.Status {
	case StatusPending:
		return s.ScheduledAt, true
	case StatusSent:
		return s.SentAt.Time, s.SentAt.Valid
	case StatusReminded15:
		return s.Reminded15At.Time, s.Reminded15At.Valid
	case StatusReminded30:
		return s.Reminded30At.Time, s.Reminded30At.Valid
	}
	return time.Time{}, false
}

// PlannedSlot is one entry of a user's daily schedule before it is persisted.
type PlannedSlot struct {
	SlotLabel   string
	Kind        Kind
	ScheduledAt time.Time
}
