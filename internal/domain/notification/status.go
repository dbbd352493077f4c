// internal/domain/notification/status.go
package notification

// Status is the lifecycle position of a slot for one user on one day.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSent       Status = "sent"
	StatusReminded15 Status = "reminded_15"
	StatusReminded30 Status = "reminded_30"
	StatusExpired    Status = "expired"
	StatusResolved   Status = "resolved"
)

// IsTerminal reports whether the cycle engine should ignore the slot.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusExpired
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusReminded15, StatusReminded30, StatusExpired, StatusResolved:
		return true
	}
	return false
}

// Stage describes the forward step the cycle engine takes from a status.
type Stage struct {
	From Status
	To   Status
	// ReminderCount is the counter put in the push payload; -1 means no delivery.
	ReminderCount int
}

// NextStage returns the forward transition out of s, if any.
func NextStage(s Status) (Stage, bool) {
	switch s {
	case StatusPending:
		return Stage{From: StatusPending, To: StatusSent, ReminderCount: 0}, true
	case StatusSent:
		return Stage{From: StatusSent, To: StatusReminded15, ReminderCount: 1}, true
	case StatusReminded15:
		return Stage{From: StatusReminded15, To: StatusReminded30, ReminderCount: 2}, true
	case StatusReminded30:
		return Stage{From: StatusReminded30, To: StatusExpired, ReminderCount: -1}, true
	}
	return Stage{}, false
}

// Delivers reports whether the stage sends a push before transitioning.
func (st Stage) Delivers() bool {
	return st.ReminderCount >= 0
}
