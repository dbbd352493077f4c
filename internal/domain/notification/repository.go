// internal/domain/notification/repository.go
package notification

import (
	"context"
	"errors"
	"time"
)

// Repository persists slot states. Every status write is conditional on the
// status the caller observed; a lost race returns applied=false and no error.
type Repository interface {
	// Upsert inserts a pending record if the key is absent. For an existing
	// record only kind and scheduled instant are refreshed.
	Upsert(ctx context.Context, userID, date string, slot PlannedSlot) (inserted bool, err error)
	// RefreshSchedule updates kind and scheduled instant of an existing record only.
	RefreshSchedule(ctx context.Context, key Key, slot PlannedSlot) (updated bool, err error)

	Get(ctx context.Context, key Key) (*State, error)
	// ListOpen returns every record for date whose status is not terminal.
	ListOpen(ctx context.Context, date string) ([]*State, error)
	// ListByUserAndDate returns a user's records ordered by scheduled instant.
	ListByUserAndDate(ctx context.Context, userID, date string) ([]*State, error)

	// Advance moves from -> to and stamps the timestamp column belonging to "to".
	Advance(ctx context.Context, key Key, from, to Status, at time.Time) (applied bool, err error)
	// Resolve marks the record resolved with the action tag.
	Resolve(ctx context.Context, key Key, from Status, action string, at time.Time) (applied bool, err error)
	// Unresolve returns a record resolved with action back to "to" and clears the resolution.
	Unresolve(ctx context.Context, key Key, action string, to Status) (applied bool, err error)
	// Reschedule resets the record to pending at a new instant and clears stage stamps.
	Reschedule(ctx context.Context, key Key, from Status, scheduledAt time.Time) (applied bool, err error)
}

// ErrStateNotFound is returned when no record exists for a key.
var ErrStateNotFound = errors.New("notification state not found")
