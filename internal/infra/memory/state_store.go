// Package memory holds mutex-guarded in-process stores with the same
// conditional-update semantics as the Postgres repositories.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"health_notification_service/internal/domain/notification"
)

type StateStore struct {
	mu     sync.Mutex
	states map[notification.Key]notification.State
	now    func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[notification.Key]notification.State),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *StateStore) Upsert(_ context.Context, userID, date string, slot notification.PlannedSlot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := notification.Key{UserID: userID, Date: date, SlotLabel: slot.SlotLabel}
	now := s.now()
	if st, ok := s.states[key]; ok {
		st.Kind = slot.Kind
		st.ScheduledAt = slot.ScheduledAt.UTC()
		st.UpdatedAt = now
		s.states[key] = st
		return false, nil
	}
	s.states[key] = notification.State{
		UserID:      userID,
		Date:        date,
		SlotLabel:   slot.SlotLabel,
		Kind:        slot.Kind,
		ScheduledAt: slot.ScheduledAt.UTC(),
		Status:      notification.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return true, nil
}

func (s *StateStore) RefreshSchedule(_ context.Context, key notification.Key, slot notification.PlannedSlot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	if !ok {
		return false, nil
	}
	st.Kind = slot.Kind
	st.ScheduledAt = slot.ScheduledAt.UTC()
	st.UpdatedAt = s.now()
	s.states[key] = st
	return true, nil
}

func (s *StateStore) Get(_ context.Context, key notification.Key) (*notification.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	if !ok {
		return nil, notification.ErrStateNotFound
	}
	return &st, nil
}

func (s *StateStore) ListOpen(_ context.Context, date string) ([]*notification.State, error) {
	return s.list(func(st notification.State) bool {
		return st.Date == date && !st.Status.IsTerminal()
	}), nil
}

func (s *StateStore) ListByUserAndDate(_ context.Context, userID, date string) ([]*notification.State, error) {
	return s.list(func(st notification.State) bool {
		return st.UserID == userID && st.Date == date
	}), nil
}

func (s *StateStore) Advance(_ context.Context, key notification.Key, from, to notification.Status, at time.Time) (bool, error) {
	return s.update(key, from, func(st *notification.State) {
		st.Status = to
		stamp := sql.NullTime{Time: at.UTC(), Valid: true}
		switch to {
		case notification.StatusSent:
			st.SentAt = stamp
		case notification.StatusReminded15:
			st.Reminded15At = stamp
		case notification.StatusReminded30:
			st.Reminded30At = stamp
		}
	}), nil
}

func (s *StateStore) Resolve(_ context.Context, key notification.Key, from notification.Status, action string, at time.Time) (bool, error) {
	return s.update(key, from, func(st *notification.State) {
		st.Status = notification.StatusResolved
		st.ResolvedAt = sql.NullTime{Time: at.UTC(), Valid: true}
		st.ActionTaken = sql.NullString{String: action, Valid: true}
	}), nil
}

func (s *StateStore) Unresolve(_ context.Context, key notification.Key, action string, to notification.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	if !ok || st.Status != notification.StatusResolved || st.ActionTaken.String != action {
		return false, nil
	}
	st.Status = to
	st.ResolvedAt = sql.NullTime{}
	st.ActionTaken = sql.NullString{}
	st.UpdatedAt = s.now()
	s.states[key] = st
	return true, nil
}

func (s *StateStore) Reschedule(_ context.Context, key notification.Key, from notification.Status, scheduledAt time.Time) (bool, error) {
	return s.update(key, from, func(st *notification.State) {
		st.Status = notification.StatusPending
		st.ScheduledAt = scheduledAt.UTC()
		st.SentAt = sql.NullTime{}
		st.Reminded15At = sql.NullTime{}
		st.Reminded30At = sql.NullTime{}
		st.ActionTaken = sql.NullString{}
	}), nil
}

// Len reports how many records are stored.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) update(key notification.Key, from notification.Status, apply func(*notification.State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	if !ok || st.Status != from {
		return false
	}
	apply(&st)
	st.UpdatedAt = s.now()
	s.states[key] = st
	return true
}

func (s *StateStore) list(match func(notification.State) bool) []*notification.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*notification.State, 0)
	for _, st := range s.states {
		if match(st) {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].SlotLabel < out[j].SlotLabel
	})
	return out
}
