// internal/app/action_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"health_notification_service/internal/domain/healthlog"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"

	"github.com/sirupsen/logrus"
)

// maxTransitionAttempts bounds the reload-and-retry loop when a concurrent
// writer keeps moving the slot under us.
const maxTransitionAttempts = 3

// ActionConfig holds the tunables of the action handler.
type ActionConfig struct {
	SnoozeShort        time.Duration
	SnoozeLong         time.Duration
	HydrationMLPerSlot int
}

// ActionRequest is one inbound user action on a slot.
type ActionRequest struct {
	UserID    string
	Kind      notification.Kind // optional; checked against the stored kind when set
	SlotLabel string
	Action    notification.ActionID
	Date      string // optional; defaults to today (UTC)
}

// ActionOutcome describes what an action did.
type ActionOutcome struct {
	Class  notification.ActionClass `json:"-"`
	Status notification.Status      `json:"status"`
	Tag    string                   `json:"action_taken,omitempty"`
	// ResendAt is the new scheduled instant after a snooze.
	ResendAt    *time.Time `json:"resend_at,omitempty"`
	HydrationML int        `json:"hydration_ml,omitempty"`
	// AlreadyResolved is set when the slot was resolved before this request.
	AlreadyResolved bool `json:"already_resolved,omitempty"`
}

// ActionService applies user actions to slot states and writes health facts.
type ActionService struct {
	states   notification.Repository
	users    user.Repository
	logs     healthlog.Store
	clock    clock.Clocker
	cfg      ActionConfig
	observer Observer
	logger   *logrus.Entry
}

func NewActionService(
	states notification.Repository,
	users user.Repository,
	logs healthlog.Store,
	clk clock.Clocker,
	cfg ActionConfig,
	observer Observer,
	logger *logrus.Entry,
) *ActionService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ActionService{
		states:   states,
		users:    users,
		logs:     logs,
		clock:    clk,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Handle validates req against the stored slot and applies it.
func (s *ActionService) Handle(ctx context.Context, req ActionRequest) (ActionOutcome, error) {
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return ActionOutcome{}, err
	}
	key := notification.Key{UserID: req.UserID, Date: date, SlotLabel: req.SlotLabel}

	st, err := s.states.Get(ctx, key)
	if err != nil {
		return ActionOutcome{}, err
	}
	if req.Kind != "" && req.Kind != st.Kind {
		return ActionOutcome{}, ErrKindMismatch
	}
	spec, ok := notification.ResolveAction(st.Kind, req.Action)
	if !ok {
		return ActionOutcome{}, fmt.Errorf("%w: %q for %s", ErrUnknownAction, req.Action, st.Kind)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"date":    date,
		"slot":    req.SlotLabel,
		"action":  req.Action,
	})

	var out ActionOutcome
	switch spec.Class {
	case notification.ClassSnooze:
		out, err = s.snooze(ctx, st, spec, entry)
	case notification.ClassDismiss:
		out, err = s.resolve(ctx, st, spec, entry, false)
	default:
		out, err = s.resolve(ctx, st, spec, entry, true)
	}
	if err != nil {
		return out, err
	}
	s.observer.ActionHandled(spec.Class)
	return out, nil
}

// Dismiss silences a slot without writing any health fact.
func (s *ActionService) Dismiss(ctx context.Context, userID, slotLabel, date string) (ActionOutcome, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return ActionOutcome{}, err
	}
	st, err := s.states.Get(ctx, notification.Key{UserID: userID, Date: date, SlotLabel: slotLabel})
	if err != nil {
		return ActionOutcome{}, err
	}
	spec, _ := notification.ResolveAction(st.Kind, notification.ActionDismiss)
	entry := s.logger.WithFields(logrus.Fields{"user_id": userID, "date": date, "slot": slotLabel, "action": "dismiss"})

	out, err := s.resolve(ctx, st, spec, entry, false)
	if err != nil {
		return out, err
	}
	s.observer.ActionHandled(notification.ClassDismiss)
	return out, nil
}

func (s *ActionService) resolveDate(date string) (string, error) {
	if date == "" {
		return Today(s.clock), nil
	}
	if _, err := time.Parse(notification.DateLayout, date); err != nil {
		return "", ErrInvalidDate
	}
	return date, nil
}

// snooze resets st to pending with a fresh instant. Terminal slots are closed.
func (s *ActionService) snooze(ctx context.Context, st *notification.State, spec notification.ActionSpec, entry *logrus.Entry) (ActionOutcome, error) {
	d := s.cfg.SnoozeShort
	if spec.Snooze == notification.SnoozeLong {
		d = s.cfg.SnoozeLong
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		if st.Status.IsTerminal() {
			return ActionOutcome{Class: spec.Class, Status: st.Status}, ErrSlotClosed
		}
		resendAt := s.clock.Now().UTC().Add(d)
		applied, err := s.states.Reschedule(ctx, st.Key(), st.Status, resendAt)
		if err != nil {
			entry.WithError(err).Error("Failed to reschedule slot")
			return ActionOutcome{}, fmt.Errorf("failed to snooze slot %s: %w", st.SlotLabel, err)
		}
		if applied {
			entry.WithField("resend_at", resendAt).Info("Slot snoozed")
			s.observer.TransitionApplied(notification.StatusPending)
			return ActionOutcome{Class: spec.Class, Status: notification.StatusPending, Tag: spec.Tag, ResendAt: &resendAt}, nil
		}

		s.observer.TransitionConflict("action")
		entry.WithField("expected", st.Status).Info("Slot moved during snooze; reloading")
		if st, err = s.states.Get(ctx, st.Key()); err != nil {
			return ActionOutcome{}, err
		}
	}
	return ActionOutcome{}, fmt.Errorf("failed to snooze slot %s: too much contention", st.SlotLabel)
}

// resolve marks st resolved from whatever status it is in. Only the request
// that wins the transition writes the health fact.
func (s *ActionService) resolve(ctx context.Context, st *notification.State, spec notification.ActionSpec, entry *logrus.Entry, withLog bool) (ActionOutcome, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		if st.Status == notification.StatusResolved {
			entry.WithField("action_taken", st.ActionTaken.String).Info("Slot already resolved; nothing to do")
			return ActionOutcome{
				Class:           spec.Class,
				Status:          notification.StatusResolved,
				Tag:             st.ActionTaken.String,
				AlreadyResolved: true,
			}, nil
		}

		now := s.clock.Now()
		applied, err := s.states.Resolve(ctx, st.Key(), st.Status, spec.Tag, now)
		if err != nil {
			entry.WithError(err).Error("Failed to resolve slot")
			return ActionOutcome{}, fmt.Errorf("failed to resolve slot %s: %w", st.SlotLabel, err)
		}
		if !applied {
			s.observer.TransitionConflict("action")
			entry.WithField("expected", st.Status).Info("Slot moved during resolve; reloading")
			if st, err = s.states.Get(ctx, st.Key()); err != nil {
				return ActionOutcome{}, err
			}
			continue
		}
		s.observer.TransitionApplied(notification.StatusResolved)

		out := ActionOutcome{Class: spec.Class, Status: notification.StatusResolved, Tag: spec.Tag}
		if withLog {
			ml, err := s.writeFact(ctx, st, spec, now)
			if err != nil {
				entry.WithError(err).Error("Health log write failed; reopening slot")
				s.reopen(ctx, st, spec.Tag, entry)
				return ActionOutcome{}, fmt.Errorf("failed to write health log for %s: %w", st.SlotLabel, err)
			}
			out.HydrationML = ml
		}
		entry.WithField("action_taken", spec.Tag).Info("Slot resolved")
		return out, nil
	}
	return ActionOutcome{}, fmt.Errorf("failed to resolve slot %s: too much contention", st.SlotLabel)
}

// reopen puts a slot resolved with tag back into st's prior status so the
// action can be retried.
func (s *ActionService) reopen(ctx context.Context, st *notification.State, tag string, entry *logrus.Entry) {
	applied, err := s.states.Unresolve(ctx, st.Key(), tag, st.Status)
	switch {
	case err != nil:
		entry.WithError(err).Error("Failed to reopen slot after health log failure")
	case !applied:
		entry.Warn("Slot changed before it could be reopened")
	default:
		entry.WithField("status", st.Status).Info("Slot reopened")
	}
}

// writeFact records the kind's health fact. It returns the hydration volume
// written, if any.
func (s *ActionService) writeFact(ctx context.Context, st *notification.State, spec notification.ActionSpec, now time.Time) (int, error) {
	kindSpec, ok := notification.Lookup(st.Kind)
	if !ok {
		return 0, ErrUnknownKind
	}

	switch kindSpec.Fact {
	case notification.FactWakeTime, notification.FactBedTime, notification.FactHydration:
		hhmm := now.In(s.userLocation(ctx, st.UserID)).Format("15:04")
		switch kindSpec.Fact {
		case notification.FactWakeTime:
			return 0, s.logs.SetWakeTime(ctx, st.UserID, st.Date, hhmm)
		case notification.FactBedTime:
			return 0, s.logs.SetBedTime(ctx, st.UserID, st.Date, hhmm)
		}
		ml := spec.HydrationML
		if ml == 0 {
			ml = s.cfg.HydrationMLPerSlot
		}
		return ml, s.logs.AppendHydration(ctx, st.UserID, st.Date, healthlog.HydrationEntry{
			Time:   hhmm,
			ML:     ml,
			Source: healthlog.SourceNotification,
		})
	case notification.FactMeal:
		flag := spec.MealFlag
		if flag == "" {
			flag = "logged"
		}
		return 0, s.logs.MarkMeal(ctx, st.UserID, st.Date, string(st.Kind), flag)
	}
	return 0, nil
}

// userLocation resolves the user's timezone for local wall-clock stamps.
func (s *ActionService) userLocation(ctx context.Context, userID string) *time.Location {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load user timezone; using UTC")
		}
		return time.UTC
	}
	return resolveLocation(u.Preferences.Timezone)
}
