// internal/app/seed_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"

	"github.com/sirupsen/logrus"
)

// SeedResult summarises one seeding run.
type SeedResult struct {
	Date     string `json:"date"`
	Users    int    `json:"users"`
	Upserted int    `json:"slots_seeded"`
	Inserted int    `json:"inserted"`
	// Refreshed counts past slots whose stored schedule was updated in place.
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// SeedService materialises daily schedules into the state store.
type SeedService struct {
	users    user.Repository
	states   notification.Repository
	clock    clock.Clocker
	observer Observer
	logger   *logrus.Entry
}

func NewSeedService(
	users user.Repository,
	states notification.Repository,
	clk clock.Clocker,
	observer Observer,
	logger *logrus.Entry,
) *SeedService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &SeedService{
		users:    users,
		states:   states,
		clock:    clk,
		observer: observer,
		logger:   logger,
	}
}

// Today returns the current UTC calendar date.
func Today(clk clock.Clocker) string {
	return clk.Now().UTC().Format(notification.DateLayout)
}

// Seed creates pending records for every user with a device token. Slots
// already in the past are skipped. Safe to run repeatedly for the same date.
func (s *SeedService) Seed(ctx context.Context, date string) (SeedResult, error) {
	if date == "" {
		date = Today(s.clock)
	}
	if _, err := time.Parse(notification.DateLayout, date); err != nil {
		return SeedResult{}, ErrInvalidDate
	}
	res := SeedResult{Date: date}

	users, err := s.users.ListWithDeviceToken(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list users with device tokens")
		return res, fmt.Errorf("failed to list users for seeding: %w", err)
	}
	res.Users = len(users)

	now := s.clock.Now()
	for _, u := range users {
		slots := BuildSchedule(u.Preferences, date, now, true)
		for _, slot := range slots {
			inserted, err := s.states.Upsert(ctx, u.ID, date, slot)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"user_id": u.ID,
					"date":    date,
					"slot":    slot.SlotLabel,
				}).Error("Failed to upsert slot state")
				res.Failed++
				continue
			}
			res.Upserted++
			if inserted {
				res.Inserted++
			}
		}
	}

	s.observer.SlotsSeeded(res.Upserted)
	s.logger.WithFields(logrus.Fields{
		"date":     date,
		"users":    res.Users,
		"upserted": res.Upserted,
		"inserted": res.Inserted,
		"failed":   res.Failed,
	}).Info("Daily slot states seeded")
	return res, nil
}

// ReseedUser rewrites a user's schedule for date after a preference change.
// Future slots are upserted; past slots only refresh an existing record so no
// backlog is fired. Open records whose slot left the schedule are retired.
func (s *SeedService) ReseedUser(ctx context.Context, u *user.User, date string) (SeedResult, error) {
	res := SeedResult{Date: date, Users: 1}
	now := s.clock.Now()
	slots := BuildSchedule(u.Preferences, date, now, false)
	wanted := make(map[string]struct{}, len(slots))

	for _, slot := range slots {
		wanted[slot.SlotLabel] = struct{}{}
		entry := s.logger.WithFields(logrus.Fields{"user_id": u.ID, "date": date, "slot": slot.SlotLabel})

		if slot.ScheduledAt.Before(now) {
			updated, err := s.states.RefreshSchedule(ctx, notification.Key{UserID: u.ID, Date: date, SlotLabel: slot.SlotLabel}, slot)
			if err != nil {
				entry.WithError(err).Error("Failed to refresh past slot schedule")
				res.Failed++
				continue
			}
			if updated {
				res.Refreshed++
			}
			continue
		}

		inserted, err := s.states.Upsert(ctx, u.ID, date, slot)
		if err != nil {
			entry.WithError(err).Error("Failed to upsert slot state")
			res.Failed++
			continue
		}
		res.Upserted++
		if inserted {
			res.Inserted++
		}
	}

	if err := s.retireDropped(ctx, u.ID, date, wanted, now); err != nil {
		return res, err
	}

	s.observer.SlotsSeeded(res.Upserted)
	s.logger.WithFields(logrus.Fields{
		"user_id":   u.ID,
		"date":      date,
		"upserted":  res.Upserted,
		"refreshed": res.Refreshed,
	}).Info("User schedule reseeded")
	return res, nil
}

// retireDropped resolves open records for slots that are no longer scheduled.
func (s *SeedService) retireDropped(ctx context.Context, userID, date string, wanted map[string]struct{}, now time.Time) error {
	existing, err := s.states.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("failed to list states for user %s on %s: %w", userID, date, err)
	}
	for _, st := range existing {
		if _, ok := wanted[st.SlotLabel]; ok || st.Status.IsTerminal() {
			continue
		}
		applied, err := s.states.Resolve(ctx, st.Key(), st.Status, TagDisabled, now)
		if err != nil {
			return fmt.Errorf("failed to retire slot %s: %w", st.SlotLabel, err)
		}
		if !applied {
			s.observer.TransitionConflict("seed")
			s.logger.WithFields(logrus.Fields{"user_id": userID, "slot": st.SlotLabel}).
				Info("Slot changed before it could be retired; leaving it")
		}
	}
	return nil
}

// TagDisabled marks open slots dropped by a preference change.
const TagDisabled = "disabled"
