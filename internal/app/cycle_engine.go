// internal/app/cycle_engine.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CycleConfig tunes the reconciliation cycle.
type CycleConfig struct {
	// ReminderInterval is applied three times: sent -> reminded_15 -> reminded_30 -> expired.
	ReminderInterval time.Duration
	DeliveryTimeout  time.Duration
	// Concurrency bounds how many users are processed at once.
	Concurrency int
	// HydrationMLPerSlot is the volume quoted in hydration messages.
	HydrationMLPerSlot int
}

// CycleStats are the aggregate counters of one cycle.
type CycleStats struct {
	Sent       int `json:"sent"`
	Reminded15 int `json:"reminded_15"`
	Reminded30 int `json:"reminded_30"`
	Expired    int `json:"expired"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Conflicts  int `json:"conflicts"`
}

func (s *CycleStats) add(o CycleStats) {
	s.Sent += o.Sent
	s.Reminded15 += o.Reminded15
	s.Reminded30 += o.Reminded30
	s.Expired += o.Expired
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Conflicts += o.Conflicts
}

func (s *CycleStats) count(to notification.Status) {
	switch to {
	case notification.StatusSent:
		s.Sent++
	case notification.StatusReminded15:
		s.Reminded15++
	case notification.StatusReminded30:
		s.Reminded30++
	case notification.StatusExpired:
		s.Expired++
	}
}

// CycleEngine advances today's open slots through the reminder ladder.
type CycleEngine struct {
	states   notification.Repository
	users    user.Repository
	gateway  delivery.Gateway
	clock    clock.Clocker
	cfg      CycleConfig
	observer Observer
	logger   *logrus.Entry
}

func NewCycleEngine(
	states notification.Repository,
	users user.Repository,
	gateway delivery.Gateway,
	clk clock.Clocker,
	cfg CycleConfig,
	observer Observer,
	logger *logrus.Entry,
) *CycleEngine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &CycleEngine{
		states:   states,
		users:    users,
		gateway:  gateway,
		clock:    clk,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

// Run performs one cycle over every non-terminal record of the current UTC day.
func (e *CycleEngine) Run(ctx context.Context) (CycleStats, error) {
	started := time.Now()
	now := e.clock.Now()
	date := now.UTC().Format(notification.DateLayout)
	var stats CycleStats

	open, err := e.states.ListOpen(ctx, date)
	if err != nil {
		e.logger.WithError(err).Error("Failed to load open slot states")
		return stats, fmt.Errorf("failed to list open states for %s: %w", date, err)
	}
	if len(open) == 0 {
		e.logger.WithField("date", date).Debug("No open slots this cycle")
		return stats, nil
	}

	byUser := lo.GroupBy(open, func(s *notification.State) string { return s.UserID })
	userIDs := lo.Uniq(lo.Map(open, func(s *notification.State, _ int) string { return s.UserID }))

	tokens, err := e.users.DeviceTokens(ctx, userIDs)
	if err != nil {
		e.logger.WithError(err).Error("Failed to resolve device tokens")
		return stats, fmt.Errorf("failed to resolve device tokens: %w", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.cfg.Concurrency)
	for _, uid := range userIDs {
		uid := uid
		g.Go(func() error {
			userStats := e.processUser(ctx, uid, tokens[uid], byUser[uid], now)
			mu.Lock()
			stats.add(userStats)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.observer.CycleCompleted(time.Since(started))
	e.logger.WithFields(logrus.Fields{
		"date":        date,
		"open":        len(open),
		"sent":        stats.Sent,
		"reminded_15": stats.Reminded15,
		"reminded_30": stats.Reminded30,
		"expired":     stats.Expired,
		"skipped":     stats.Skipped,
		"failed":      stats.Failed,
		"conflicts":   stats.Conflicts,
	}).Info("Notification cycle done")
	return stats, nil
}

// processUser handles one user's slots sequentially so a stale token found on
// one slot stops sends to the remaining ones.
func (e *CycleEngine) processUser(ctx context.Context, uid, token string, states []*notification.State, now time.Time) CycleStats {
	var stats CycleStats
	stale := false

	for _, st := range states {
		if token == "" || stale {
			stats.Skipped++
			continue
		}
		stage, ok := notification.NextStage(st.Status)
		if !ok {
			continue
		}
		if !e.due(st, now) {
			continue
		}

		entry := e.logger.WithFields(logrus.Fields{
			"user_id": uid,
			"date":    st.Date,
			"slot":    st.SlotLabel,
			"status":  st.Status,
		})

		if stage.Delivers() {
			tmpl, ok := notification.TemplateFor(st.Kind)
			if !ok {
				entry.WithField("kind", st.Kind).Error("No template for notification kind")
				stats.Failed++
				continue
			}
			payload := tmpl.WithHydrationML(e.cfg.HydrationMLPerSlot).Render(uid, st.SlotLabel, st.Date, stage.ReminderCount)
			res := e.deliver(ctx, token, payload)
			e.observer.DeliveryAttempted(res.ErrorKind, res.Success)
			if !res.Success {
				stats.Failed++
				if res.ErrorKind == delivery.ErrorKindTokenInvalid {
					stale = true
					entry.WithError(res.Err).Warn("Device token rejected; purging it")
					e.purgeToken(ctx, uid, token)
				} else {
					entry.WithError(res.Err).Warn("Delivery failed; will retry next cycle")
				}
				continue
			}
		}

		applied, err := e.states.Advance(ctx, st.Key(), stage.From, stage.To, now)
		if err != nil {
			entry.WithError(err).Error("Failed to persist transition")
			stats.Failed++
			continue
		}
		if !applied {
			// Another actor (usually a user action) changed the slot first.
			stats.Conflicts++
			e.observer.TransitionConflict("cycle")
			entry.WithField("to", stage.To).Info("Transition precondition no longer holds; skipping")
			continue
		}
		stats.count(stage.To)
		e.observer.TransitionApplied(stage.To)
		entry.WithField("to", stage.To).Debug("Slot advanced")
	}
	return stats
}

// due reports whether st has reached its next threshold at now.
func (e *CycleEngine) due(st *notification.State, now time.Time) bool {
	startedAt, ok := st.StageStartedAt()
	if !ok {
		e.logger.WithFields(logrus.Fields{
			"user_id": st.UserID,
			"slot":    st.SlotLabel,
			"status":  st.Status,
		}).Warn("Slot is missing its stage timestamp")
		return false
	}
	threshold := startedAt
	if st.Status != notification.StatusPending {
		threshold = startedAt.Add(e.cfg.ReminderInterval)
	}
	return !now.Before(threshold)
}

// deliver calls the gateway with a bounded wait. A gateway that ignores the
// context is abandoned once the timeout passes.
func (e *CycleEngine) deliver(ctx context.Context, token string, payload delivery.Payload) delivery.Result {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.DeliveryTimeout)
	defer cancel()

	done := make(chan delivery.Result, 1)
	go func() {
		done <- e.gateway.Send(callCtx, token, payload)
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		return delivery.Failed(delivery.ErrorKindTransient, fmt.Errorf("delivery timed out: %w", callCtx.Err()))
	}
}

func (e *CycleEngine) purgeToken(ctx context.Context, uid, token string) {
	cleared, err := e.users.ClearDeviceToken(ctx, uid, token)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", uid).Error("Failed to clear stale device token")
		return
	}
	if cleared {
		e.logger.WithField("user_id", uid).Warn("Cleared stale device token")
	}
}
