package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"

	"github.com/sirupsen/logrus"
)

// TestSlotPrefix marks payloads sent by SendTest; no state record exists for them.
const TestSlotPrefix = "test_"

// StatusService serves the read-only listing and manual test sends.
type StatusService struct {
	states   notification.Repository
	users    user.Repository
	gateway  delivery.Gateway
	clock    clock.Clocker
	timeout  time.Duration
	ml       int
	observer Observer
	logger   *logrus.Entry
}

func NewStatusService(
	states notification.Repository,
	users user.Repository,
	gateway delivery.Gateway,
	clk clock.Clocker,
	timeout time.Duration,
	hydrationML int,
	observer Observer,
	logger *logrus.Entry,
) *StatusService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &StatusService{
		states:   states,
		users:    users,
		gateway:  gateway,
		clock:    clk,
		timeout:  timeout,
		ml:       hydrationML,
		observer: observer,
		logger:   logger,
	}
}

// ListStates returns the user's slot records for date ordered by instant.
func (s *StatusService) ListStates(ctx context.Context, userID, date string) ([]*notification.State, error) {
	if date == "" {
		date = Today(s.clock)
	}
	if _, err := time.Parse(notification.DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	states, err := s.states.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list states for %s on %s: %w", userID, date, err)
	}
	return states, nil
}

// SendTest pushes one initial-send rendering of kind to the user's device.
func (s *StatusService) SendTest(ctx context.Context, userID string, kind notification.Kind) (string, error) {
	tmpl, ok := notification.TemplateFor(kind)
	if !ok {
		return "", ErrUnknownKind
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", ErrNoDeviceToken
		}
		return "", fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if !u.HasDeviceToken() {
		return "", ErrNoDeviceToken
	}

	payload := tmpl.WithHydrationML(s.ml).Render(userID, TestSlotPrefix+string(kind), Today(s.clock), 0)
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res := s.gateway.Send(sendCtx, u.DeviceToken.String, payload)
	s.observer.DeliveryAttempted(res.ErrorKind, res.Success)
	if !res.Success {
		s.logger.WithError(res.Err).WithFields(logrus.Fields{
			"user_id":    userID,
			"kind":       kind,
			"error_kind": res.ErrorKind,
		}).Warn("Test notification failed")
		return "", fmt.Errorf("%w (%s): %v", ErrDeliveryFailed, res.ErrorKind, res.Err)
	}
	return res.MessageID, nil
}
