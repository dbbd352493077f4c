package app

import (
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"
)

// Observer receives pipeline events for metrics.
type Observer interface {
	TransitionApplied(to notification.Status)
	TransitionConflict(actor string)
	DeliveryAttempted(kind delivery.ErrorKind, success bool)
	ActionHandled(class notification.ActionClass)
	SlotsSeeded(n int)
	CycleCompleted(d time.Duration)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) TransitionApplied(notification.Status) {}
func (NopObserver) TransitionConflict(string) {}
func (NopObserver) DeliveryAttempted(delivery.ErrorKind, bool) {}
func (NopObserver) ActionHandled(notification.ActionClass) {}
func (NopObserver) SlotsSeeded(int) {}
func (NopObserver) CycleCompleted(time.Duration) {}
