package metrics

import (
	"testing"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TransitionApplied(notification.StatusSent)
	m.TransitionApplied(notification.StatusSent)
	m.TransitionConflict("cycle")
	m.DeliveryAttempted(delivery.ErrorKindTokenInvalid, false)
	m.ActionHandled(notification.ClassSnooze)
	m.SlotsSeeded(16)
	m.CycleCompleted(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("cycle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("false", "token_invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("snooze")))
	assert.Equal(t, 16.0, testutil.ToFloat64(m.slotsSeeded))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}
