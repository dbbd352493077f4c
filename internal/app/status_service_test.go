package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusService(f *fixture) *StatusService {
	return NewStatusService(f.states, f.users, f.gateway, f.clock, time.Second, 250, nil, f.seeder.logger)
}

func TestStatus_ListStates(t *testing.T) {
	f := newFixture(t, utc("2024-06-01T06:00:00Z"))
	svc := newStatusService(f)
	f.plant(t, "u1", day, "lunch", utc("2024-06-01T13:00:00Z"))
	f.plant(t, "u1", day, "wake", utc("2024-06-01T07:00:00Z"))
	f.plant(t, "u2", day, "wake", utc("2024-06-01T07:00:00Z"))

	states, err := svc.ListStates(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "wake", states[0].SlotLabel)
	assert.Equal(t, "lunch", states[1].SlotLabel)

	_, err = svc.ListStates(context.Background(), "u1", "yesterday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestStatus_SendTest(t *testing.T) {
	f := newFixture(t, utc("2024-06-01T06:00:00Z"))
	svc := newStatusService(f)
	f.addUser("u1", "tok-1", "UTC", nil)
	f.addUser("u2", "", "UTC", nil)
	ctx := context.Background()

	id, err := svc.SendTest(ctx, "u1", notification.KindHydration)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	sent := f.gateway.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "test_hydration", sent[0].Payload[delivery.KeySlot])
	assert.Equal(t, "0", sent[0].Payload[delivery.KeyReminderCount])
	assert.Equal(t, "Time to drink 250 ml of water! Tap Yes to log it.", sent[0].Payload[delivery.KeyBody])
	assert.Equal(t, 0, f.states.Len(), "test sends leave no state behind")

	_, err = svc.SendTest(ctx, "u1", "brunch")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = svc.SendTest(ctx, "u2", notification.KindWake)
	assert.ErrorIs(t, err, ErrNoDeviceToken)

	_, err = svc.SendTest(ctx, "nobody", notification.KindWake)
	assert.ErrorIs(t, err, ErrNoDeviceToken)

	f.gateway.send = func(context.Context, string, delivery.Payload) delivery.Result {
		return delivery.Failed(delivery.ErrorKindTransient, errors.New("quota exceeded"))
	}
	_, err = svc.SendTest(ctx, "u1", notification.KindWake)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}
