package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"
	"health_notification_service/internal/infra/logger"
	"health_notification_service/internal/infra/memory"

	"github.com/stretchr/testify/require"
)

const testInterval = 15 * time.Minute

type sentPush struct {
	Token   string
	Payload delivery.Payload
}

// fakeGateway records pushes. send, when set, decides each result.
type fakeGateway struct {
	mu   sync.Mutex
	sent []sentPush
	send func(ctx context.Context, token string, payload delivery.Payload) delivery.Result
}

func (g *fakeGateway) Send(ctx context.Context, token string, payload delivery.Payload) delivery.Result {
	g.mu.Lock()
	g.sent = append(g.sent, sentPush{Token: token, Payload: payload})
	n := len(g.sent)
	send := g.send
	g.mu.Unlock()
	if send != nil {
		return send(ctx, token, payload)
	}
	return delivery.Ok(fmt.Sprintf("msg-%d", n))
}

func (g *fakeGateway) Sent() []sentPush {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentPush(nil), g.sent...)
}

type fixture struct {
	clock   *clock.Fixed
	states  *memory.StateStore
	users   *memory.UserStore
	logs    *memory.HealthLogStore
	gateway *fakeGateway

	seeder *SeedService
	engine *CycleEngine
	action *ActionService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.NewFixed(now),
		states:  memory.NewStateStore(),
		users:   memory.NewUserStore(),
		logs:    memory.NewHealthLogStore(),
		gateway: &fakeGateway{},
	}
	log := logger.Discard()
	f.seeder = NewSeedService(f.users, f.states, f.clock, nil, log)
	f.engine = NewCycleEngine(f.states, f.users, f.gateway, f.clock, CycleConfig{
		ReminderInterval:   testInterval,
		DeliveryTimeout:    time.Second,
		Concurrency:        4,
		HydrationMLPerSlot: 250,
	}, nil, log)
	f.action = NewActionService(f.states, f.users, f.logs, f.clock, ActionConfig{
		SnoozeShort:        15 * time.Minute,
		SnoozeLong:         30 * time.Minute,
		HydrationMLPerSlot: 250,
	}, nil, log)
	return f
}

// addUser stores a user with a token and the given local slot times enabled.
func (f *fixture) addUser(id, token, tz string, times map[string]string) {
	u := &user.User{
		ID: id,
		Preferences: user.Preferences{
			Enabled:          true,
			SleepEnabled:     true,
			NutritionEnabled: true,
			HydrationEnabled: true,
			Timezone:         tz,
			Times:            times,
		},
		PreferencesSaved: true,
	}
	if token != "" {
		u.DeviceToken = sql.NullString{String: token, Valid: true}
	}
	f.users.Put(u)
}

// plant inserts a pending slot directly.
func (f *fixture) plant(t *testing.T, userID, date, label string, at time.Time) notification.Key {
	t.Helper()
	kind, ok := notification.KindForSlot(label)
	require.True(t, ok, label)
	_, err := f.states.Upsert(context.Background(), userID, date, notification.PlannedSlot{SlotLabel: label, Kind: kind, ScheduledAt: at})
	require.NoError(t, err)
	return notification.Key{UserID: userID, Date: date, SlotLabel: label}
}

func (f *fixture) state(t *testing.T, key notification.Key) *notification.State {
	t.Helper()
	st, err := f.states.Get(context.Background(), key)
	require.NoError(t, err)
	return st
}

// runAt moves the clock to at and runs one cycle.
func (f *fixture) runAt(t *testing.T, at time.Time) CycleStats {
	t.Helper()
	f.clock.Set(at)
	stats, err := f.engine.Run(context.Background())
	require.NoError(t, err)
	return stats
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
