package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"health_notification_service/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_ConditionalUpdates(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	key := notification.Key{UserID: "u1", Date: "2024-06-01", SlotLabel: "wake"}

	inserted, err := s.Upsert(ctx, "u1", "2024-06-01", notification.PlannedSlot{SlotLabel: "wake", Kind: notification.KindWake, ScheduledAt: at})
	require.NoError(t, err)
	assert.True(t, inserted)

	applied, _ := s.Advance(ctx, key, notification.StatusSent, notification.StatusReminded15, at)
	assert.False(t, applied, "precondition does not hold")

	applied, _ = s.Advance(ctx, key, notification.StatusPending, notification.StatusSent, at)
	assert.True(t, applied)

	inserted, _ = s.Upsert(ctx, "u1", "2024-06-01", notification.PlannedSlot{SlotLabel: "wake", Kind: notification.KindWake, ScheduledAt: at.Add(time.Hour)})
	assert.False(t, inserted)
	st, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, st.Status, "upsert never touches status")
	assert.Equal(t, at.Add(time.Hour), st.ScheduledAt)

	updated, _ := s.RefreshSchedule(ctx, notification.Key{UserID: "u1", Date: "2024-06-01", SlotLabel: "lunch"}, notification.PlannedSlot{})
	assert.False(t, updated)

	_, err = s.Get(ctx, notification.Key{UserID: "nobody"})
	assert.ErrorIs(t, err, notification.ErrStateNotFound)
}

func TestStateStore_OneWinnerUnderContention(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	_, _ = s.Upsert(ctx, "u1", "2024-06-01", notification.PlannedSlot{SlotLabel: "wake", Kind: notification.KindWake, ScheduledAt: at})
	key := notification.Key{UserID: "u1", Date: "2024-06-01", SlotLabel: "wake"}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok, _ = s.Resolve(ctx, key, notification.StatusPending, "yes", at)
			} else {
				ok, _ = s.Advance(ctx, key, notification.StatusPending, notification.StatusSent, at)
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStateStore_ListOrdering(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	plant := func(uid, label string, when time.Time) {
		kind, _ := notification.KindForSlot(label)
		_, _ = s.Upsert(ctx, uid, "2024-06-01", notification.PlannedSlot{SlotLabel: label, Kind: kind, ScheduledAt: when})
	}
	plant("b", "wake", at)
	plant("a", "lunch", at.Add(5*time.Hour))
	plant("a", "hydration_1", at)
	plant("a", "breakfast", at)
	_, _ = s.Resolve(ctx, notification.Key{UserID: "b", Date: "2024-06-01", SlotLabel: "wake"}, notification.StatusPending, "yes", at)

	open, err := s.ListOpen(ctx, "2024-06-01")
	require.NoError(t, err)
	labels := make([]string, 0, len(open))
	for _, st := range open {
		labels = append(labels, st.UserID+"/"+st.SlotLabel)
	}
	assert.Equal(t, []string{"a/breakfast", "a/hydration_1", "a/lunch"}, labels)

	all, _ := s.ListByUserAndDate(ctx, "b", "2024-06-01")
	require.Len(t, all, 1)
	assert.Equal(t, notification.StatusResolved, all[0].Status)
}

func TestStateStore_UnresolveRequiresMatchingAction(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	key := notification.Key{UserID: "u1", Date: "2024-06-01", SlotLabel: "hydration_1"}

	_, err := s.Upsert(ctx, "u1", "2024-06-01", notification.PlannedSlot{SlotLabel: "hydration_1", Kind: notification.KindHydration, ScheduledAt: at})
	require.NoError(t, err)
	applied, _ := s.Advance(ctx, key, notification.StatusPending, notification.StatusSent, at)
	require.True(t, applied)

	applied, _ = s.Unresolve(ctx, key, "yes", notification.StatusSent)
	assert.False(t, applied, "record is not resolved")

	applied, _ = s.Resolve(ctx, key, notification.StatusSent, "yes", at)
	require.True(t, applied)

	applied, _ = s.Unresolve(ctx, key, "no", notification.StatusSent)
	assert.False(t, applied, "resolved by another action")

	applied, _ = s.Unresolve(ctx, key, "yes", notification.StatusSent)
	assert.True(t, applied)

	st, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, st.Status)
	assert.False(t, st.ResolvedAt.Valid)
	assert.False(t, st.ActionTaken.Valid)
}
