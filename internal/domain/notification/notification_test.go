package notification

import (
	"database/sql"
	"testing"
	"time"

	"health_notification_service/internal/domain/delivery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStage_Ladder(t *testing.T) {
	status := StatusPending
	var counts []int
	for {
		stage, ok := NextStage(status)
		if !ok {
			break
		}
		if stage.Delivers() {
			counts = append(counts, stage.ReminderCount)
		}
		status = stage.To
	}
	assert.Equal(t, StatusExpired, status)
	assert.Equal(t, []int{0, 1, 2}, counts)

	_, ok := NextStage(StatusResolved)
	assert.False(t, ok)
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, Status("snoozed").Valid())
}

func TestStageStartedAt(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	st := State{Status: StatusPending, ScheduledAt: at}
	got, ok := st.StageStartedAt()
	require.True(t, ok)
	assert.Equal(t, at, got)

	st = State{Status: StatusReminded15, Reminded15At: sql.NullTime{Time: at.Add(time.Minute), Valid: true}}
	got, ok = st.StageStartedAt()
	require.True(t, ok)
	assert.Equal(t, at.Add(time.Minute), got)

	st = State{Status: StatusSent}
	_, ok = st.StageStartedAt()
	assert.False(t, ok, "missing stamp")
}

func TestTemplateRender(t *testing.T) {
	for _, label := range AllSlots() {
		kind, ok := KindForSlot(label)
		require.True(t, ok, label)
		_, ok = TemplateFor(kind)
		assert.True(t, ok, "every kind has a template: %s", kind)
	}

	tmpl, _ := TemplateFor(KindHydration)
	first := tmpl.Render("u1", "hydration_3", "2024-06-01", 0)
	assert.Equal(t, delivery.Payload{
		"notification_type": "hydration",
		"slot_label":        "hydration_3",
		"date":              "2024-06-01",
		"uid":               "u1",
		"title":             "Hydration check 💧",
		"body":              "Time to drink 250 ml of water! Tap Yes to log it.",
		"actions":           "yes,need_15_min,need_30_min",
		"is_reminder":       "false",
		"reminder_count":    "0",
		"emoji":             "💧",
	}, first)

	second := tmpl.Render("u1", "hydration_3", "2024-06-01", 2)
	assert.Equal(t, ReminderPrefix+"Hydration check 💧", second[delivery.KeyTitle])
	assert.Equal(t, "true", second[delivery.KeyIsReminder])
	assert.Equal(t, "2", second[delivery.KeyReminderCount])
	assert.Equal(t, first[delivery.KeyBody], second[delivery.KeyBody])

	large := tmpl.WithHydrationML(400).Render("u1", "hydration_3", "2024-06-01", 0)
	assert.Equal(t, "Time to drink 400 ml of water! Tap Yes to log it.", large[delivery.KeyBody])

	wake, _ := TemplateFor(KindWake)
	assert.Equal(t, wake.Body, wake.WithHydrationML(400).Render("u1", "wake", "2024-06-01", 0)[delivery.KeyBody])
}

func TestResolveAction(t *testing.T) {
	a, ok := ResolveAction(KindHydration, ActionML750)
	require.True(t, ok)
	assert.Equal(t, 750, a.HydrationML)

	_, ok = ResolveAction(KindWake, ActionML500)
	assert.False(t, ok)

	a, ok = ResolveAction(KindLunch, ActionSnooze30)
	require.True(t, ok)
	assert.Equal(t, ClassSnooze, a.Class)
	assert.Equal(t, SnoozeLong, a.Snooze)

	a, ok = ResolveAction(KindDinner, ActionSkippedMeal)
	require.True(t, ok)
	assert.Equal(t, ClassResolveWithLog, a.Class)

	a, ok = ResolveAction(KindBedtime, ActionDismiss)
	require.True(t, ok)
	assert.Equal(t, TagDismissed, a.Tag)

	_, ok = ResolveAction(Kind("brunch"), ActionYes)
	assert.False(t, ok)
}

func TestKindForSlot(t *testing.T) {
	k, ok := KindForSlot("hydration_8")
	require.True(t, ok)
	assert.Equal(t, KindHydration, k)

	_, ok = KindForSlot("hydration")
	assert.False(t, ok, "bare kind name is not a slot")
	_, ok = KindForSlot("hydration_9")
	assert.False(t, ok)

	assert.Len(t, AllSlots(), 16)
	_, err := ParseKind("afternoon_break")
	assert.NoError(t, err)
	_, err = ParseKind("hydration_1")
	assert.Error(t, err)
}
