package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"health_notification_service/internal/domain/notification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stateRowColumns = []string{
	"user_id", "date", "slot_label", "kind", "scheduled_at", "status",
	"sent_at", "reminded_15_at", "reminded_30_at", "resolved_at", "action_taken", "created_at", "updated_at",
}

func newMock(t *testing.T) (*PostgresNotificationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresNotificationRepository(db), mock
}

var testKey = notification.Key{UserID: "u1", Date: "2024-06-01", SlotLabel: "wake"}

func TestNotificationRepo_Upsert(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT INTO notification_states .* ON CONFLICT ON CONSTRAINT notification_states_user_date_slot_key`).
		WithArgs("u1", "2024-06-01", "wake", "wake", at, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO notification_states`).
		WithArgs("u1", "2024-06-01", "wake", "wake", at, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

	slot := notification.PlannedSlot{SlotLabel: "wake", Kind: notification.KindWake, ScheduledAt: at}
	inserted, err := repo.Upsert(context.Background(), "u1", "2024-06-01", slot)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Upsert(context.Background(), "u1", "2024-06-01", slot)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestNotificationRepo_Get(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sent := at.Add(time.Minute)

	mock.ExpectQuery(`(?s)SELECT .* FROM notification_states\s+WHERE user_id = \$1 AND date = \$2 AND slot_label = \$3`).
		WithArgs("u1", "2024-06-01", "wake").
		WillReturnRows(sqlmock.NewRows(stateRowColumns).
			AddRow("u1", "2024-06-01", "wake", "wake", at, "sent", sent, nil, nil, nil, nil, at, sent))
	mock.ExpectQuery(`(?s)SELECT .* FROM notification_states`).
		WithArgs("u1", "2024-06-01", "wake").
		WillReturnRows(sqlmock.NewRows(stateRowColumns))

	st, err := repo.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, st.Status)
	assert.Equal(t, notification.KindWake, st.Kind)
	assert.True(t, st.SentAt.Valid)
	assert.Equal(t, sent, st.SentAt.Time)
	assert.False(t, st.ActionTaken.Valid)

	_, err = repo.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, notification.ErrStateNotFound)
}

func TestNotificationRepo_ListOpen(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE date = \$1 AND status NOT IN \(\$2, \$3\)`).
		WithArgs("2024-06-01", "resolved", "expired").
		WillReturnRows(sqlmock.NewRows(stateRowColumns).
			AddRow("u1", "2024-06-01", "wake", "wake", at, "pending", nil, nil, nil, nil, nil, at, at).
			AddRow("u2", "2024-06-01", "hydration_1", "hydration", at, "reminded_15", at, at, nil, nil, nil, at, at))

	states, err := repo.ListOpen(context.Background(), "2024-06-01")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "u1", states[0].UserID)
	assert.Equal(t, notification.KindHydration, states[1].Kind)
	assert.Equal(t, notification.StatusReminded15, states[1].Status)
}

func TestNotificationRepo_AdvanceIsConditional(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)SET status = \$1, reminded_15_at = \$2, .* AND status = \$6`).
		WithArgs("reminded_15", at, "u1", "2024-06-01", "wake", "sent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$1, updated_at = NOW\(\)\s+WHERE .* AND status = \$5`).
		WithArgs("expired", "u1", "2024-06-01", "wake", "reminded_30").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.Advance(context.Background(), testKey, notification.StatusSent, notification.StatusReminded15, at)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Advance(context.Background(), testKey, notification.StatusReminded30, notification.StatusExpired, at)
	require.NoError(t, err)
	assert.False(t, applied, "zero rows means another writer got there first")

	_, err = repo.Advance(context.Background(), testKey, notification.StatusSent, notification.StatusResolved, at)
	assert.ErrorIs(t, err, ErrUnsupportedTransition)
}

func TestNotificationRepo_ResolveAndReschedule(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 6, 1, 8, 20, 0, 0, time.UTC)

	mock.ExpectExec(`SET status = \$1, resolved_at = \$2, action_taken = \$3`).
		WithArgs("resolved", at, "yes", "u1", "2024-06-01", "wake", "reminded_15").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$1, scheduled_at = \$2, sent_at = NULL`).
		WithArgs("pending", at.Add(15*time.Minute), "u1", "2024-06-01", "wake", "sent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE notification_states`).
		WillReturnError(errors.New("connection reset"))

	applied, err := repo.Resolve(context.Background(), testKey, notification.StatusReminded15, "yes", at)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Reschedule(context.Background(), testKey, notification.StatusSent, at.Add(15*time.Minute))
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = repo.Resolve(context.Background(), testKey, notification.StatusSent, "yes", at)
	assert.Error(t, err)
}

func TestNotificationRepo_Unresolve(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`(?s)SET status = \$1, resolved_at = NULL, action_taken = NULL.*AND status = \$5 AND action_taken = \$6`).
		WithArgs("reminded_15", "u1", "2024-06-01", "wake", "resolved", "yes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE notification_states`).
		WithArgs("sent", "u1", "2024-06-01", "wake", "resolved", "no").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.Unresolve(context.Background(), testKey, "yes", notification.StatusReminded15)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Unresolve(context.Background(), testKey, "no", notification.StatusSent)
	require.NoError(t, err)
	assert.False(t, applied)
}
