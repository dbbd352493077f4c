package database

import (
	"context"
	"testing"
	"time"

	"health_notification_service/internal/domain/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "name", "device_token", "preferences", "created_at", "updated_at"}

func newUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresUserRepository(db), mock
}

func TestUserRepo_GetByID(t *testing.T) {
	repo, mock := newUserMock(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "Ana", "tok-1", []byte(`{"enabled":true,"timezone":"Europe/Lisbon","times":{"wake":"07:00"}}`), now, now))
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u2", "", nil, nil, now, now))
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.HasDeviceToken())
	assert.True(t, u.PreferencesSaved)
	assert.True(t, u.Preferences.Enabled)
	assert.Equal(t, "Europe/Lisbon", u.Preferences.Timezone)
	assert.Equal(t, "07:00", u.Preferences.Times["wake"])

	u, err = repo.GetByID(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, u.HasDeviceToken())
	assert.False(t, u.PreferencesSaved)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepo_DeviceTokens(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectQuery(`WHERE id = ANY\(\$1::varchar\[\]\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_token"}).AddRow("u1", "tok-1"))

	tokens, err := repo.DeviceTokens(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "tok-1"}, tokens)

	tokens, err = repo.DeviceTokens(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestUserRepo_RegisterDeviceToken(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET device_token = NULL`).
		WithArgs("tok-1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users \(id, device_token\)`).
		WithArgs("u1", "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RegisterDeviceToken(context.Background(), "u1", "tok-1"))
}

func TestUserRepo_ClearDeviceTokenIsConditional(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectExec(`WHERE id = \$1 AND device_token = \$2`).
		WithArgs("u1", "old-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	cleared, err := repo.ClearDeviceToken(context.Background(), "u1", "old-token")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestUserRepo_SavePreferences(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectExec(`INSERT INTO users \(id, preferences\)`).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SavePreferences(context.Background(), "u1", user.DefaultPreferences())
	require.NoError(t, err)
}
