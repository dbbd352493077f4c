package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"health_notification_service/internal/domain/user"

	"github.com/lib/pq" // For pq.Array
)

const userColumns = `id, name, device_token, preferences, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByDeviceToken(ctx context.Context, token string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE device_token = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by device token: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) ListWithDeviceToken(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + `
               FROM users WHERE device_token IS NOT NULL AND device_token <> '' ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing users with device tokens: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) DeviceTokens(ctx context.Context, ids []string) (map[string]string, error) {
	tokens := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return tokens, nil
	}
	query := `SELECT id, device_token FROM users
               WHERE id = ANY($1::varchar[]) AND device_token IS NOT NULL AND device_token <> ''`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error querying device tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("error scanning device token: %w", err)
		}
		tokens[id] = token
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}
	return tokens, nil
}

// RegisterDeviceToken stores token for id, creating the user row if needed.
// A token belongs to one user at a time; any previous holder loses it.
func (r *PostgresUserRepository) RegisterDeviceToken(ctx context.Context, id, token string) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for token registration: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx,
		`UPDATE users SET device_token = NULL, updated_at = NOW() WHERE device_token = $1 AND id <> $2`,
		token, id); err != nil {
		return fmt.Errorf("error releasing device token from previous user: %w", err)
	}
	if _, err := txn.ExecContext(ctx,
		`INSERT INTO users (id, device_token) VALUES ($1, $2)
               ON CONFLICT (id) DO UPDATE SET device_token = EXCLUDED.device_token, updated_at = NOW()`,
		id, token); err != nil {
		return fmt.Errorf("error registering device token: %w", err)
	}
	return txn.Commit()
}

func (r *PostgresUserRepository) ClearDeviceToken(ctx context.Context, id, staleToken string) (bool, error) {
	query := `UPDATE users SET device_token = NULL, updated_at = NOW()
               WHERE id = $1 AND device_token = $2`
	res, err := r.db.ExecContext(ctx, query, id, staleToken)
	if err != nil {
		return false, fmt.Errorf("error clearing device token: %w", err)
	}
	return affected(res)
}

func (r *PostgresUserRepository) SavePreferences(ctx context.Context, id string, prefs user.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}
	query := `INSERT INTO users (id, preferences) VALUES ($1, $2)
               ON CONFLICT (id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, id, raw); err != nil {
		return fmt.Errorf("error saving preferences: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	var prefs []byte
	if err := row.Scan(&u.ID, &u.Name, &u.DeviceToken, &prefs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("error decoding preferences of user %s: %w", u.ID, err)
		}
		u.PreferencesSaved = true
	}
	return u, nil
}
