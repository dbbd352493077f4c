package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"health_notification_service/internal/domain/healthlog"
)

// PostgresHealthLogRepository writes notification-driven facts into the daily log.
type PostgresHealthLogRepository struct {
	db *sql.DB
}

func NewPostgresHealthLogRepository(db *sql.DB) *PostgresHealthLogRepository {
	return &PostgresHealthLogRepository{db: db}
}

func (r *PostgresHealthLogRepository) SetWakeTime(ctx context.Context, userID, date, hhmm string) error {
	query := `INSERT INTO daily_logs (user_id, date, wake_time) VALUES ($1, $2, $3)
               ON CONFLICT (user_id, date) DO UPDATE SET wake_time = EXCLUDED.wake_time, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, date, hhmm); err != nil {
		return fmt.Errorf("error setting wake time: %w", err)
	}
	return nil
}

func (r *PostgresHealthLogRepository) SetBedTime(ctx context.Context, userID, date, hhmm string) error {
	query := `INSERT INTO daily_logs (user_id, date, bed_time) VALUES ($1, $2, $3)
               ON CONFLICT (user_id, date) DO UPDATE SET bed_time = EXCLUDED.bed_time, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, date, hhmm); err != nil {
		return fmt.Errorf("error setting bed time: %w", err)
	}
	return nil
}

// AppendHydration creates the day if absent and adds one entry, atomically.
func (r *PostgresHealthLogRepository) AppendHydration(ctx context.Context, userID, date string, entry healthlog.HydrationEntry) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for hydration entry: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx,
		`INSERT INTO daily_logs (user_id, date) VALUES ($1, $2) ON CONFLICT (user_id, date) DO NOTHING`,
		userID, date); err != nil {
		return fmt.Errorf("error ensuring daily log: %w", err)
	}
	if _, err := txn.ExecContext(ctx,
		`INSERT INTO hydration_entries (user_id, date, time, ml, source) VALUES ($1, $2, $3, $4, $5)`,
		userID, date, entry.Time, entry.ML, entry.Source); err != nil {
		return fmt.Errorf("error appending hydration entry: %w", err)
	}
	return txn.Commit()
}

// MarkMeal merges {meal: flag} into the day's meal flags.
func (r *PostgresHealthLogRepository) MarkMeal(ctx context.Context, userID, date, meal, flag string) error {
	raw, err := json.Marshal(map[string]string{meal: flag})
	if err != nil {
		return fmt.Errorf("error encoding meal flag: %w", err)
	}
	query := `INSERT INTO daily_logs (user_id, date, meal_flags) VALUES ($1, $2, $3::jsonb)
               ON CONFLICT (user_id, date) DO UPDATE
               SET meal_flags = daily_logs.meal_flags || EXCLUDED.meal_flags, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, date, string(raw)); err != nil {
		return fmt.Errorf("error marking meal: %w", err)
	}
	return nil
}
