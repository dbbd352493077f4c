// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"health_notification_service/internal/domain/notification"
)

// ErrUnsupportedTransition is returned for a target status Advance cannot write.
var ErrUnsupportedTransition = errors.New("unsupported status transition")

const stateColumns = `user_id, date::text, slot_label, kind, scheduled_at, status,
               sent_at, reminded_15_at, reminded_30_at, resolved_at, action_taken, created_at, updated_at`

// stageColumn is the timestamp stamped when a slot enters a status.
var stageColumn = map[notification.Status]string{
	notification.StatusSent:       "sent_at",
	notification.StatusReminded15: "reminded_15_at",
	notification.StatusReminded30: "reminded_30_at",
}

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Upsert inserts a pending record, or refreshes kind and instant of an
// existing one. Status and stage stamps of an existing record are never touched.
func (r *PostgresNotificationRepository) Upsert(ctx context.Context, userID, date string, slot notification.PlannedSlot) (bool, error) {
	query := `INSERT INTO notification_states (user_id, date, slot_label, kind, scheduled_at, status)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT ON CONSTRAINT notification_states_user_date_slot_key
               DO UPDATE SET kind = EXCLUDED.kind, scheduled_at = EXCLUDED.scheduled_at, updated_at = NOW()
               RETURNING (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, userID, date, slot.SlotLabel, slot.Kind, slot.ScheduledAt.UTC(), notification.StatusPending).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("error upserting notification state (U:%s, D:%s, S:%s): %w", userID, date, slot.SlotLabel, err)
	}
	return inserted, nil
}

// RefreshSchedule updates kind and instant of an existing record only.
func (r *PostgresNotificationRepository) RefreshSchedule(ctx context.Context, key notification.Key, slot notification.PlannedSlot) (bool, error) {
	query := `UPDATE notification_states
               SET kind = $1, scheduled_at = $2, updated_at = NOW()
               WHERE user_id = $3 AND date = $4 AND slot_label = $5`
	res, err := r.db.ExecContext(ctx, query, slot.Kind, slot.ScheduledAt.UTC(), key.UserID, key.Date, key.SlotLabel)
	if err != nil {
		return false, fmt.Errorf("error refreshing notification schedule: %w", err)
	}
	return affected(res)
}

func (r *PostgresNotificationRepository) Get(ctx context.Context, key notification.Key) (*notification.State, error) {
	query := `SELECT ` + stateColumns + `
               FROM notification_states
               WHERE user_id = $1 AND date = $2 AND slot_label = $3`
	st, err := scanState(r.db.QueryRowContext(ctx, query, key.UserID, key.Date, key.SlotLabel))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notification.ErrStateNotFound
		}
		return nil, fmt.Errorf("error getting notification state: %w", err)
	}
	return st, nil
}

// ListOpen returns every non-terminal record for date.
func (r *PostgresNotificationRepository) ListOpen(ctx context.Context, date string) ([]*notification.State, error) {
	query := `SELECT ` + stateColumns + `
               FROM notification_states
               WHERE date = $1 AND status NOT IN ($2, $3)
               ORDER BY user_id, scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, date, notification.StatusResolved, notification.StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("error querying open notification states: %w", err)
	}
	defer rows.Close()
	return scanStates(rows)
}

func (r *PostgresNotificationRepository) ListByUserAndDate(ctx context.Context, userID, date string) ([]*notification.State, error) {
	query := `SELECT ` + stateColumns + `
               FROM notification_states
               WHERE user_id = $1 AND date = $2
               ORDER BY scheduled_at, slot_label`
	rows, err := r.db.QueryContext(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("error querying notification states by user and date: %w", err)
	}
	defer rows.Close()
	return scanStates(rows)
}

// Advance moves a record from -> to only if it is still in from, stamping the
// stage column of to.
func (r *PostgresNotificationRepository) Advance(ctx context.Context, key notification.Key, from, to notification.Status, at time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if col, ok := stageColumn[to]; ok {
		query := fmt.Sprintf(`UPDATE notification_states
               SET status = $1, %s = $2, updated_at = NOW()
               WHERE user_id = $3 AND date = $4 AND slot_label = $5 AND status = $6`, col)
		res, err = r.db.ExecContext(ctx, query, to, at.UTC(), key.UserID, key.Date, key.SlotLabel, from)
	} else if to == notification.StatusExpired {
		query := `UPDATE notification_states
               SET status = $1, updated_at = NOW()
               WHERE user_id = $2 AND date = $3 AND slot_label = $4 AND status = $5`
		res, err = r.db.ExecContext(ctx, query, to, key.UserID, key.Date, key.SlotLabel, from)
	} else {
		return false, fmt.Errorf("%w: %s -> %s", ErrUnsupportedTransition, from, to)
	}
	if err != nil {
		return false, fmt.Errorf("error advancing notification state to %s: %w", to, err)
	}
	return affected(res)
}

// Resolve closes a record with the given action tag if it is still in from.
func (r *PostgresNotificationRepository) Resolve(ctx context.Context, key notification.Key, from notification.Status, action string, at time.Time) (bool, error) {
	query := `UPDATE notification_states
               SET status = $1, resolved_at = $2, action_taken = $3, updated_at = NOW()
               WHERE user_id = $4 AND date = $5 AND slot_label = $6 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, notification.StatusResolved, at.UTC(), action, key.UserID, key.Date, key.SlotLabel, from)
	if err != nil {
		return false, fmt.Errorf("error resolving notification state: %w", err)
	}
	return affected(res)
}

// Reschedule resets a record to pending at scheduledAt, clearing stage stamps,
// if it is still in from.
func (r *PostgresNotificationRepository) Unresolve(ctx context.Context, key notification.Key, action string, to notification.Status) (bool, error) {
	query := `UPDATE notification_states
               SET status = $1, resolved_at = NULL, action_taken = NULL, updated_at = NOW()
               WHERE user_id = $2 AND date = $3 AND slot_label = $4 AND status = $5 AND action_taken = $6`
	res, err := r.db.ExecContext(ctx, query, to, key.UserID, key.Date, key.SlotLabel, notification.StatusResolved, action)
	if err != nil {
		return false, fmt.Errorf("error unresolving notification state: %w", err)
	}
	return affected(res)
}

func (r *PostgresNotificationRepository) Reschedule(ctx context.Context, key notification.Key, from notification.Status, scheduledAt time.Time) (bool, error) {
	query := `UPDATE notification_states
               SET status = $1, scheduled_at = $2, sent_at = NULL, reminded_15_at = NULL,
                   reminded_30_at = NULL, action_taken = NULL, updated_at = NOW()
               WHERE user_id = $3 AND date = $4 AND slot_label = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, notification.StatusPending, scheduledAt.UTC(), key.UserID, key.Date, key.SlotLabel, from)
	if err != nil {
		return false, fmt.Errorf("error rescheduling notification state: %w", err)
	}
	return affected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*notification.State, error) {
	st := notification.State{}
	err := row.Scan(
		&st.UserID, &st.Date, &st.SlotLabel, &st.Kind, &st.ScheduledAt, &st.Status,
		&st.SentAt, &st.Reminded15At, &st.Reminded30At, &st.ResolvedAt, &st.ActionTaken,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Helper to scan multiple rows
func scanStates(rows *sql.Rows) ([]*notification.State, error) {
	states := make([]*notification.State, 0)
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification state row: %w", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification state rows: %w", err)
	}
	return states, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n > 0, nil
}
