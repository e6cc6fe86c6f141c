package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarev/moodpulse/internal/database"
	"github.com/mkarev/moodpulse/internal/models"
)

// ErrUserNotFound is returned when an operation targets a user that no longer
// exists, e.g. a callback racing with account deletion.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, telegram_id, username, first_name, last_name, language_code,
	timezone, timezone_set_by_user,
	reminder_enabled, reminder_time, reminder_next_at, reminder_last_sent_local_date,
	reminder_snooze_until, reminder_skip_local_date,
	alerts_enabled, alerts_sensitivity, alerts_snooze_until, taking_medications,
	created_at`

// ReminderState is the scheduler-owned slice of a user row, written as a unit
// so stale suppression markers can never outlive a schedule change.
type ReminderState struct {
	NextAt            *time.Time
	LastSentLocalDate *string
	SnoozeUntil       *time.Time
	SkipLocalDate     *string
}

type UserRepository struct {
	db              *database.DB
	defaultTimezone string
}

func NewUserRepository(db *database.DB, defaultTimezone string) *UserRepository {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &UserRepository{db: db, defaultTimezone: defaultTimezone}
}

// Upsert creates the user on first contact or refreshes the Telegram identity
// fields on subsequent ones. The timezone starts at the configured default and
// settings keep their defaults on insert; neither is touched on update.
func (r *UserRepository) Upsert(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode *string) (*models.User, error) {
	row := r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (id, telegram_id, username, first_name, last_name, language_code, timezone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			language_code = EXCLUDED.language_code
		 RETURNING `+userColumns,
		uuid.New(), telegramID, username, firstName, lastName, languageCode, r.defaultTimezone,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// FindDueForReminder returns enabled users whose next scheduled fire is at or
// before now. Suppression checks (sent today, skipped, snoozed, existing
// check-in) are the reminder service's job, not the query's.
func (r *UserRepository) FindDueForReminder(ctx context.Context, now time.Time) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE reminder_enabled = TRUE AND reminder_next_at IS NOT NULL AND reminder_next_at <= $1
		 ORDER BY reminder_next_at ASC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// FindWithUnseededSchedule returns enabled users whose reminder_next_at was
// lost or never computed, so the scheduler can backfill it.
func (r *UserRepository) FindWithUnseededSchedule(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE reminder_enabled = TRUE AND reminder_next_at IS NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepository) UpdateReminderState(ctx context.Context, userID uuid.UUID, state ReminderState) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET
			reminder_next_at = $1,
			reminder_last_sent_local_date = $2,
			reminder_snooze_until = $3,
			reminder_skip_local_date = $4
		 WHERE id = $5`,
		state.NextAt, state.LastSentLocalDate, state.SnoozeUntil, state.SkipLocalDate, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateReminderSettings(ctx context.Context, userID uuid.UUID, enabled bool, reminderTime string, state ReminderState) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET
			reminder_enabled = $1,
			reminder_time = $2,
			reminder_next_at = $3,
			reminder_last_sent_local_date = $4,
			reminder_snooze_until = $5,
			reminder_skip_local_date = $6
		 WHERE id = $7`,
		enabled, reminderTime,
		state.NextAt, state.LastSentLocalDate, state.SnoozeUntil, state.SkipLocalDate, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET timezone = $1, timezone_set_by_user = TRUE WHERE id = $2`,
		timezone, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetAlertsEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET alerts_enabled = $1 WHERE id = $2`, enabled, userID)
	return err
}

func (r *UserRepository) SetAlertsSensitivity(ctx context.Context, userID uuid.UUID, sensitivity models.AlertSensitivity) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET alerts_sensitivity = $1 WHERE id = $2`, sensitivity, userID)
	return err
}

func (r *UserRepository) SetAlertsSnoozeUntil(ctx context.Context, userID uuid.UUID, until *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET alerts_snooze_until = $1 WHERE id = $2`, until, userID)
	return err
}

func (r *UserRepository) SetTakingMedications(ctx context.Context, userID uuid.UUID, taking bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET taking_medications = $1 WHERE id = $2`, taking, userID)
	return err
}

// DeleteByTelegramID removes the user and, via cascade, their check-ins and
// alert state. Returns false if no such user existed.
func (r *UserRepository) DeleteByTelegramID(ctx context.Context, telegramID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FirstName, &user.LastName, &user.LanguageCode,
		&user.Timezone, &user.TimezoneSetByUser,
		&user.ReminderEnabled, &user.ReminderTime, &user.ReminderNextAt, &user.ReminderLastSentLocalDate,
		&user.ReminderSnoozeUntil, &user.ReminderSkipLocalDate,
		&user.AlertsEnabled, &user.AlertsSensitivity, &user.AlertsSnoozeUntil, &user.TakingMedications,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUsers(rows pgx.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
