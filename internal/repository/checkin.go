package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkarev/moodpulse/internal/database"
	"github.com/mkarev/moodpulse/internal/models"
)

const checkinColumns = `id, user_id, local_date, mood, energy, sleep_duration, sleep_quality,
	anxiety, irritability, medication_taken, note, created_at`

type CheckinRepository struct {
	db *database.DB
}

func NewCheckinRepository(db *database.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

func (r *CheckinRepository) Create(ctx context.Context, checkin *models.Checkin) error {
	if checkin.ID == uuid.Nil {
		checkin.ID = uuid.New()
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO checkins (id, user_id, local_date, mood, energy, sleep_duration, sleep_quality,
			anxiety, irritability, medication_taken, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		checkin.ID, checkin.UserID, checkin.LocalDate, checkin.Mood, checkin.Energy,
		checkin.SleepDuration, checkin.SleepQuality, checkin.Anxiety, checkin.Irritability,
		checkin.MedicationTaken, checkin.Note,
	).Scan(&checkin.CreatedAt)
}

// Update overwrites the measurement fields of an existing check-in. The
// (user, local date) key never changes after creation.
func (r *CheckinRepository) Update(ctx context.Context, checkin *models.Checkin) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE checkins SET mood = $1, energy = $2, sleep_duration = $3, sleep_quality = $4,
			anxiety = $5, irritability = $6, medication_taken = $7, note = $8
		 WHERE id = $9`,
		checkin.Mood, checkin.Energy, checkin.SleepDuration, checkin.SleepQuality,
		checkin.Anxiety, checkin.Irritability, checkin.MedicationTaken, checkin.Note,
		checkin.ID,
	)
	return err
}

// FindByUserAndLocalDate returns nil without error when no check-in exists
// for the date; absence is a normal answer for both engines.
func (r *CheckinRepository) FindByUserAndLocalDate(ctx context.Context, userID uuid.UUID, localDate string) (*models.Checkin, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE user_id = $1 AND local_date = $2`,
		userID, localDate,
	)
	checkin, err := scanCheckin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return checkin, err
}

// FindInDateRange returns the user's check-ins with start <= local_date <= end,
// ordered ascending by date. YYYY-MM-DD keys sort correctly as strings.
func (r *CheckinRepository) FindInDateRange(ctx context.Context, userID uuid.UUID, start, end string) ([]*models.Checkin, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+checkinColumns+` FROM checkins
		 WHERE user_id = $1 AND local_date >= $2 AND local_date <= $3
		 ORDER BY local_date ASC`,
		userID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkins []*models.Checkin
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, checkin)
	}
	return checkins, rows.Err()
}

func scanCheckin(row pgx.Row) (*models.Checkin, error) {
	checkin := &models.Checkin{}
	err := row.Scan(
		&checkin.ID, &checkin.UserID, &checkin.LocalDate, &checkin.Mood, &checkin.Energy,
		&checkin.SleepDuration, &checkin.SleepQuality, &checkin.Anxiety, &checkin.Irritability,
		&checkin.MedicationTaken, &checkin.Note, &checkin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return checkin, nil
}
