// Package checkin handles the daily self-report flow: validation, the
// one-row-per-local-date upsert, and the alert analysis that follows.
package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/alerts"
	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/schedule"
)

// SleepDurationBuckets maps the answer keys of the sleep question to hour
// values. Users pick a bucket, not an exact duration.
var SleepDurationBuckets = map[string]float64{
	"lt4": 3.5,
	"4_5": 4.5,
	"5_6": 5.5,
	"6_7": 6.5,
	"7_8": 7.5,
	"8_9": 8.5,
	"gt9": 9.5,
}

// Data carries one validated check-in submission.
type Data struct {
	Mood            int
	Energy          int
	SleepDuration   float64
	SleepQuality    models.SleepQuality
	Anxiety         int
	Irritability    int
	MedicationTaken models.MedicationStatus
	Note            *string
}

func (d *Data) Validate(noteMaxLength int) error {
	if d.Mood < -3 || d.Mood > 3 {
		return fmt.Errorf("mood must be between -3 and 3, got %d", d.Mood)
	}
	if d.Energy < 1 || d.Energy > 5 {
		return fmt.Errorf("energy must be between 1 and 5, got %d", d.Energy)
	}
	if !validSleepDuration(d.SleepDuration) {
		return fmt.Errorf("sleep duration %g is not a known bucket", d.SleepDuration)
	}
	if !d.SleepQuality.Valid() {
		return fmt.Errorf("invalid sleep quality %q", d.SleepQuality)
	}
	if d.Anxiety < 0 || d.Anxiety > 3 {
		return fmt.Errorf("anxiety must be between 0 and 3, got %d", d.Anxiety)
	}
	if d.Irritability < 0 || d.Irritability > 3 {
		return fmt.Errorf("irritability must be between 0 and 3, got %d", d.Irritability)
	}
	if !d.MedicationTaken.Valid() {
		return fmt.Errorf("invalid medication status %q", d.MedicationTaken)
	}
	if d.Note != nil && len([]rune(*d.Note)) > noteMaxLength {
		return fmt.Errorf("note exceeds %d characters", noteMaxLength)
	}
	return nil
}

func validSleepDuration(hours float64) bool {
	for _, v := range SleepDurationBuckets {
		if v == hours {
			return true
		}
	}
	return false
}

type UserSource interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

type CheckinStore interface {
	Create(ctx context.Context, checkin *models.Checkin) error
	Update(ctx context.Context, checkin *models.Checkin) error
	FindByUserAndLocalDate(ctx context.Context, userID uuid.UUID, localDate string) (*models.Checkin, error)
}

// AlertAnalyzer is the alert engine boundary; see alerts.Analyzer.
type AlertAnalyzer interface {
	AnalyzeAfterCheckin(ctx context.Context, telegramID int64, now time.Time) ([]alerts.Match, error)
}

type Service struct {
	users         UserSource
	checkins      CheckinStore
	analyzer      AlertAnalyzer
	noteMaxLength int
	log           *zap.Logger
}

func New(users UserSource, checkins CheckinStore, analyzer AlertAnalyzer, noteMaxLength int, log *zap.Logger) *Service {
	return &Service{
		users:         users,
		checkins:      checkins,
		analyzer:      analyzer,
		noteMaxLength: noteMaxLength,
		log:           log.Named("checkin"),
	}
}

// Today returns the user's check-in for the current local date, or nil.
func (s *Service) Today(ctx context.Context, telegramID int64, now time.Time) (*models.Checkin, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	localDate := schedule.LocalDateKey(now, user.Timezone)
	return s.checkins.FindByUserAndLocalDate(ctx, user.ID, localDate)
}

// Save stores today's check-in, overwriting an existing one for the same
// local date, then runs the alert battery and returns any matches alongside
// the saved row.
func (s *Service) Save(ctx context.Context, telegramID int64, data Data, now time.Time) (*models.Checkin, []alerts.Match, error) {
	if err := data.Validate(s.noteMaxLength); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, nil, err
	}

	localDate := schedule.LocalDateKey(now, user.Timezone)
	checkin, err := s.checkins.FindByUserAndLocalDate(ctx, user.ID, localDate)
	if err != nil {
		return nil, nil, err
	}

	if checkin != nil {
		checkin.Mood = data.Mood
		checkin.Energy = data.Energy
		checkin.SleepDuration = data.SleepDuration
		checkin.SleepQuality = data.SleepQuality
		checkin.Anxiety = data.Anxiety
		checkin.Irritability = data.Irritability
		checkin.MedicationTaken = data.MedicationTaken
		checkin.Note = data.Note
		if err := s.checkins.Update(ctx, checkin); err != nil {
			return nil, nil, err
		}
	} else {
		checkin = &models.Checkin{
			UserID:          user.ID,
			LocalDate:       localDate,
			Mood:            data.Mood,
			Energy:          data.Energy,
			SleepDuration:   data.SleepDuration,
			SleepQuality:    data.SleepQuality,
			Anxiety:         data.Anxiety,
			Irritability:    data.Irritability,
			MedicationTaken: data.MedicationTaken,
			Note:            data.Note,
		}
		if err := s.checkins.Create(ctx, checkin); err != nil {
			return nil, nil, err
		}
	}

	matches, err := s.analyzer.AnalyzeAfterCheckin(ctx, telegramID, now)
	if err != nil {
		// The check-in itself is saved; alert evaluation problems should not
		// fail the submission.
		s.log.Error("alert analysis failed", zap.Int64("telegramId", telegramID), zap.Error(err))
		return checkin, nil, nil
	}
	return checkin, matches, nil
}
