// Package reminder owns the per-user reminder state machine: lazy schedule
// seeding, due-candidate filtering with its suppression rules, and the
// mutations behind the snooze/skip/settings commands.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/repository"
	"github.com/mkarev/moodpulse/internal/schedule"
)

// AllowedSnoozeMinutes is the finite set of snooze durations the chat layer
// may request.
var AllowedSnoozeMinutes = []int{30, 60, 120}

// ErrInvalidSnoozeDuration is returned for snooze durations outside AllowedSnoozeMinutes.
var ErrInvalidSnoozeDuration = errors.New("invalid snooze duration")

func IsAllowedSnooze(minutes int) bool {
	for _, m := range AllowedSnoozeMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}

type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	FindDueForReminder(ctx context.Context, now time.Time) ([]*models.User, error)
	FindWithUnseededSchedule(ctx context.Context) ([]*models.User, error)
	UpdateReminderState(ctx context.Context, userID uuid.UUID, state repository.ReminderState) error
	UpdateReminderSettings(ctx context.Context, userID uuid.UUID, enabled bool, reminderTime string, state repository.ReminderState) error
	UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error
}

type CheckinStore interface {
	FindByUserAndLocalDate(ctx context.Context, userID uuid.UUID, localDate string) (*models.Checkin, error)
}

type Service struct {
	users    UserStore
	checkins CheckinStore
	log      *zap.Logger
}

func New(users UserStore, checkins CheckinStore, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		checkins: checkins,
		log:      log.Named("reminder"),
	}
}

// SeedMissingSchedules backfills reminder_next_at for enabled users who lack
// one, e.g. after a restart or re-enable. Reseeding is a no-op for already
// seeded users because the query only selects NULL schedules.
func (s *Service) SeedMissingSchedules(ctx context.Context, now time.Time) error {
	users, err := s.users.FindWithUnseededSchedule(ctx)
	if err != nil {
		return fmt.Errorf("find unseeded schedules: %w", err)
	}

	for _, user := range users {
		nextAt, err := schedule.NextReminderAt(user.ReminderTime, user.Timezone, now)
		if err != nil {
			s.log.Error("cannot seed schedule",
				zap.String("userId", user.ID.String()), zap.Error(err))
			continue
		}
		state := reminderStateOf(user)
		state.NextAt = &nextAt
		if err := s.users.UpdateReminderState(ctx, user.ID, state); err != nil {
			s.log.Error("seed write failed",
				zap.String("userId", user.ID.String()), zap.Error(err))
			continue
		}
		s.log.Debug("seeded reminder schedule",
			zap.String("userId", user.ID.String()), zap.Time("nextAt", nextAt))
	}
	return nil
}

// UsersToRemind seeds missing schedules, then filters due candidates through
// the suppression checks in order: already sent today, user skipped today,
// snoozed, check-in already exists. The survivors are genuinely due.
// A failure while processing one candidate never aborts the others.
func (s *Service) UsersToRemind(ctx context.Context, now time.Time) ([]*models.User, error) {
	if err := s.SeedMissingSchedules(ctx, now); err != nil {
		s.log.Error("schedule seeding failed", zap.Error(err))
	}

	candidates, err := s.users.FindDueForReminder(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find due users: %w", err)
	}

	var due []*models.User
	for _, user := range candidates {
		localDate := schedule.LocalDateKey(now, user.Timezone)

		// Already delivered today: protects against duplicate ticks racing
		// ahead of the schedule advance.
		if user.ReminderLastSentLocalDate != nil && *user.ReminderLastSentLocalDate == localDate {
			continue
		}

		// User explicitly skipped today: roll the schedule to tomorrow or it
		// would re-trigger every tick.
		if user.ReminderSkipLocalDate != nil && *user.ReminderSkipLocalDate == localDate {
			if err := s.advanceToTomorrow(ctx, user, now, false); err != nil {
				s.log.Error("advance after skip failed",
					zap.String("userId", user.ID.String()), zap.Error(err))
			}
			continue
		}

		// Snoozed: the snooze instant is also reminder_next_at, so the user
		// becomes due again exactly when it expires.
		if user.ReminderSnoozeUntil != nil && user.ReminderSnoozeUntil.After(now) {
			continue
		}

		checkin, err := s.checkins.FindByUserAndLocalDate(ctx, user.ID, localDate)
		if err != nil {
			s.log.Error("checkin lookup failed",
				zap.String("userId", user.ID.String()), zap.Error(err))
			continue
		}
		if checkin != nil {
			// Already self-reported; no reminder needed, but the schedule must
			// still roll forward.
			if err := s.advanceToTomorrow(ctx, user, now, true); err != nil {
				s.log.Error("advance after checkin failed",
					zap.String("userId", user.ID.String()), zap.Error(err))
			}
			continue
		}

		due = append(due, user)
	}

	return due, nil
}

// MarkSent records a successful delivery: today's local date becomes the
// dedup key, the schedule advances to tomorrow, any snooze is cleared.
// Call it only after the dispatcher reported success, so a transport failure
// leaves state untouched and the send retries next tick.
func (s *Service) MarkSent(ctx context.Context, user *models.User, now time.Time) error {
	localDate := schedule.LocalDateKey(now, user.Timezone)
	nextAt, err := schedule.NextReminderAt(user.ReminderTime, user.Timezone, now)
	if err != nil {
		return err
	}
	return s.users.UpdateReminderState(ctx, user.ID, repository.ReminderState{
		NextAt:            &nextAt,
		LastSentLocalDate: &localDate,
		SnoozeUntil:       nil,
		SkipLocalDate:     user.ReminderSkipLocalDate,
	})
}

// Snooze postpones the next fire by the given number of minutes. The last-sent
// marker is cleared so the later retry is not mistaken for already delivered.
func (s *Service) Snooze(ctx context.Context, telegramID int64, minutes int, now time.Time) error {
	if !IsAllowedSnooze(minutes) {
		return ErrInvalidSnoozeDuration
	}
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	snoozeUntil := now.Add(time.Duration(minutes) * time.Minute)
	return s.users.UpdateReminderState(ctx, user.ID, repository.ReminderState{
		NextAt:            &snoozeUntil,
		LastSentLocalDate: nil,
		SnoozeUntil:       &snoozeUntil,
		SkipLocalDate:     user.ReminderSkipLocalDate,
	})
}

// SkipToday suppresses the reminder for the current local date and re-arms
// the schedule for tomorrow.
func (s *Service) SkipToday(ctx context.Context, telegramID int64, now time.Time) error {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	localDate := schedule.LocalDateKey(now, user.Timezone)
	nextAt, err := schedule.NextReminderAt(user.ReminderTime, user.Timezone, now)
	if err != nil {
		return err
	}
	return s.users.UpdateReminderState(ctx, user.ID, repository.ReminderState{
		NextAt:            &nextAt,
		LastSentLocalDate: user.ReminderLastSentLocalDate,
		SnoozeUntil:       nil,
		SkipLocalDate:     &localDate,
	})
}

// SetEnabled turns reminders on or off. Either way the suppression markers
// are cleared: changing configuration always re-arms the schedule cleanly.
func (s *Service) SetEnabled(ctx context.Context, telegramID int64, enabled bool, now time.Time) error {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	state := repository.ReminderState{}
	if enabled {
		nextAt, err := schedule.NextReminderAt(user.ReminderTime, user.Timezone, now)
		if err != nil {
			return err
		}
		state.NextAt = &nextAt
	}
	return s.users.UpdateReminderSettings(ctx, user.ID, enabled, user.ReminderTime, state)
}

// SetTime sets a new daily reminder time (and implicitly enables reminders,
// matching the chat flow where picking a time is the enabling act).
func (s *Service) SetTime(ctx context.Context, telegramID int64, reminderTime string, now time.Time) error {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	nextAt, err := schedule.NextReminderAt(reminderTime, user.Timezone, now)
	if err != nil {
		return err
	}
	return s.users.UpdateReminderSettings(ctx, user.ID, true, reminderTime, repository.ReminderState{
		NextAt: &nextAt,
	})
}

// SetTimezone changes the user's timezone and, when reminders are enabled,
// recomputes the schedule under the new zone with suppression markers cleared.
func (s *Service) SetTimezone(ctx context.Context, telegramID int64, timezone string, now time.Time) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateTimezone(ctx, user.ID, timezone); err != nil {
		return err
	}

	if !user.ReminderEnabled {
		return nil
	}
	nextAt, err := schedule.NextReminderAt(user.ReminderTime, timezone, now)
	if err != nil {
		return err
	}
	return s.users.UpdateReminderState(ctx, user.ID, repository.ReminderState{
		NextAt:            &nextAt,
		LastSentLocalDate: user.ReminderLastSentLocalDate,
	})
}

// Settings returns the user's reminder configuration for display.
func (s *Service) Settings(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// advanceToTomorrow rolls reminder_next_at forward and clears the snooze
// marker; clearSkip additionally drops the skip marker (used when a check-in
// supersedes the reminder).
func (s *Service) advanceToTomorrow(ctx context.Context, user *models.User, now time.Time, clearSkip bool) error {
	nextAt, err := schedule.NextReminderAt(user.ReminderTime, user.Timezone, now)
	if err != nil {
		return err
	}
	state := repository.ReminderState{
		NextAt:            &nextAt,
		LastSentLocalDate: user.ReminderLastSentLocalDate,
		SnoozeUntil:       nil,
		SkipLocalDate:     user.ReminderSkipLocalDate,
	}
	if clearSkip {
		state.SkipLocalDate = nil
	}
	return s.users.UpdateReminderState(ctx, user.ID, state)
}

func reminderStateOf(user *models.User) repository.ReminderState {
	return repository.ReminderState{
		NextAt:            user.ReminderNextAt,
		LastSentLocalDate: user.ReminderLastSentLocalDate,
		SnoozeUntil:       user.ReminderSnoozeUntil,
		SkipLocalDate:     user.ReminderSkipLocalDate,
	}
}
