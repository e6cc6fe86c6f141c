package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/repository"
	"github.com/mkarev/moodpulse/internal/schedule"
)

// CooldownDays is how long a rule stays silent for a user after firing.
const CooldownDays = 7

type UserSource interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

type CheckinSource interface {
	FindInDateRange(ctx context.Context, userID uuid.UUID, start, end string) ([]*models.Checkin, error)
}

type StateStore interface {
	FindState(ctx context.Context, userID uuid.UUID, ruleID string) (*models.AlertState, error)
	UpsertCooldown(ctx context.Context, userID uuid.UUID, ruleID string, lastSentAt, cooldownUntil time.Time) error
}

// Analyzer runs the rule battery against a user's rolling 7-day window.
type Analyzer struct {
	users    UserSource
	checkins CheckinSource
	states   StateStore
	log      *zap.Logger
}

func NewAnalyzer(users UserSource, checkins CheckinSource, states StateStore, log *zap.Logger) *Analyzer {
	return &Analyzer{
		users:    users,
		checkins: checkins,
		states:   states,
		log:      log.Named("alerts"),
	}
}

// AnalyzeAfterCheckin evaluates every rule for the user and returns the
// matches that are not on cooldown. It is meant to run synchronously right
// after a check-in is saved. The cooldown for each returned match is written
// before the match surfaces; if that write fails the match is still returned,
// favoring delivery over suppression.
func (a *Analyzer) AnalyzeAfterCheckin(ctx context.Context, telegramID int64, now time.Time) ([]Match, error) {
	user, err := a.users.GetByTelegramID(ctx, telegramID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !user.AlertsEnabled {
		return nil, nil
	}
	if user.AlertsSnoozeUntil != nil && user.AlertsSnoozeUntil.After(now) {
		return nil, nil
	}

	localDate := schedule.LocalDateKey(now, user.Timezone)
	start := schedule.DateKeyAddDays(localDate, -7)
	checkins, err := a.checkins.FindInDateRange(ctx, user.ID, start, localDate)
	if err != nil {
		return nil, err
	}
	if len(checkins) == 0 {
		return nil, nil
	}

	input := RuleInput{
		Checkins:          checkins,
		Sensitivity:       user.AlertsSensitivity,
		TakingMedications: user.TakingMedications,
	}

	var matches []Match
	for _, rule := range AllRules {
		match := rule.Evaluate(input)
		if match == nil {
			continue
		}

		state, err := a.states.FindState(ctx, user.ID, rule.ID)
		if err != nil {
			a.log.Error("cooldown lookup failed, skipping rule",
				zap.String("ruleId", rule.ID), zap.Error(err))
			continue
		}
		if state != nil && state.CooldownUntil.After(now) {
			a.log.Debug("alert suppressed by cooldown",
				zap.String("ruleId", rule.ID), zap.Int64("telegramId", telegramID))
			continue
		}

		cooldownUntil := now.Add(CooldownDays * 24 * time.Hour)
		if err := a.states.UpsertCooldown(ctx, user.ID, rule.ID, now, cooldownUntil); err != nil {
			a.log.Error("cooldown write failed, delivering alert anyway",
				zap.String("ruleId", rule.ID), zap.Error(err))
		}

		matches = append(matches, *match)
	}

	if len(matches) > 0 {
		ruleIDs := make([]string, len(matches))
		for i, m := range matches {
			ruleIDs[i] = m.RuleID
		}
		a.log.Info("alerts triggered",
			zap.Int64("telegramId", telegramID), zap.Strings("ruleIds", ruleIDs))
	}

	return matches, nil
}
