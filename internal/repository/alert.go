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

type AlertRepository struct {
	db *database.DB
}

func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// FindState returns nil without error when the rule has never fired for the
// user; "no row" means "not on cooldown".
func (r *AlertRepository) FindState(ctx context.Context, userID uuid.UUID, ruleID string) (*models.AlertState, error) {
	state := &models.AlertState{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id, rule_id, last_sent_at, cooldown_until
		 FROM alert_states WHERE user_id = $1 AND rule_id = $2`,
		userID, ruleID,
	).Scan(&state.UserID, &state.RuleID, &state.LastSentAt, &state.CooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpsertCooldown records a rule firing: created on the first trigger, the
// timestamps are overwritten on every later one. Rows are never deleted;
// expiry is by comparing cooldown_until to the clock.
func (r *AlertRepository) UpsertCooldown(ctx context.Context, userID uuid.UUID, ruleID string, lastSentAt, cooldownUntil time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO alert_states (user_id, rule_id, last_sent_at, cooldown_until)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, rule_id) DO UPDATE SET
			last_sent_at = EXCLUDED.last_sent_at,
			cooldown_until = EXCLUDED.cooldown_until`,
		userID, ruleID, lastSentAt, cooldownUntil,
	)
	return err
}
