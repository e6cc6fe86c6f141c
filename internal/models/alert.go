package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertState tracks the per-user cooldown of a single alert rule.
// A row exists only once the rule has fired at least once.
type AlertState struct {
	UserID        uuid.UUID `json:"user_id"`
	RuleID        string    `json:"rule_id"`
	LastSentAt    time.Time `json:"last_sent_at"`
	CooldownUntil time.Time `json:"cooldown_until"`
}
