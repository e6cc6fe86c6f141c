package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSensitivity controls how long or strong a pattern must be before an alert fires.
type AlertSensitivity string

const (
	SensitivityLow    AlertSensitivity = "LOW"
	SensitivityMedium AlertSensitivity = "MEDIUM"
	SensitivityHigh   AlertSensitivity = "HIGH"
)

func (s AlertSensitivity) Valid() bool {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     *string   `json:"username"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	LanguageCode *string   `json:"language_code"`

	Timezone          string `json:"timezone"` // IANA zone name, "UTC" until the user sets one
	TimezoneSetByUser bool   `json:"timezone_set_by_user"`

	ReminderEnabled           bool       `json:"reminder_enabled"`
	ReminderTime              string     `json:"reminder_time"` // local "HH:MM", 24-hour
	ReminderNextAt            *time.Time `json:"reminder_next_at"`
	ReminderLastSentLocalDate *string    `json:"reminder_last_sent_local_date"`
	ReminderSnoozeUntil       *time.Time `json:"reminder_snooze_until"`
	ReminderSkipLocalDate     *string    `json:"reminder_skip_local_date"`

	AlertsEnabled     bool             `json:"alerts_enabled"`
	AlertsSensitivity AlertSensitivity `json:"alerts_sensitivity"`
	AlertsSnoozeUntil *time.Time       `json:"alerts_snooze_until"`
	TakingMedications bool             `json:"taking_medications"`

	CreatedAt time.Time `json:"created_at"`
}

// Locale returns the user's language code or "en" when Telegram did not supply one.
func (u *User) Locale() string {
	if u.LanguageCode != nil && *u.LanguageCode != "" {
		return *u.LanguageCode
	}
	return "en"
}
