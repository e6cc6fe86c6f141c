package models

import (
	"time"

	"github.com/google/uuid"
)

type SleepQuality string

const (
	SleepPoor SleepQuality = "POOR"
	SleepFair SleepQuality = "FAIR"
	SleepGood SleepQuality = "GOOD"
)

func (q SleepQuality) Valid() bool {
	switch q {
	case SleepPoor, SleepFair, SleepGood:
		return true
	}
	return false
}

type MedicationStatus string

const (
	MedicationTaken         MedicationStatus = "TAKEN"
	MedicationSkipped       MedicationStatus = "SKIPPED"
	MedicationNotApplicable MedicationStatus = "NOT_APPLICABLE"
)

func (m MedicationStatus) Valid() bool {
	switch m {
	case MedicationTaken, MedicationSkipped, MedicationNotApplicable:
		return true
	}
	return false
}

// Checkin is one daily self-report. At most one row exists per (user, local date).
type Checkin struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	LocalDate       string           `json:"local_date"`     // YYYY-MM-DD in the user's timezone
	Mood            int              `json:"mood"`           // -3..+3
	Energy          int              `json:"energy"`         // 1..5
	SleepDuration   float64          `json:"sleep_duration"` // hours, half-hour buckets
	SleepQuality    SleepQuality     `json:"sleep_quality"`
	Anxiety         int              `json:"anxiety"`      // 0..3
	Irritability    int              `json:"irritability"` // 0..3
	MedicationTaken MedicationStatus `json:"medication_taken"`
	Note            *string          `json:"note"`
	CreatedAt       time.Time        `json:"created_at"`
}
