// Package alerts implements the pattern-detection battery that runs after
// every check-in: a fixed set of rules over the trailing 7 days of data,
// each independently cooled down once it fires.
package alerts

import (
	"fmt"

	"github.com/mkarev/moodpulse/internal/models"
)

const (
	RuleSleepEnergy        = "sleep_energy"
	RuleMissedMeds         = "missed_meds"
	RuleMoodSwing          = "mood_swing"
	RuleMoodDowntrend      = "mood_downtrend"
	RuleIrritabilityEnergy = "irritability_energy"
)

// RuleInput is the data a rule sees: the user's check-ins for the trailing
// 7 local days, ascending by date.
type RuleInput struct {
	Checkins          []*models.Checkin
	Sensitivity       models.AlertSensitivity
	TakingMedications bool
}

// Match is a fired rule with structured details. Turning details into
// user-facing text is the chat layer's job.
type Match struct {
	RuleID  string
	Details map[string]any
}

type Rule struct {
	ID       string
	Evaluate func(RuleInput) *Match
}

// AllRules is the full battery in its fixed evaluation order.
var AllRules = []Rule{
	{ID: RuleSleepEnergy, Evaluate: evaluateSleepEnergy},
	{ID: RuleMissedMeds, Evaluate: evaluateMissedMeds},
	{ID: RuleMoodSwing, Evaluate: evaluateMoodSwing},
	{ID: RuleMoodDowntrend, Evaluate: evaluateMoodDowntrend},
	{ID: RuleIrritabilityEnergy, Evaluate: evaluateIrritabilityEnergy},
}

// sensitivityWindow maps sensitivity to the required window length or
// threshold: higher sensitivity fires on shorter/weaker patterns.
func sensitivityWindow(s models.AlertSensitivity) int {
	switch s {
	case models.SensitivityHigh:
		return 2
	case models.SensitivityMedium:
		return 3
	case models.SensitivityLow:
		return 4
	}
	return 0
}

// evaluateSleepEnergy fires when every day in the most recent window shows
// short sleep (< 6h) together with high energy (>= 4).
func evaluateSleepEnergy(input RuleInput) *Match {
	window := sensitivityWindow(input.Sensitivity)
	if window == 0 || len(input.Checkins) < window {
		return nil
	}

	recent := input.Checkins[len(input.Checkins)-window:]
	for _, c := range recent {
		if c.SleepDuration >= 6 || c.Energy < 4 {
			return nil
		}
	}

	minSleep, maxSleep := recent[0].SleepDuration, recent[0].SleepDuration
	minEnergy, maxEnergy := recent[0].Energy, recent[0].Energy
	for _, c := range recent[1:] {
		minSleep = min(minSleep, c.SleepDuration)
		maxSleep = max(maxSleep, c.SleepDuration)
		minEnergy = min(minEnergy, c.Energy)
		maxEnergy = max(maxEnergy, c.Energy)
	}

	return &Match{
		RuleID: RuleSleepEnergy,
		Details: map[string]any{
			"days":       window,
			"sleepInfo":  fmt.Sprintf("%g–%gh", minSleep, maxSleep),
			"energyInfo": fmt.Sprintf("%d–%d", minEnergy, maxEnergy),
		},
	}
}

// evaluateMissedMeds fires when the count of skipped doses in the trailing
// 7 days reaches the sensitivity threshold, for users on medication.
func evaluateMissedMeds(input RuleInput) *Match {
	if !input.TakingMedications {
		return nil
	}
	threshold := sensitivityWindow(input.Sensitivity)
	if threshold == 0 {
		return nil
	}

	checkins := input.Checkins
	if len(checkins) > 7 {
		checkins = checkins[len(checkins)-7:]
	}
	skipped := 0
	for _, c := range checkins {
		if c.MedicationTaken == models.MedicationSkipped {
			skipped++
		}
	}
	if skipped < threshold {
		return nil
	}

	return &Match{
		RuleID:  RuleMissedMeds,
		Details: map[string]any{"count": skipped},
	}
}

// evaluateMoodSwing fires on any adjacent pair within the most recent 3 days
// whose absolute mood delta reaches the sensitivity threshold.
func evaluateMoodSwing(input RuleInput) *Match {
	if len(input.Checkins) < 2 {
		return nil
	}
	threshold := sensitivityWindow(input.Sensitivity)
	if threshold == 0 {
		return nil
	}

	recent := input.Checkins
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for i := 1; i < len(recent); i++ {
		prev, curr := recent[i-1], recent[i]
		diff := curr.Mood - prev.Mood
		if diff < 0 {
			diff = -diff
		}
		if diff >= threshold {
			return &Match{
				RuleID: RuleMoodSwing,
				Details: map[string]any{
					"diff":     diff,
					"fromMood": prev.Mood,
					"toMood":   curr.Mood,
					"days":     1,
				},
			}
		}
	}
	return nil
}

// evaluateMoodDowntrend fires when mood strictly decreases on every step of
// the most recent window.
func evaluateMoodDowntrend(input RuleInput) *Match {
	window := sensitivityWindow(input.Sensitivity)
	if window == 0 || len(input.Checkins) < window {
		return nil
	}

	recent := input.Checkins[len(input.Checkins)-window:]
	for i := 1; i < len(recent); i++ {
		if recent[i].Mood >= recent[i-1].Mood {
			return nil
		}
	}

	return &Match{
		RuleID: RuleMoodDowntrend,
		Details: map[string]any{
			"days":     window,
			"fromMood": recent[0].Mood,
			"toMood":   recent[len(recent)-1].Mood,
		},
	}
}

// evaluateIrritabilityEnergy fires when every day in the most recent window
// shows elevated irritability (>= 2) together with high energy (>= 4).
func evaluateIrritabilityEnergy(input RuleInput) *Match {
	window := sensitivityWindow(input.Sensitivity)
	if window == 0 || len(input.Checkins) < window {
		return nil
	}

	recent := input.Checkins[len(input.Checkins)-window:]
	for _, c := range recent {
		if c.Irritability < 2 || c.Energy < 4 {
			return nil
		}
	}

	minIrr, maxIrr := recent[0].Irritability, recent[0].Irritability
	minEnergy, maxEnergy := recent[0].Energy, recent[0].Energy
	for _, c := range recent[1:] {
		minIrr = min(minIrr, c.Irritability)
		maxIrr = max(maxIrr, c.Irritability)
		minEnergy = min(minEnergy, c.Energy)
		maxEnergy = max(maxEnergy, c.Energy)
	}

	return &Match{
		RuleID: RuleIrritabilityEnergy,
		Details: map[string]any{
			"days":             window,
			"irritabilityInfo": fmt.Sprintf("%d–%d", minIrr, maxIrr),
			"energyInfo":       fmt.Sprintf("%d–%d", minEnergy, maxEnergy),
		},
	}
}
