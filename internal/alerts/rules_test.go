package alerts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarev/moodpulse/internal/models"
)

type day struct {
	mood         int
	energy       int
	sleep        float64
	irritability int
	meds         models.MedicationStatus
}

func buildCheckins(days []day) []*models.Checkin {
	checkins := make([]*models.Checkin, len(days))
	for i, d := range days {
		meds := d.meds
		if meds == "" {
			meds = models.MedicationTaken
		}
		checkins[i] = &models.Checkin{
			LocalDate:       fmt.Sprintf("2026-02-%02d", i+1),
			Mood:            d.mood,
			Energy:          d.energy,
			SleepDuration:   d.sleep,
			SleepQuality:    models.SleepFair,
			Irritability:    d.irritability,
			MedicationTaken: meds,
		}
	}
	return checkins
}

func calmDay() day {
	return day{mood: 0, energy: 3, sleep: 7.5, irritability: 0}
}

var windowBySensitivity = map[models.AlertSensitivity]int{
	models.SensitivityHigh:   2,
	models.SensitivityMedium: 3,
	models.SensitivityLow:    4,
}

func TestSleepEnergy_WindowPerSensitivity(t *testing.T) {
	for sensitivity, window := range windowBySensitivity {
		t.Run(string(sensitivity), func(t *testing.T) {
			bad := day{mood: 0, energy: 5, sleep: 4.5}

			short := make([]day, window-1)
			for i := range short {
				short[i] = bad
			}
			input := RuleInput{Checkins: buildCheckins(short), Sensitivity: sensitivity}
			assert.Nil(t, evaluateSleepEnergy(input), "window one day short must not fire")

			full := append(short, bad)
			input.Checkins = buildCheckins(full)
			match := evaluateSleepEnergy(input)
			require.NotNil(t, match, "threshold-length window must fire")
			assert.Equal(t, window, match.Details["days"])
		})
	}
}

func TestSleepEnergy_RangeDetails(t *testing.T) {
	days := []day{
		{mood: 0, energy: 5, sleep: 4},
		{mood: 0, energy: 4, sleep: 5},
	}
	match := evaluateSleepEnergy(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityHigh,
	})
	require.NotNil(t, match)
	assert.Equal(t, 2, match.Details["days"])
	assert.Equal(t, "4–5h", match.Details["sleepInfo"])
	assert.Equal(t, "4–5", match.Details["energyInfo"])

	assert.Nil(t, evaluateSleepEnergy(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityLow,
	}), "the same pair at LOW sensitivity must not fire")
}

func TestSleepEnergy_OnlyRecentWindowCounts(t *testing.T) {
	// Bad days older than the window do not help; the most recent day is calm.
	days := []day{
		{energy: 5, sleep: 4},
		{energy: 5, sleep: 4},
		calmDay(),
	}
	assert.Nil(t, evaluateSleepEnergy(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityHigh,
	}))
}

func TestMissedMeds(t *testing.T) {
	for sensitivity, threshold := range windowBySensitivity {
		t.Run(string(sensitivity), func(t *testing.T) {
			days := make([]day, 7)
			for i := range days {
				days[i] = calmDay()
			}
			for i := 0; i < threshold-1; i++ {
				days[i].meds = models.MedicationSkipped
			}
			input := RuleInput{
				Checkins:          buildCheckins(days),
				Sensitivity:       sensitivity,
				TakingMedications: true,
			}
			assert.Nil(t, evaluateMissedMeds(input), "below threshold must not fire")

			days[threshold-1].meds = models.MedicationSkipped
			input.Checkins = buildCheckins(days)
			match := evaluateMissedMeds(input)
			require.NotNil(t, match)
			assert.Equal(t, threshold, match.Details["count"])
		})
	}
}

func TestMissedMeds_GatedByTakingMedications(t *testing.T) {
	days := make([]day, 5)
	for i := range days {
		days[i] = calmDay()
		days[i].meds = models.MedicationSkipped
	}
	input := RuleInput{
		Checkins:          buildCheckins(days),
		Sensitivity:       models.SensitivityHigh,
		TakingMedications: false,
	}
	assert.Nil(t, evaluateMissedMeds(input))
}

func TestMoodSwing(t *testing.T) {
	for sensitivity, threshold := range windowBySensitivity {
		t.Run(string(sensitivity), func(t *testing.T) {
			below := []day{
				{mood: 0, energy: 3, sleep: 7.5},
				{mood: threshold - 1, energy: 3, sleep: 7.5},
			}
			input := RuleInput{Checkins: buildCheckins(below), Sensitivity: sensitivity}
			assert.Nil(t, evaluateMoodSwing(input), "delta below threshold must not fire")

			at := []day{
				{mood: 0, energy: 3, sleep: 7.5},
				{mood: threshold, energy: 3, sleep: 7.5},
			}
			input.Checkins = buildCheckins(at)
			match := evaluateMoodSwing(input)
			require.NotNil(t, match)
			assert.Equal(t, threshold, match.Details["diff"])
		})
	}
}

func TestMoodSwing_CrossingZero(t *testing.T) {
	days := []day{
		{mood: 2, energy: 3, sleep: 7.5},
		{mood: -1, energy: 3, sleep: 7.5},
	}
	match := evaluateMoodSwing(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityMedium,
	})
	require.NotNil(t, match)
	assert.Equal(t, 3, match.Details["diff"])
	assert.Equal(t, 2, match.Details["fromMood"])
	assert.Equal(t, -1, match.Details["toMood"])
}

func TestMoodSwing_OnlyLastThreeDays(t *testing.T) {
	// The swing happened four days ago; the recent three days are flat.
	days := []day{
		{mood: 3, energy: 3, sleep: 7.5},
		{mood: -3, energy: 3, sleep: 7.5},
		{mood: 0, energy: 3, sleep: 7.5},
		{mood: 0, energy: 3, sleep: 7.5},
		{mood: 0, energy: 3, sleep: 7.5},
	}
	assert.Nil(t, evaluateMoodSwing(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityHigh,
	}))
}

func TestMoodDowntrend(t *testing.T) {
	for sensitivity, window := range windowBySensitivity {
		t.Run(string(sensitivity), func(t *testing.T) {
			falling := make([]day, window)
			for i := range falling {
				falling[i] = day{mood: 3 - i, energy: 3, sleep: 7.5}
			}

			short := falling[:window-1]
			input := RuleInput{Checkins: buildCheckins(short), Sensitivity: sensitivity}
			assert.Nil(t, evaluateMoodDowntrend(input), "window one day short must not fire")

			input.Checkins = buildCheckins(falling)
			match := evaluateMoodDowntrend(input)
			require.NotNil(t, match)
			assert.Equal(t, window, match.Details["days"])
			assert.Equal(t, 3, match.Details["fromMood"])
			assert.Equal(t, 3-(window-1), match.Details["toMood"])
		})
	}
}

func TestMoodDowntrend_RequiresStrictDecrease(t *testing.T) {
	days := []day{
		{mood: 2, energy: 3, sleep: 7.5},
		{mood: 1, energy: 3, sleep: 7.5},
		{mood: 1, energy: 3, sleep: 7.5}, // plateau breaks the trend
	}
	assert.Nil(t, evaluateMoodDowntrend(RuleInput{
		Checkins:    buildCheckins(days),
		Sensitivity: models.SensitivityMedium,
	}))
}

func TestIrritabilityEnergy(t *testing.T) {
	for sensitivity, window := range windowBySensitivity {
		t.Run(string(sensitivity), func(t *testing.T) {
			agitated := day{mood: 0, energy: 4, sleep: 7.5, irritability: 2}

			short := make([]day, window-1)
			for i := range short {
				short[i] = agitated
			}
			input := RuleInput{Checkins: buildCheckins(short), Sensitivity: sensitivity}
			assert.Nil(t, evaluateIrritabilityEnergy(input), "window one day short must not fire")

			full := append(short, agitated)
			input.Checkins = buildCheckins(full)
			match := evaluateIrritabilityEnergy(input)
			require.NotNil(t, match)
			assert.Equal(t, window, match.Details["days"])
			assert.Equal(t, "2–2", match.Details["irritabilityInfo"])
			assert.Equal(t, "4–4", match.Details["energyInfo"])
		})
	}
}

func TestAllRules_OrderIsFixed(t *testing.T) {
	want := []string{RuleSleepEnergy, RuleMissedMeds, RuleMoodSwing, RuleMoodDowntrend, RuleIrritabilityEnergy}
	require.Len(t, AllRules, len(want))
	for i, rule := range AllRules {
		assert.Equal(t, want[i], rule.ID)
	}
}
