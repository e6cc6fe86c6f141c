package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/repository"
)

type fakeUserSource struct {
	user *models.User
}

func (f *fakeUserSource) GetByTelegramID(_ context.Context, _ int64) (*models.User, error) {
	if f.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return f.user, nil
}

type fakeCheckinSource struct {
	checkins []*models.Checkin
	err      error
}

func (f *fakeCheckinSource) FindInDateRange(_ context.Context, _ uuid.UUID, _, _ string) ([]*models.Checkin, error) {
	return f.checkins, f.err
}

type cooldownKey struct {
	userID uuid.UUID
	ruleID string
}

type fakeStateStore struct {
	states     map[cooldownKey]*models.AlertState
	upsertErr  error
	upsertLog  []string
	findErrFor string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[cooldownKey]*models.AlertState)}
}

func (f *fakeStateStore) FindState(_ context.Context, userID uuid.UUID, ruleID string) (*models.AlertState, error) {
	if f.findErrFor == ruleID {
		return nil, errors.New("find state failed")
	}
	return f.states[cooldownKey{userID, ruleID}], nil
}

func (f *fakeStateStore) UpsertCooldown(_ context.Context, userID uuid.UUID, ruleID string, lastSentAt, cooldownUntil time.Time) error {
	f.upsertLog = append(f.upsertLog, ruleID)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.states[cooldownKey{userID, ruleID}] = &models.AlertState{
		UserID: userID, RuleID: ruleID, LastSentAt: lastSentAt, CooldownUntil: cooldownUntil,
	}
	return nil
}

func alertUser() *models.User {
	return &models.User{
		ID:                uuid.New(),
		TelegramID:        42,
		Timezone:          "UTC",
		AlertsEnabled:     true,
		AlertsSensitivity: models.SensitivityHigh,
		TakingMedications: true,
	}
}

// Two short-sleep high-energy days: fires sleep_energy at HIGH sensitivity.
func sleepEnergyCheckins() []*models.Checkin {
	return buildCheckins([]day{
		{mood: 0, energy: 5, sleep: 4},
		{mood: 0, energy: 5, sleep: 4.5},
	})
}

func newTestAnalyzer(users *fakeUserSource, checkins *fakeCheckinSource, states *fakeStateStore) *Analyzer {
	return NewAnalyzer(users, checkins, states, zap.NewNop())
}

func TestAnalyze_UserNotFoundIsNoop(t *testing.T) {
	a := newTestAnalyzer(&fakeUserSource{}, &fakeCheckinSource{}, newFakeStateStore())
	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, time.Now())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAnalyze_DisabledAlerts(t *testing.T) {
	user := alertUser()
	user.AlertsEnabled = false
	a := newTestAnalyzer(&fakeUserSource{user: user}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, newFakeStateStore())

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, time.Now())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAnalyze_SnoozedAlerts(t *testing.T) {
	now := time.Now()
	user := alertUser()
	until := now.Add(time.Hour)
	user.AlertsSnoozeUntil = &until
	a := newTestAnalyzer(&fakeUserSource{user: user}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, newFakeStateStore())

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, now)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// An expired snooze no longer suppresses.
	expired := now.Add(-time.Minute)
	user.AlertsSnoozeUntil = &expired
	matches, err = a.AnalyzeAfterCheckin(context.Background(), 42, now)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAnalyze_NoHistory(t *testing.T) {
	a := newTestAnalyzer(&fakeUserSource{user: alertUser()}, &fakeCheckinSource{}, newFakeStateStore())
	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, time.Now())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAnalyze_FiresAndWritesCooldown(t *testing.T) {
	now := time.Now()
	user := alertUser()
	states := newFakeStateStore()
	a := newTestAnalyzer(&fakeUserSource{user: user}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, states)

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, RuleSleepEnergy, matches[0].RuleID)

	state := states.states[cooldownKey{user.ID, RuleSleepEnergy}]
	require.NotNil(t, state, "cooldown must be written when the match is returned")
	assert.Equal(t, now.Add(CooldownDays*24*time.Hour), state.CooldownUntil)
}

func TestAnalyze_CooldownSuppressesAndIsNotExtended(t *testing.T) {
	now := time.Now()
	user := alertUser()
	states := newFakeStateStore()
	firedAt := now.Add(-24 * time.Hour)
	states.states[cooldownKey{user.ID, RuleSleepEnergy}] = &models.AlertState{
		UserID: user.ID, RuleID: RuleSleepEnergy,
		LastSentAt: firedAt, CooldownUntil: firedAt.Add(CooldownDays * 24 * time.Hour),
	}
	a := newTestAnalyzer(&fakeUserSource{user: user}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, states)

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, now)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, states.upsertLog, "a suppressed rule must not have its cooldown reset")
}

func TestAnalyze_FiresAgainAfterCooldownExpires(t *testing.T) {
	now := time.Now()
	user := alertUser()
	states := newFakeStateStore()
	firedAt := now.Add(-CooldownDays*24*time.Hour - time.Minute)
	states.states[cooldownKey{user.ID, RuleSleepEnergy}] = &models.AlertState{
		UserID: user.ID, RuleID: RuleSleepEnergy,
		LastSentAt: firedAt, CooldownUntil: firedAt.Add(CooldownDays * 24 * time.Hour),
	}
	a := newTestAnalyzer(&fakeUserSource{user: user}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, states)

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, RuleSleepEnergy, matches[0].RuleID)
}

func TestAnalyze_MultipleRulesFireIndependently(t *testing.T) {
	// Short sleep + high energy + high irritability + two skipped doses:
	// sleep_energy, missed_meds and irritability_energy all fire at HIGH.
	checkins := buildCheckins([]day{
		{mood: 0, energy: 5, sleep: 4, irritability: 2, meds: models.MedicationSkipped},
		{mood: 0, energy: 5, sleep: 4, irritability: 3, meds: models.MedicationSkipped},
	})
	a := newTestAnalyzer(&fakeUserSource{user: alertUser()}, &fakeCheckinSource{checkins: checkins}, newFakeStateStore())

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, time.Now())
	require.NoError(t, err)
	ruleIDs := make([]string, len(matches))
	for i, m := range matches {
		ruleIDs[i] = m.RuleID
	}
	assert.Equal(t, []string{RuleSleepEnergy, RuleMissedMeds, RuleIrritabilityEnergy}, ruleIDs)
}

func TestAnalyze_CooldownWriteFailureStillDelivers(t *testing.T) {
	states := newFakeStateStore()
	states.upsertErr = errors.New("db down")
	a := newTestAnalyzer(&fakeUserSource{user: alertUser()}, &fakeCheckinSource{checkins: sleepEnergyCheckins()}, states)

	matches, err := a.AnalyzeAfterCheckin(context.Background(), 42, time.Now())
	require.NoError(t, err)
	assert.Len(t, matches, 1, "delivery wins over cooldown durability")
}
