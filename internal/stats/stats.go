// Package stats computes period aggregates over check-in history for the
// /week and /month summaries.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/schedule"
)

type Trend string

const (
	TrendRising       Trend = "rising"
	TrendFalling      Trend = "falling"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient_data"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type PeriodStats struct {
	Records         int
	TotalDays       int
	AvgMood         float64
	AvgEnergy       float64
	AvgSleep        float64
	AvgAnxiety      float64
	AvgIrritability float64
	Trend           Trend
	CheckinDates    map[string]bool
}

// Compute aggregates the check-ins that fall on allDates (ascending local
// date keys covering the requested period).
func Compute(checkins []*models.Checkin, allDates []string, period Period) PeriodStats {
	stats := PeriodStats{
		TotalDays:    len(allDates),
		Trend:        calculateTrend(checkins, allDates, period),
		CheckinDates: make(map[string]bool, len(checkins)),
	}

	var mood, energy, sleep, anxiety, irritability float64
	for _, c := range checkins {
		stats.Records++
		stats.CheckinDates[c.LocalDate] = true
		mood += float64(c.Mood)
		energy += float64(c.Energy)
		sleep += c.SleepDuration
		anxiety += float64(c.Anxiety)
		irritability += float64(c.Irritability)
	}
	if stats.Records > 0 {
		n := float64(stats.Records)
		stats.AvgMood = mood / n
		stats.AvgEnergy = energy / n
		stats.AvgSleep = sleep / n
		stats.AvgAnxiety = anxiety / n
		stats.AvgIrritability = irritability / n
	}
	return stats
}

// calculateTrend compares average mood between an early and a late window of
// the period. Deltas under 0.3 count as stable.
func calculateTrend(checkins []*models.Checkin, allDates []string, period Period) Trend {
	if len(checkins) < 3 {
		return TrendInsufficient
	}

	moodByDate := make(map[string]int, len(checkins))
	for _, c := range checkins {
		moodByDate[c.LocalDate] = c.Mood
	}

	var early, late []string
	if period == PeriodWeek {
		early = sliceDates(allDates, 0, 3)
		late = sliceDates(allDates, 4, 7)
	} else {
		n := len(allDates)
		early = sliceDates(allDates, maxInt(0, n-14), maxInt(0, n-7))
		late = sliceDates(allDates, maxInt(0, n-7), n)
	}

	earlyAvg, earlyCount := avgMood(moodByDate, early)
	lateAvg, lateCount := avgMood(moodByDate, late)
	if earlyCount < 1 || lateCount < 1 {
		return TrendInsufficient
	}

	diff := lateAvg - earlyAvg
	if math.Abs(diff) < 0.3 {
		return TrendStable
	}
	if diff > 0 {
		return TrendRising
	}
	return TrendFalling
}

func sliceDates(dates []string, from, to int) []string {
	if from > len(dates) {
		return nil
	}
	if to > len(dates) {
		to = len(dates)
	}
	return dates[from:to]
}

func avgMood(moodByDate map[string]int, dates []string) (avg float64, count int) {
	sum := 0
	for _, d := range dates {
		if mood, ok := moodByDate[d]; ok {
			sum += mood
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PeriodDates builds the ascending local date keys ending at endDate:
// 7 for a week, 30 for a month.
func PeriodDates(endDate string, period Period) []string {
	days := 7
	if period == PeriodMonth {
		days = 30
	}
	dates := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, schedule.DateKeyAddDays(endDate, -i))
	}
	return dates
}

type UserSource interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

type CheckinSource interface {
	FindInDateRange(ctx context.Context, userID uuid.UUID, start, end string) ([]*models.Checkin, error)
}

type Service struct {
	users    UserSource
	checkins CheckinSource
	log      *zap.Logger
}

func NewService(users UserSource, checkins CheckinSource, log *zap.Logger) *Service {
	return &Service{users: users, checkins: checkins, log: log.Named("stats")}
}

// ForPeriod computes the user's stats for the week or month ending today in
// their timezone.
func (s *Service) ForPeriod(ctx context.Context, telegramID int64, period Period, now time.Time) (*PeriodStats, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	endDate := schedule.LocalDateKey(now, user.Timezone)
	dates := PeriodDates(endDate, period)
	checkins, err := s.checkins.FindInDateRange(ctx, user.ID, dates[0], endDate)
	if err != nil {
		return nil, err
	}

	stats := Compute(checkins, dates, period)
	return &stats, nil
}
