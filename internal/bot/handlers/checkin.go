package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/alerts"
	"github.com/mkarev/moodpulse/internal/checkin"
	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/stats"
)

const checkinUsage = "/checkin <mood -3..3> <energy 1..5> <sleep lt4|4_5|5_6|6_7|7_8|8_9|gt9> " +
	"<quality poor|fair|good> <anxiety 0..3> <irritability 0..3> <meds taken|skipped|na> [note]"

func (h *Handlers) handleCheckin(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 7 {
		h.sendMessage(msg.Chat.ID, checkinUsage)
		return
	}

	data, err := parseCheckinArgs(args)
	if err != nil {
		h.sendMessage(msg.Chat.ID, err.Error()+"\n\n"+checkinUsage)
		return
	}

	saved, matches, err := h.services.Checkin.Save(ctx, msg.From.ID, *data, time.Now().UTC())
	if err != nil {
		h.log.Error("checkin save failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "Could not save your check-in: "+err.Error())
		return
	}

	h.sendMessage(msg.Chat.ID, "Check-in saved for "+saved.LocalDate+". Thank you!")
	for _, match := range matches {
		h.sendMessage(msg.Chat.ID, formatAlert(match))
	}
}

func parseCheckinArgs(args []string) (*checkin.Data, error) {
	mood, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("mood must be a number, got %q", args[0])
	}
	energy, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("energy must be a number, got %q", args[1])
	}
	sleep, ok := checkin.SleepDurationBuckets[strings.ToLower(args[2])]
	if !ok {
		return nil, fmt.Errorf("unknown sleep bucket %q", args[2])
	}
	quality := models.SleepQuality(strings.ToUpper(args[3]))
	anxiety, err := strconv.Atoi(args[4])
	if err != nil {
		return nil, fmt.Errorf("anxiety must be a number, got %q", args[4])
	}
	irritability, err := strconv.Atoi(args[5])
	if err != nil {
		return nil, fmt.Errorf("irritability must be a number, got %q", args[5])
	}

	var meds models.MedicationStatus
	switch strings.ToLower(args[6]) {
	case "taken":
		meds = models.MedicationTaken
	case "skipped":
		meds = models.MedicationSkipped
	case "na":
		meds = models.MedicationNotApplicable
	default:
		return nil, fmt.Errorf("meds must be taken, skipped or na, got %q", args[6])
	}

	var note *string
	if len(args) > 7 {
		joined := strings.Join(args[7:], " ")
		note = &joined
	}

	return &checkin.Data{
		Mood:            mood,
		Energy:          energy,
		SleepDuration:   sleep,
		SleepQuality:    quality,
		Anxiety:         anxiety,
		Irritability:    irritability,
		MedicationTaken: meds,
		Note:            note,
	}, nil
}

func (h *Handlers) handleToday(ctx context.Context, msg *tgbotapi.Message) {
	c, err := h.services.Checkin.Today(ctx, msg.From.ID, time.Now().UTC())
	if err != nil {
		h.log.Error("today lookup failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if c == nil {
		h.sendMessage(msg.Chat.ID, "No check-in for today yet. "+checkinUsage)
		return
	}

	text := fmt.Sprintf("Today (%s):\nMood %+d | Energy %d/5 | Sleep %gh (%s)\nAnxiety %d/3 | Irritability %d/3 | Meds %s",
		c.LocalDate, c.Mood, c.Energy, c.SleepDuration, strings.ToLower(string(c.SleepQuality)),
		c.Anxiety, c.Irritability, strings.ToLower(string(c.MedicationTaken)))
	if c.Note != nil {
		text += "\nNote: " + *c.Note
	}
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleStats(ctx context.Context, msg *tgbotapi.Message, period stats.Period) {
	s, err := h.services.Stats.ForPeriod(ctx, msg.From.ID, period, time.Now().UTC())
	if err != nil {
		h.log.Error("stats failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if s.Records == 0 {
		h.sendMessage(msg.Chat.ID, "No check-ins in this period yet.")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Last %d days: %d check-ins\nMood %.1f | Energy %.1f | Sleep %.1fh\nAnxiety %.1f | Irritability %.1f\nMood trend: %s",
		s.TotalDays, s.Records, s.AvgMood, s.AvgEnergy, s.AvgSleep, s.AvgAnxiety, s.AvgIrritability, s.Trend))
}

// formatAlert turns a structured rule match into user-facing text. The alert
// engine itself never produces copy.
func formatAlert(match alerts.Match) string {
	d := match.Details
	switch match.RuleID {
	case alerts.RuleSleepEnergy:
		return fmt.Sprintf("⚠️ For %v days in a row you slept little (%v) but reported high energy (%v). "+
			"This combination can precede an elevated phase.", d["days"], d["sleepInfo"], d["energyInfo"])
	case alerts.RuleMissedMeds:
		return fmt.Sprintf("⚠️ You skipped medication %v times over the last week. "+
			"Consider discussing this with your doctor.", d["count"])
	case alerts.RuleMoodSwing:
		return fmt.Sprintf("⚠️ Your mood jumped from %v to %v (a swing of %v) within a day.", d["fromMood"], d["toMood"], d["diff"])
	case alerts.RuleMoodDowntrend:
		return fmt.Sprintf("⚠️ Your mood has been falling for %v days straight (%v → %v).", d["days"], d["fromMood"], d["toMood"])
	case alerts.RuleIrritabilityEnergy:
		return fmt.Sprintf("⚠️ For %v days you reported elevated irritability (%v) with high energy (%v).", d["days"], d["irritabilityInfo"], d["energyInfo"])
	}
	return "⚠️ Pattern detected: " + match.RuleID
}
