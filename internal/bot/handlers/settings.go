package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
	"github.com/mkarev/moodpulse/internal/schedule"
)

func (h *Handlers) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	now := time.Now().UTC()

	switch strings.ToLower(arg) {
	case "":
		user, err := h.services.Reminder.Settings(ctx, msg.From.ID)
		if err != nil {
			h.log.Error("settings lookup failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
			h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		if user.ReminderEnabled {
			h.sendMessage(msg.Chat.ID, "Daily reminder is on at "+user.ReminderTime+" ("+user.Timezone+").")
		} else {
			h.sendMessage(msg.Chat.ID, "Daily reminder is off. Enable with /remind HH:MM or /remind on.")
		}
	case "on":
		if err := h.services.Reminder.SetEnabled(ctx, msg.From.ID, true, now); err != nil {
			h.sendMessage(msg.Chat.ID, "Could not enable the reminder: "+err.Error())
			return
		}
		h.sendMessage(msg.Chat.ID, "Daily reminder enabled.")
	case "off":
		if err := h.services.Reminder.SetEnabled(ctx, msg.From.ID, false, now); err != nil {
			h.sendMessage(msg.Chat.ID, "Could not disable the reminder: "+err.Error())
			return
		}
		h.sendMessage(msg.Chat.ID, "Daily reminder disabled.")
	default:
		if err := h.services.Reminder.SetTime(ctx, msg.From.ID, arg, now); err != nil {
			if errors.Is(err, schedule.ErrInvalidTimeFormat) {
				h.sendMessage(msg.Chat.ID, "That doesn't look like a time. Use 24-hour HH:MM, e.g. /remind 21:00.")
				return
			}
			h.sendMessage(msg.Chat.ID, "Could not set the reminder: "+err.Error())
			return
		}
		h.sendMessage(msg.Chat.ID, "Daily reminder set to "+arg+".")
	}
}

func (h *Handlers) handleSkip(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.services.Reminder.SkipToday(ctx, msg.From.ID, time.Now().UTC()); err != nil {
		h.log.Error("skip failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	h.sendMessage(msg.Chat.ID, "Today's reminder skipped.")
}

func (h *Handlers) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	zone := strings.TrimSpace(msg.CommandArguments())
	if zone == "" {
		h.sendMessage(msg.Chat.ID, "Usage: /timezone <IANA zone>, e.g. /timezone Europe/Moscow")
		return
	}
	if err := h.services.Reminder.SetTimezone(ctx, msg.From.ID, zone, time.Now().UTC()); err != nil {
		h.sendMessage(msg.Chat.ID, "Unknown timezone. Use an IANA name like Europe/Berlin or Asia/Tokyo.")
		return
	}
	h.sendMessage(msg.Chat.ID, "Timezone set to "+zone+".")
}

func (h *Handlers) handleAlerts(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.services.Users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	switch arg {
	case "":
		state := "off"
		if user.AlertsEnabled {
			state = "on, sensitivity " + strings.ToLower(string(user.AlertsSensitivity))
		}
		h.sendMessage(msg.Chat.ID, "Pattern alerts are "+state+". Usage: /alerts on|off|low|medium|high")
	case "on", "off":
		if err := h.services.Users.SetAlertsEnabled(ctx, user.ID, arg == "on"); err != nil {
			h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		h.sendMessage(msg.Chat.ID, "Pattern alerts turned "+arg+".")
	case "low", "medium", "high":
		sensitivity := models.AlertSensitivity(strings.ToUpper(arg))
		if err := h.services.Users.SetAlertsSensitivity(ctx, user.ID, sensitivity); err != nil {
			h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		h.sendMessage(msg.Chat.ID, "Alert sensitivity set to "+arg+".")
	default:
		h.sendMessage(msg.Chat.ID, "Usage: /alerts on|off|low|medium|high")
	}
}

func (h *Handlers) handleMeds(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.services.Users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	switch arg {
	case "on", "off":
		if err := h.services.Users.SetTakingMedications(ctx, user.ID, arg == "on"); err != nil {
			h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		h.sendMessage(msg.Chat.ID, "Medication tracking turned "+arg+".")
	default:
		h.sendMessage(msg.Chat.ID, "Usage: /meds on|off")
	}
}
