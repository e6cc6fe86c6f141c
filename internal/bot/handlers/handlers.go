package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/checkin"
	"github.com/mkarev/moodpulse/internal/reminder"
	"github.com/mkarev/moodpulse/internal/repository"
	"github.com/mkarev/moodpulse/internal/stats"
)

type Services struct {
	Users    *repository.UserRepository
	Reminder *reminder.Service
	Checkin  *checkin.Service
	Stats    *stats.Service
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	services *Services
	log      *zap.Logger
}

func New(api *tgbotapi.BotAPI, services *Services, log *zap.Logger) *Handlers {
	return &Handlers{
		api:      api,
		services: services,
		log:      log.Named("handlers"),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if err := h.ensureUser(ctx, msg); err != nil {
		h.log.Error("failed to upsert user", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "checkin":
		h.handleCheckin(ctx, msg)
	case "today":
		h.handleToday(ctx, msg)
	case "week":
		h.handleStats(ctx, msg, stats.PeriodWeek)
	case "month":
		h.handleStats(ctx, msg, stats.PeriodMonth)
	case "remind":
		h.handleRemind(ctx, msg)
	case "skip":
		h.handleSkip(ctx, msg)
	case "timezone":
		h.handleTimezone(ctx, msg)
	case "alerts":
		h.handleAlerts(ctx, msg)
	case "meds":
		h.handleMeds(ctx, msg)
	case "deleteme":
		h.handleDeleteMe(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, see /help")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	h.sendMessage(msg.Chat.ID, "I only understand commands, see /help")
}

func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(answer); err != nil {
		h.log.Warn("failed to answer callback", zap.Error(err))
	}

	parts := strings.Split(callback.Data, ":")
	if len(parts) < 2 || parts[0] != "reminder" {
		return
	}
	telegramID := callback.From.ID
	now := time.Now().UTC()

	switch parts[1] {
	case "checkin":
		h.sendMessage(callback.Message.Chat.ID, checkinUsage)
	case "snooze":
		if len(parts) < 3 {
			return
		}
		minutes, err := strconv.Atoi(parts[2])
		if err != nil {
			return
		}
		if err := h.services.Reminder.Snooze(ctx, telegramID, minutes, now); err != nil {
			h.log.Error("snooze failed", zap.Int64("telegramId", telegramID), zap.Error(err))
			return
		}
		h.sendMessage(callback.Message.Chat.ID, "Snoozed for "+strconv.Itoa(minutes)+" minutes.")
	case "skip":
		if err := h.services.Reminder.SkipToday(ctx, telegramID, now); err != nil {
			h.log.Error("skip failed", zap.Int64("telegramId", telegramID), zap.Error(err))
			return
		}
		h.sendMessage(callback.Message.Chat.ID, "Skipped for today. See you tomorrow!")
	}
}

func (h *Handlers) ensureUser(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	_, err := h.services.Users.Upsert(ctx, from.ID,
		optional(from.UserName), optional(from.FirstName), optional(from.LastName), optional(from.LanguageCode))
	return err
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		h.log.Error("failed to send message", zap.Int64("chatId", chatID), zap.Error(err))
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID,
		"Welcome! I track your daily mood, energy, sleep and medication, "+
			"remind you to check in, and warn you about worrying patterns.\n\n"+
			"Set a reminder with /remind 21:00 and submit a check-in with /checkin. See /help.")
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID,
		checkinUsage+"\n\n"+
			"/today — show today's check-in\n"+
			"/week, /month — stats for the period\n"+
			"/remind on|off|HH:MM — daily reminder\n"+
			"/skip — skip today's reminder\n"+
			"/timezone <IANA zone> — e.g. /timezone Europe/Moscow\n"+
			"/alerts on|off|low|medium|high — pattern alerts\n"+
			"/meds on|off — whether you take medications\n"+
			"/deleteme — delete your account and all data")
}

func (h *Handlers) handleDeleteMe(ctx context.Context, msg *tgbotapi.Message) {
	deleted, err := h.services.Users.DeleteByTelegramID(ctx, msg.From.ID)
	if err != nil {
		h.log.Error("delete failed", zap.Int64("telegramId", msg.From.ID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if deleted {
		h.sendMessage(msg.Chat.ID, "Your account and all data were deleted. Goodbye!")
	} else {
		h.sendMessage(msg.Chat.ID, "Nothing to delete.")
	}
}
