package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Dispatcher implements scheduler.Dispatcher over the Telegram API: one
// reminder message with the check-in, snooze and skip buttons.
type Dispatcher struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewDispatcher(api *tgbotapi.BotAPI, log *zap.Logger) *Dispatcher {
	return &Dispatcher{api: api, log: log.Named("dispatcher")}
}

func (d *Dispatcher) SendReminder(chatID int64, locale string) error {
	msg := tgbotapi.NewMessage(chatID, reminderText(locale))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(reminderButtonCheckin(locale), "reminder:checkin"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("30m", "reminder:snooze:30"),
			tgbotapi.NewInlineKeyboardButtonData("1h", "reminder:snooze:60"),
			tgbotapi.NewInlineKeyboardButtonData("2h", "reminder:snooze:120"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(reminderButtonSkip(locale), "reminder:skip"),
		),
	)
	if _, err := d.api.Send(msg); err != nil {
		return err
	}
	return nil
}

func reminderText(locale string) string {
	if locale == "ru" {
		return "⏰ Время для ежедневного чекина. Как прошёл день?"
	}
	return "⏰ Time for your daily check-in. How was your day?"
}

func reminderButtonCheckin(locale string) string {
	if locale == "ru" {
		return "📝 Начать чекин"
	}
	return "📝 Start check-in"
}

func reminderButtonSkip(locale string) string {
	if locale == "ru" {
		return "Пропустить сегодня"
	}
	return "Skip today"
}
