// Package bot is the Telegram transport: command routing, inline-keyboard
// callbacks, and the outbound dispatcher the scheduler sends through. All
// user-facing copy lives here.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/bot/handlers"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *handlers.Handlers
	log      *zap.Logger
}

func New(api *tgbotapi.BotAPI, services *handlers.Services, log *zap.Logger) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("nil telegram api")
	}
	return &Bot{
		api:      api,
		handlers: handlers.New(api, services, log),
		log:      log.Named("bot"),
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.log.Info("authorized", zap.String("account", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}
	b.handlers.HandleMessage(ctx, update.Message)
}
