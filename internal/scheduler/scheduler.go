// Package scheduler drives the periodic reminder pass. One Scheduler owns one
// timer; construct as many as needed in tests, there is no package state.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/models"
)

// Dispatcher is the scheduler's only view of the chat transport. The telegram
// layer implements it; formatting, keyboards and retries live there.
type Dispatcher interface {
	SendReminder(chatID int64, locale string) error
}

// ReminderSource yields the users genuinely due this tick and records
// successful deliveries.
type ReminderSource interface {
	UsersToRemind(ctx context.Context, now time.Time) ([]*models.User, error)
	MarkSent(ctx context.Context, user *models.User, now time.Time) error
}

type Scheduler struct {
	reminders  ReminderSource
	dispatcher Dispatcher
	log        *zap.Logger
	interval   time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

func New(reminders ReminderSource, dispatcher Dispatcher, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		reminders:  reminders,
		dispatcher: dispatcher,
		log:        log.Named("scheduler"),
		interval:   interval,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background(), time.Now().UTC())
			// Ticks never overlap: the loop is single-threaded, and a tick
			// that became due while the previous one ran is dropped rather
			// than fired back-to-back.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// Tick performs one scheduling pass: collect due users, dispatch, mark sent.
// A dispatch failure leaves the user's state untouched so the send retries on
// the next tick; one user's failure never affects the rest.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	users, err := s.reminders.UsersToRemind(ctx, now)
	if err != nil {
		s.log.Error("failed to collect due reminders", zap.Error(err))
		return
	}
	if len(users) == 0 {
		return
	}

	s.log.Info("sending reminders", zap.Int("count", len(users)))

	for _, user := range users {
		if err := s.dispatcher.SendReminder(user.TelegramID, user.Locale()); err != nil {
			s.log.Error("reminder dispatch failed",
				zap.Int64("telegramId", user.TelegramID), zap.Error(err))
			continue
		}
		if err := s.reminders.MarkSent(ctx, user, now); err != nil {
			s.log.Error("failed to mark reminder sent",
				zap.Int64("telegramId", user.TelegramID), zap.Error(err))
			continue
		}
		s.log.Info("reminder sent", zap.Int64("telegramId", user.TelegramID))
	}
}
