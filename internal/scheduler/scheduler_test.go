package scheduler

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
)

type fakeReminderSource struct {
	due         []*models.User
	dueErr      error
	markSent    []int64
	markSentErr error
}

func (f *fakeReminderSource) UsersToRemind(_ context.Context, _ time.Time) ([]*models.User, error) {
	return f.due, f.dueErr
}

func (f *fakeReminderSource) MarkSent(_ context.Context, user *models.User, _ time.Time) error {
	if f.markSentErr != nil {
		return f.markSentErr
	}
	f.markSent = append(f.markSent, user.TelegramID)
	return nil
}

type fakeDispatcher struct {
	sent    []int64
	failFor int64
}

func (f *fakeDispatcher) SendReminder(chatID int64, _ string) error {
	if f.failFor == chatID {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func testUser(telegramID int64) *models.User {
	return &models.User{ID: uuid.New(), TelegramID: telegramID, Timezone: "UTC"}
}

func TestTick_SendsAndMarksSent(t *testing.T) {
	source := &fakeReminderSource{due: []*models.User{testUser(1), testUser(2)}}
	dispatcher := &fakeDispatcher{}
	s := New(source, dispatcher, zap.NewNop(), time.Minute)

	s.Tick(context.Background(), time.Now().UTC())

	assert.Equal(t, []int64{1, 2}, dispatcher.sent)
	assert.Equal(t, []int64{1, 2}, source.markSent)
}

func TestTick_DispatchFailureLeavesStateUntouched(t *testing.T) {
	source := &fakeReminderSource{due: []*models.User{testUser(1), testUser(2)}}
	dispatcher := &fakeDispatcher{failFor: 1}
	s := New(source, dispatcher, zap.NewNop(), time.Minute)

	s.Tick(context.Background(), time.Now().UTC())

	assert.Equal(t, []int64{2}, dispatcher.sent)
	assert.Equal(t, []int64{2}, source.markSent, "a failed send must not be marked sent")
}

func TestTick_CollectErrorSendsNothing(t *testing.T) {
	source := &fakeReminderSource{dueErr: errors.New("db down")}
	dispatcher := &fakeDispatcher{}
	s := New(source, dispatcher, zap.NewNop(), time.Minute)

	s.Tick(context.Background(), time.Now().UTC())
	assert.Empty(t, dispatcher.sent)
}

func TestStartStop(t *testing.T) {
	source := &fakeReminderSource{}
	s := New(source, &fakeDispatcher{}, zap.NewNop(), time.Hour)

	s.Start()
	s.Start() // second Start is a no-op
	s.Stop()
	s.Stop() // second Stop is a no-op

	// A stopped scheduler can be restarted.
	s.Start()
	s.Stop()
}

func TestNew_DefaultsInterval(t *testing.T) {
	s := New(&fakeReminderSource{}, &fakeDispatcher{}, zap.NewNop(), 0)
	require.Equal(t, time.Minute, s.interval)
}
