package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/notifications"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func (m *recordingMailer) Send(_ context.Context, _, to, subject, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to+"|"+subject)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func TestMailDispatcherDeliversInBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(nil, 2)
	svc.Start(ctx)
	defer func() {
		cancel()
		svc.Wait()
	}()

	mailer := &recordingMailer{done: make(chan struct{}, 1)}
	d := MailDispatcher{Jobs: svc, Mailer: mailer}
	require.NoError(t, d.Dispatch(ctx, notifications.Message{To: "ella@example.com", Subject: "Leave approved"}))

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not delivered")
	}
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, []string{"ella@example.com|Leave approved"}, mailer.sent)
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc := New(nil, 1)
	for i := 0; i < cap(svc.queue); i++ {
		require.True(t, svc.Enqueue("noop", func(context.Context) (any, error) { return nil, nil }))
	}
	assert.False(t, svc.Enqueue("noop", func(context.Context) (any, error) { return nil, nil }))

	d := MailDispatcher{Jobs: svc, Mailer: &recordingMailer{done: make(chan struct{}, 1)}}
	assert.ErrorIs(t, d.Dispatch(context.Background(), notifications.Message{}), errQueueFull)
}

func TestRunNowReturnsDetails(t *testing.T) {
	svc := New(nil, 1)
	out, err := svc.RunNow(context.Background(), "noop", func(context.Context) (any, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, out)
}
