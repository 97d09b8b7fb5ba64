package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/notifications"
)

type fakeSQS struct {
	mu         sync.Mutex
	sent       []*sqs.SendMessageInput
	pending    []types.Message
	deleted    []string
	visibility map[string]int32
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	msgs := f.pending
	f.pending = nil
	f.mu.Unlock()
	if len(msgs) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visibility == nil {
		f.visibility = map[string]int32{}
	}
	f.visibility[*in.ReceiptHandle] = in.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

type flakyMailer struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []string
}

func (m *flakyMailer) Send(_ context.Context, _, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestPublisherSendsMessage(t *testing.T) {
	client := &fakeSQS{}
	p := NewPublisher(client, "https://sqs.local/notifications")

	msg := notifications.Message{NotificationID: "n1", To: "ella@example.com", Subject: "Overtime approved"}
	require.NoError(t, p.Dispatch(context.Background(), msg))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "https://sqs.local/notifications", *client.sent[0].QueueUrl)
	assert.Equal(t, eventNotificationEmail, *client.sent[0].MessageAttributes["EventType"].StringValue)

	var decoded notifications.Message
	require.NoError(t, json.Unmarshal([]byte(*client.sent[0].MessageBody), &decoded))
	assert.Equal(t, msg, decoded)
}

func message(t *testing.T, handle, to string, receives string) types.Message {
	t.Helper()
	body, err := json.Marshal(notifications.Message{To: to, Subject: "s", Body: "b"})
	require.NoError(t, err)
	return types.Message{
		MessageId:     aws.String(handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": receives},
	}
}

func TestWorkerDeletesDeliveredAndRetriesFailures(t *testing.T) {
	client := &fakeSQS{}
	client.pending = []types.Message{
		message(t, "ok", "ella@example.com", "1"),
		message(t, "retry", "down@example.com", "3"),
		{MessageId: aws.String("bad"), ReceiptHandle: aws.String("bad"), Body: aws.String("{not json")},
	}
	mailer := &flakyMailer{fail: map[string]bool{"down@example.com": true}}
	w := NewWorker(client, "q", MailProcessor{Mailer: mailer})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.deleted) == 2 && len(client.visibility) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.ElementsMatch(t, []string{"ok", "bad"}, client.deleted)
	assert.Equal(t, int32(80), client.visibility["retry"])
	assert.Equal(t, []string{"ella@example.com"}, mailer.sent)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, int32(20), Backoff(1))
	assert.Equal(t, int32(160), Backoff(4))
	assert.Equal(t, int32(3600), Backoff(12))
}
