package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/platform/config"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &ses.SendEmailOutput{}, f.err
}

type failingMailer struct{ calls int }

func (m *failingMailer) Send(context.Context, string, string, string, string) error {
	m.calls++
	return errors.New("smtp down")
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Config{}
	assert.IsType(t, noopMailer{}, New(cfg, nil))

	cfg.EmailEnabled = true
	cfg.EmailProvider = "smtp"
	assert.IsType(t, noopMailer{}, New(cfg, nil), "no smtp host")

	cfg.SMTPHost = "mail.local"
	assert.IsType(t, &breakerMailer{}, New(cfg, nil))

	cfg.EmailProvider = "ses"
	assert.IsType(t, &breakerMailer{}, New(cfg, &fakeSES{}))
}

func TestSESMailer(t *testing.T) {
	client := &fakeSES{}
	m := NewSES(client)

	require.NoError(t, m.Send(context.Background(), "from@x", "to@x", "Leave approved", "body"))
	require.NoError(t, m.Send(context.Background(), "from@x", " ", "skipped", "body"))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, []string{"to@x"}, client.inputs[0].Destination.ToAddresses)
	assert.Equal(t, "Leave approved", *client.inputs[0].Message.Subject.Data)
}

func TestBreakerOpens(t *testing.T) {
	inner := &failingMailer{}
	m := WithBreaker("test", inner)
	for i := 0; i < 10; i++ {
		require.Error(t, m.Send(context.Background(), "f", "t", "s", "b"))
	}
	err := m.Send(context.Background(), "f", "t", "s", "b")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 10, inner.calls)
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("a@x", "b@x", "Hi", "body"))
	assert.True(t, strings.HasPrefix(msg, "From: a@x\r\nTo: b@x\r\nSubject: Hi\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody"))
}
