package email

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"timesheet/internal/domain/notifications"
)

type breakerMailer struct {
	next notifications.Mailer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker stops calling a failing mail provider for a while once half of
// at least ten recent sends have failed.
func WithBreaker(name string, next notifications.Mailer) notifications.Mailer {
	return &breakerMailer{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mailer-" + name,
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.5
			},
		}),
	}
}

func (m *breakerMailer) Send(ctx context.Context, from, to, subject, body string) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.next.Send(ctx, from, to, subject, body)
	})
	return err
}
