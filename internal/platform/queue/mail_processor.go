package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"timesheet/internal/domain/notifications"
)

const maxRetryDelay = 3600

// MailProcessor delivers queued notification emails.
type MailProcessor struct {
	Mailer notifications.Mailer
}

func (p MailProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, fmt.Errorf("empty message body")
	}
	var m notifications.Message
	if err := json.Unmarshal([]byte(*msg.Body), &m); err != nil {
		return false, 0, fmt.Errorf("decode notification message: %w", err)
	}
	if err := p.Mailer.Send(ctx, m.From, m.To, m.Subject, m.Body); err != nil {
		return true, Backoff(receiveCount(msg)), err
	}
	return false, 0, nil
}

// Backoff doubles the visibility delay per attempt starting at 10s, capped at an hour.
func Backoff(attempt int) int32 {
	delay := math.Pow(2, float64(attempt)) * 10
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return int32(delay)
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
