package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"timesheet/internal/domain/notifications"
)

const eventNotificationEmail = "NOTIFICATION_EMAIL"

type SendClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher hands notification emails to SQS for the notification worker.
type Publisher struct {
	client   SendClient
	queueURL string
	cb       *gobreaker.CircuitBreaker
}

func NewPublisher(client SendClient, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "sqs-publish",
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

func (p *Publisher) Dispatch(ctx context.Context, msg notifications.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	attrs := map[string]types.MessageAttributeValue{
		"EventType": {
			DataType:    aws.String("String"),
			StringValue: aws.String(eventNotificationEmail),
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, attrCarrier{attrs: attrs})

	_, err = p.cb.Execute(func() (interface{}, error) {
		return p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:          aws.String(p.queueURL),
			MessageBody:       aws.String(string(body)),
			MessageAttributes: attrs,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to send message to notification queue: %w", err)
	}
	return nil
}
