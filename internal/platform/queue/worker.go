package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ReceiveClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one message. retry asks for redelivery after
// retryDelay seconds; an error without retry drops the message.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (retry bool, retryDelay int32, err error)
}

// Worker long-polls a queue and fans messages out to Concurrency processors.
type Worker struct {
	client      ReceiveClient
	queueURL    string
	processor   Processor
	Concurrency int
	WaitSeconds int32
}

func NewWorker(client ReceiveClient, queueURL string, proc Processor) *Worker {
	return &Worker{
		client:      client,
		queueURL:    queueURL,
		processor:   proc,
		Concurrency: 4,
		WaitSeconds: 20,
	}
}

// Run polls until ctx is cancelled and returns once in-flight messages are done.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("queue worker started", "queue", w.queueURL, "concurrency", w.Concurrency)

	messages := make(chan types.Message, w.Concurrency)
	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				w.handle(ctx, msg)
			}
		}()
	}

	w.poll(ctx, messages)
	wg.Wait()
	slog.Info("queue worker stopped")
}

func (w *Worker) poll(ctx context.Context, messages chan<- types.Message) {
	defer close(messages)
	for {
		if ctx.Err() != nil {
			return
		}
		out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &w.queueURL,
			MaxNumberOfMessages:   int32(min(w.Concurrency, 10)),
			WaitTimeSeconds:       w.WaitSeconds,
			MessageAttributeNames: []string{"All"},
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("queue receive failed", "err", err)
			continue
		}
		for _, msg := range out.Messages {
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg types.Message) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, attrCarrier{attrs: msg.MessageAttributes})
	ctx, span := otel.Tracer("timesheet/internal/platform/queue").Start(ctx, "queue.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.system", "aws_sqs")),
	)
	defer span.End()
	if msg.MessageId != nil {
		span.SetAttributes(attribute.String("messaging.message_id", *msg.MessageId))
	}

	retry, delay, err := w.processor.Process(ctx, msg)
	switch {
	case err != nil && retry:
		slog.Warn("message processing failed, will retry", "retryDelay", delay, "err", err)
		if _, verr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          &w.queueURL,
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: delay,
		}); verr != nil {
			slog.Warn("change visibility failed", "err", verr)
		}
	case err != nil:
		span.RecordError(err)
		slog.Error("message dropped", "err", err)
		w.delete(ctx, msg)
	default:
		w.delete(ctx, msg)
	}
}

func (w *Worker) delete(ctx context.Context, msg types.Message) {
	if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &w.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		slog.Warn("delete message failed", "err", err)
	}
}
