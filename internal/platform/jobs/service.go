package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"timesheet/internal/domain/notifications"
	"timesheet/internal/platform/querier"
)

const JobSendEmail = "send_email"

// Service runs jobs on an in-process queue. When DB is set every run is
// recorded in job_runs.
type Service struct {
	DB      querier.Querier
	Workers int
	queue   chan job
	wg      sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db querier.Querier, workers int) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		DB:      db,
		Workers: workers,
		queue:   make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Wait blocks until every worker has exited after ctx was cancelled.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue reports false when the queue is full and the job was dropped.
func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (job_type, status)
      VALUES ($1,$2)
      RETURNING id
    `, j.Type, "running").Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if runID == "" {
		return details, err
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if _, updErr := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); updErr != nil {
		slog.Warn("job run update failed", "err", updErr)
	}
	return details, err
}

// MailDispatcher queues each notification email as a send_email job.
type MailDispatcher struct {
	Jobs   *Service
	Mailer notifications.Mailer
}

func (d MailDispatcher) Dispatch(_ context.Context, msg notifications.Message) error {
	mailer := d.Mailer
	if !d.Jobs.Enqueue(JobSendEmail, func(ctx context.Context) (any, error) {
		err := mailer.Send(ctx, msg.From, msg.To, msg.Subject, msg.Body)
		return map[string]any{"notificationId": msg.NotificationID, "to": msg.To}, err
	}) {
		return errQueueFull
	}
	return nil
}
