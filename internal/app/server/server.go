package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/leave"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/reports"
	"timesheet/internal/domain/tickets"
	"timesheet/internal/domain/timesheet"
	"timesheet/internal/domain/variance"
	"timesheet/internal/platform/awsclient"
	"timesheet/internal/platform/config"
	"timesheet/internal/platform/crypto"
	"timesheet/internal/platform/email"
	"timesheet/internal/platform/jobs"
	"timesheet/internal/platform/metrics"
	"timesheet/internal/platform/querier"
	"timesheet/internal/platform/queue"
	"timesheet/internal/platform/storage"
	"timesheet/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Metrics *metrics.Collector
	Jobs    *jobs.Service

	pool   *pgxpool.Pool
	cancel context.CancelFunc
}

type services struct {
	audit         *audit.Service
	calendar      *calendar.Service
	core          *core.Service
	leave         *leave.Service
	notifications *notifications.Service
	overtime      *overtime.Service
	timesheet     *timesheet.Service
	variance      *variance.Service
	reports       *reports.Service
	tickets       *tickets.Service
}

// New wires stores, services and the router. The caller owns the returned App
// and must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, pool, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Metrics: metrics.New(), pool: pool}

	var jobsDB querier.Querier
	if pool != nil {
		jobsDB = pool
	}
	app.Jobs = jobs.New(jobsDB, cfg.WorkerConcurrency)
	jobsCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.Jobs.Start(jobsCtx)

	dispatcher, err := newDispatcher(ctx, cfg, app.Jobs)
	if err != nil {
		app.Close()
		return nil, err
	}

	svc := newServices(cfg, st, dispatcher)

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	attachmentKey, err := cipher.Derive("attachments")
	if err != nil {
		app.Close()
		return nil, err
	}
	files, err := storage.New(cfg.AttachmentDir, attachmentKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	var idem middleware.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	if pool != nil {
		idem = middleware.NewIdempotencyStore(pool)
	}

	app.Router = newRouter(routerDeps{
		cfg:         cfg,
		svc:         svc,
		files:       files,
		metrics:     app.Metrics,
		idempotency: idem,
		ready:       app.ready,
	})
	return app, nil
}

func newServices(cfg config.Config, st stores, dispatcher notifications.Dispatcher) services {
	location := calendar.Location(cfg.DefaultLocation)

	notify := notifications.New(st.notifications, dispatcher)
	notify.DefaultFrom = cfg.EmailFrom

	directory := core.NewService(st.core)
	directory.Notifier = notify
	cal := calendar.NewService(st.calendar)

	ts := timesheet.NewService(st.timesheet, directory, cal, notify)
	ts.Rules = overtime.Rules{StandardHours: cfg.StandardWorkdayHours}
	ts.DefaultLocation = location

	ot := overtime.NewService(st.overtime, ts, directory, notify)

	vr := variance.NewService(directory, cal, st.timesheet)
	vr.StandardHours = cfg.StandardWorkdayHours
	vr.DefaultLocation = location

	return services{
		audit:         audit.New(st.audit),
		calendar:      cal,
		core:          directory,
		leave:         leave.NewService(st.leave, directory, notify),
		notifications: notify,
		overtime:      ot,
		timesheet:     ts,
		variance:      vr,
		reports:       reports.NewService(directory, ot, vr),
		tickets:       tickets.NewService(st.tickets, directory, notify),
	}
}

// newDispatcher picks how notification emails leave the process: through the
// SQS queue for the notification worker, through the in-process job queue, or
// not at all.
func newDispatcher(ctx context.Context, cfg config.Config, jobsSvc *jobs.Service) (notifications.Dispatcher, error) {
	if cfg.NotifyTransport == "sqs" {
		awsCfg, err := awsclient.Load(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		slog.Info("notification emails published to sqs", "queue", cfg.NotificationQueueURL)
		return queue.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL), nil
	}
	if !cfg.EmailEnabled {
		return nil, nil
	}

	var sesClient email.SESClient
	if cfg.EmailProvider == "ses" {
		awsCfg, err := awsclient.Load(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		sesClient = ses.NewFromConfig(awsCfg)
	}
	return jobs.MailDispatcher{Jobs: jobsSvc, Mailer: email.New(cfg, sesClient)}, nil
}

func (a *App) ready(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.pool.Ping(ctx)
}

// Close stops background jobs and releases the database pool.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
		a.Jobs.Wait()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
