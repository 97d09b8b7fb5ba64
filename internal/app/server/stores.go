package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/leave"
	"timesheet/internal/domain/notifications"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/domain/tickets"
	"timesheet/internal/domain/timesheet"
	"timesheet/internal/platform/config"
	"timesheet/internal/platform/db"
	"timesheet/internal/platform/memstore"
)

type stores struct {
	audit         audit.StoreAPI
	calendar      calendar.StoreAPI
	core          core.StoreAPI
	leave         leave.StoreAPI
	notifications notifications.StoreAPI
	overtime      overtime.StoreAPI
	tickets       tickets.StoreAPI
	timesheet     timesheet.StoreAPI
}

// openStores returns postgres-backed stores, or in-memory ones seeded with
// the demo organisation when STORAGE_DRIVER is memory. The pool is nil in
// memory mode.
func openStores(ctx context.Context, cfg config.Config) (stores, *pgxpool.Pool, error) {
	if cfg.UseMemoryStore() {
		st, err := memoryStores(ctx, cfg)
		return st, nil, err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return stores{}, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, db.DemoFixtures(time.Now().Year())); err != nil {
			pool.Close()
			return stores{}, nil, fmt.Errorf("seed: %w", err)
		}
	}

	return stores{
		audit:         audit.NewStore(pool),
		calendar:      calendar.NewStore(pool),
		core:          core.NewStore(pool),
		leave:         leave.NewStore(pool),
		notifications: notifications.NewStore(pool),
		overtime:      overtime.NewStore(pool),
		tickets:       tickets.NewStore(pool),
		timesheet:     timesheet.NewStore(pool),
	}, pool, nil
}

func memoryStores(ctx context.Context, cfg config.Config) (stores, error) {
	mem := memstore.New()
	if cfg.RunSeed {
		f := db.DemoFixtures(time.Now().Year())
		for _, emp := range f.Employees {
			mem.PutEmployee(emp)
		}
		for _, p := range f.Projects {
			mem.PutProject(p)
		}
		for _, t := range f.Tasks {
			mem.PutTask(t)
		}
		for _, h := range f.Holidays {
			if _, err := mem.Calendar().CreateHoliday(ctx, h); err != nil {
				return stores{}, fmt.Errorf("seed holiday %s: %w", h.Name, err)
			}
		}
		slog.Info("memory store seeded", "employees", len(f.Employees), "holidays", len(f.Holidays))
	}
	return stores{
		audit:         mem.Audit(),
		calendar:      mem.Calendar(),
		core:          mem.Core(),
		leave:         mem.Leave(),
		notifications: mem.Notifications(),
		overtime:      mem.Overtime(),
		tickets:       mem.Tickets(),
		timesheet:     mem.Timesheet(),
	}, nil
}
