package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"hms/backend/internal/clock"
	"hms/backend/internal/config"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/service/outcomes"
	"hms/backend/internal/store"
	"hms/backend/internal/store/memory"
	"hms/backend/internal/store/postgres"
	"hms/backend/internal/store/redis"
	"hms/backend/internal/transport/rest"
)

// app holds the wired stores and services shared by every subcommand.
type app struct {
	cfg config.Config
	log *slog.Logger

	db  *bun.DB
	rdb *goredis.Client

	users     store.UserRepository
	apptRepo  store.AppointmentRepository
	availRepo store.AvailabilityRepository

	appointments *appointments.Service
	availability *availability.Service
	outcomes     *outcomes.Service
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	var outcomeRepo store.OutcomeRepository

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		a.users = memory.NewUserRepo()
		a.apptRepo = memory.NewAppointmentRepo()
		a.availRepo = memory.NewAvailabilityRepo()
		outcomeRepo = memory.NewOutcomeRepo()
	default:
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.users = postgres.NewUserRepo(db)
		a.apptRepo = postgres.NewAppointmentRepo(db)
		a.availRepo = postgres.NewAvailabilityRepo(db)
		outcomeRepo = postgres.NewOutcomeRepo(db)
	}

	if cfg.AvailabilityBackend == config.AvailabilityBackendRedis {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.rdb = rdb
		a.availRepo = redis.NewAvailabilityRepo(rdb, cfg.RedisKeyPrefix)
		log.Info("availability backed by redis", slog.String("redis_addr", cfg.RedisAddr))
	}

	clk := clock.System{}
	a.appointments = appointments.NewService(a.apptRepo, a.users, a.availRepo, clk,
		appointments.WithLogger(log),
		appointments.WithSweepOnRead(cfg.SweepOnRead),
	)
	a.availability = availability.NewService(a.availRepo, a.apptRepo, a.users, clk,
		availability.WithLocation(cfg.Location),
		availability.WithSweeper(a.appointments),
		availability.WithLogger(log),
	)
	a.outcomes = outcomes.NewService(outcomeRepo, a.users)
	return a, nil
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*bun.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url is required for the postgres store")
	}
	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, err
	}
	return db, nil
}

func (a *app) checks() map[string]rest.PingFunc {
	checks := map[string]rest.PingFunc{}
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	if a.rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		}
	}
	return checks
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis close failed", slog.Any("err", err))
		}
	}
	if a.db != nil {
		if err := postgres.Close(a.db); err != nil {
			a.log.Warn("database close failed", slog.Any("err", err))
		}
	}
}
