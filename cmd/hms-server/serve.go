package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"hms/backend/internal/config"
	"hms/backend/internal/seed"
	grpcTransport "hms/backend/internal/transport/grpc"
	"hms/backend/internal/transport/rest"
	"hms/backend/internal/worker"
)

func serveCmd() *cobra.Command {
	var (
		migrate  bool
		doctors  int
		patients int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers with the background sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log, serveOptions{migrate: migrate, seedDoctors: doctors, seedPatients: patients})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	cmd.Flags().IntVar(&doctors, "seed-doctors", 3, "doctors to seed when running on the memory store")
	cmd.Flags().IntVar(&patients, "seed-patients", 10, "patients to seed when running on the memory store")
	return cmd
}

type serveOptions struct {
	migrate      bool
	seedDoctors  int
	seedPatients int
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, opts serveOptions) error {
	log.Info("starting",
		slog.String("version", cfg.Version),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("store", cfg.StoreDriver),
		slog.String("availability", cfg.AvailabilityBackend),
		slog.String("log_level", cfg.LogLevel),
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.migrate && a.db != nil {
		if err := runMigrations(ctx, a); err != nil {
			return err
		}
	}
	if cfg.StoreDriver == config.StoreDriverMemory {
		if _, err := seed.Run(ctx, a.users, a.availability, opts.seedDoctors, opts.seedPatients, log); err != nil {
			return err
		}
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcTransport.DefaultTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(a.availability, a.appointments, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: rest.NewRouter(rest.RouterConfig{
			Availability: a.availability,
			Appointments: a.appointments,
			Outcomes:     a.outcomes,
			Checks:       a.checks(),
			Env:          cfg.Env,
			Version:      cfg.Version,
			Logger:       log,
		}),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewSweeper(a.appointments, a.availability, cfg.SweepInterval, cfg.SweepTimeout, log).Run(workerCtx)
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr()))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			runErr = err
		}
	}

	shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
	stopWorker()
	wg.Wait()
	return runErr
}

func shutdown(log *slog.Logger, g *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = h.Close()
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}
