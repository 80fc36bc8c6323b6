package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/async"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/outreach"
	repo "github.com/joseph-ayodele/automations/internal/repository"
	svc "github.com/joseph-ayodele/automations/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)

	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	jobsRepo := repo.NewJobRepository(db, logger)
	registry := automation.DefaultRegistry()

	runnerOpts := []async.RunnerOption{async.WithRowDelay(cfg.Worker.RowDelay)}
	if cfg.Outreach.Enabled() {
		provider := outreach.NewClient(cfg.Outreach, cfg.Gateway.Timeout, logger)
		runnerOpts = append(runnerOpts, async.WithProcessor(constants.KindWhatsApp,
			async.NewOutreachProcessor(provider, cfg.Outreach.CampaignID)))
		logger.Info("outreach provider enabled", "base_url", cfg.Outreach.BaseURL)
	}
	runner := async.NewRunner(jobsRepo, registry, logger, runnerOpts...)

	queue := async.NewProcessorQueue(runner, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)

	jobService := svc.NewJobService(jobsRepo, registry, queue, nil, logger)
	router := svc.NewRouter(jobService, func(r *http.Request) error {
		return repo.HealthCheck(r.Context(), db, time.Second, logger)
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health for orchestrators
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("gateway listening", "http_addr", cfg.Server.HTTPAddr, "grpc_addr", cfg.Server.GRPCAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
