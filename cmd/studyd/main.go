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

	"github.com/joseph-ayodele/studydeck/internal/async"
	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/export"
	"github.com/joseph-ayodele/studydeck/internal/generate"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
	"github.com/joseph-ayodele/studydeck/internal/llm/openai"
	"github.com/joseph-ayodele/studydeck/internal/pdf"
	"github.com/joseph-ayodele/studydeck/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Configuration problems degrade the affected component instead of stopping the server.
	if err := cfg.Validate(); err != nil {
		logger.Warn("config.invalid", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := jobs.Open(ctx, cfg.Store, logger)
	defer store.Close() //nolint:errcheck

	extractor, err := pdf.NewExtractor(cfg.PDF, logger)
	if err != nil {
		logger.Warn("pdf.extractor.fallback", "wanted", cfg.PDF.Extractor, "error", err)
		extractor = pdf.NewFitzExtractor(logger)
	}
	queue := async.NewWorkerPool(logger,
		async.WithWorkers(cfg.PDF.Workers),
		async.WithQueueSize(cfg.PDF.QueueSize),
		async.WithProcessTimeout(cfg.PDF.ProcessTimeout),
	)
	worker := pdf.NewWorker(store, extractor, logger)
	pdfService := pdf.NewService(store, queue, worker, cfg.Limits.MaxFileSizeBytes(), logger)

	llmClient := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	generator := generate.NewService(llmClient, cfg.Limits, logger)

	logger.Info("ratelimit.config",
		"requests_per_minute", cfg.RateLimit.RequestsPerMinute,
		"interval", cfg.RateLimit.Interval.String(),
		"max_tracked_ips", cfg.RateLimit.MaxTrackedIPs,
		"enforced", false,
	)

	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Generator:      generator,
			PDF:            pdfService,
			Store:          store,
			Export:         export.NewService(logger),
			Limits:         cfg.Limits,
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, healthServer := server.NewGRPCServer(store, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("grpc.listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc.serve.failed", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("http.listening", "addr", cfg.Server.HTTPAddr, "store", store.Available())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve.failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown.start")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	healthServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown.failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("shutdown.done")
}
