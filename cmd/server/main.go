// Package main provides the entry point for the Caia Corpus server: the control
// API, the Temporal worker and the artifact browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/caia-corpus/internal/api"
	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/presentation"
	"github.com/Caia-Tech/caia-corpus/internal/processing"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/activities"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	closer, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := serve(cfg); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		closer.Close()
		os.Exit(1)
	}
}

func serve(cfg *config.PipelineConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.Server.TemporalHost,
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	metricsCollector := storage.NewSimpleMetricsCollector()
	backend, err := storage.NewBackend(cfg.Storage, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	bus := pipeline.NewEventBus(256, 1)
	defer bus.Close()
	if _, err := bus.Subscribe(nil, logStageEvent); err != nil {
		return err
	}

	w := worker.New(temporalClient, cfg.Server.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     2,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})
	w.RegisterWorkflow(workflows.CorpusPreparationWorkflow)
	w.RegisterActivity(activities.NewCorpusActivities(cfg, backend, bus))

	app := api.NewApp("Caia Corpus API")
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	api.SetupRoutes(app,
		api.NewHandlers(temporalClient, cfg.Server.TaskQueue, backend, cfg.Storage.VocabularyFile,
			processing.NewNormalizerFromConfig(cfg.Processing)),
		api.NewStorageHandler(backend, metricsCollector),
	)

	browser := presentation.NewAPI(nil, backend, &presentation.APIConfig{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.BrowsePort,
		BasePath:   "/api/v1",
		EnableCORS: true,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		interrupt := make(chan interface{})
		go func() {
			<-gctx.Done()
			close(interrupt)
		}()
		log.Info().
			Str("task_queue", cfg.Server.TaskQueue).
			Strs("activities", activities.Names()).
			Msg("Starting Temporal worker")
		return w.Run(interrupt)
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("address", addr).Msg("Starting Caia Corpus API")
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		return app.Shutdown()
	})

	g.Go(func() error {
		return browser.Start(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func logStageEvent(ctx context.Context, event *pipeline.StageEvent) error {
	entry := log.Info()
	if event.Type == pipeline.EventRunFailed {
		entry = log.Error().Str("error", event.Error)
	}
	entry.
		Str("run_id", event.RunID).
		Str("event", string(event.Type)).
		Str("stage", event.Stage).
		Fields(event.Metadata).
		Msg("Pipeline event")
	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
