// Command taskpilot runs the conversational task assistant: the HTTP
// API plus the periodic workflow triggers, backed by an embedded libsql
// database.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskpilot/internal/assistant"
	"taskpilot/internal/capability"
	"taskpilot/internal/config"
	"taskpilot/internal/conversation"
	"taskpilot/internal/engine"
	"taskpilot/internal/intent"
	"taskpilot/internal/logging"
	"taskpilot/internal/server"
	"taskpilot/internal/storage"
	"taskpilot/internal/task"
	"taskpilot/internal/vector"
	"taskpilot/internal/workflow"
)

const shutdownGrace = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// .env first so the config env overrides see it.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback := logging.Setup("info", true)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	store, err := storage.Open(cfg.Storage.Path, cfg.Storage.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	factory := capability.NewFactory(&cfg.Capability, logger)

	var index capability.VectorIndex = capability.NopIndex{}
	if cfg.Capability.Embedding.Enabled {
		idx, err := vector.NewIndex(store.DB(), cfg.Capability.Embedding.Dims, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("vector index unavailable, semantic enrichment disabled")
		} else {
			index = idx
		}
	}

	tasks := task.NewStore()
	log := conversation.NewLog()
	generator := factory.Generator()
	embedder := factory.Embedder()
	tracer := factory.Tracer()

	resolver := intent.NewResolver(generator, factory.Cache(), factory.RateLimiter(), tracer, logger)
	eng := engine.NewEngine(tasks, log, resolver, engine.Capabilities{
		Generator: generator,
		Embedder:  embedder,
		Index:     index,
		Tracer:    tracer,
		Options:   factory.Options(),
	}, logger)
	runner := workflow.NewRunner(tasks, log, embedder, index, cfg.Workflows.EmbedConcurrency, logger)

	asst := assistant.New(tasks, log, eng, runner, store, logger)
	if err := asst.Load(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to load persisted state")
	}

	if cfg.Workflows.Enabled {
		sched := workflow.NewScheduler(asst, cfg.Workflows, logger)
		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start workflow scheduler")
		}
		defer sched.Stop()
	}

	config.Watch(func(fresh *config.Config) {
		logging.SetLevel(fresh.Log.Level)
		logger.Info().Str("level", fresh.Log.Level).Msg("config reloaded")
	})

	srv := server.NewServer(asst, logger, cfg.Server.Mode)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("taskpilot listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
}
