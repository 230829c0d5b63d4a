package main

import (
	"context"
	"database/sql"
	"fmt"

	"bargain-backend/config"
	"bargain-backend/dao"
	"bargain-backend/db"
	"bargain-backend/pkg/deepseek"
	"bargain-backend/pkg/gemini"
	"bargain-backend/pkg/llm"
	"bargain-backend/pkg/market"
	"bargain-backend/pkg/metrics"
	"bargain-backend/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds the wired object graph shared by the commands.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	registry    *prometheus.Registry
	coordinator *usecase.Coordinator
	results     *dao.ResultRepository // nil when MySQL is not configured
	db          *sql.DB
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := zap.InfoLevel
	if cfg.App.Debug {
		level = zap.DebugLevel
	} else if cfg.App.LogLevel != "" {
		if err := level.Set(cfg.App.LogLevel); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	model, err := newLanguageModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gateway := llm.New(model,
		llm.WithLogger(logger.Named("llm")),
		llm.WithMetrics(rec),
		llm.WithModelName(modelName(cfg)),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxRetries:      cfg.LLM.MaxRetries,
			BackoffBase:     cfg.LLM.BackoffBase,
			UnexpectedDelay: cfg.LLM.BackoffBase,
		}),
	)
	logger.Info("llm gateway ready", zap.String("provider", cfg.LLM.Provider), zap.String("mode", string(gateway.Mode())))

	sim := market.NewSimulator(market.Delays{
		SendMin:  cfg.Simulation.SendDelayMin,
		SendMax:  cfg.Simulation.SendDelayMax,
		ReplyMin: cfg.Simulation.ReplyDelayMin,
		ReplyMax: cfg.Simulation.ReplyDelayMax,
	}, market.WithLogger(logger.Named("market")))

	session := usecase.NewSession(gateway, sim, usecase.NewPriceExtractor(usecase.DefaultPriceHeuristic()),
		usecase.WithRoundDelay(cfg.Agent.RoundDelay),
		usecase.WithSessionLogger(logger.Named("session")))
	scheduler := usecase.NewScheduler(session, usecase.SchedulerConfig{
		MaxConcurrent: cfg.Agent.MaxConcurrent,
		Timeout:       cfg.Agent.Timeout,
	}, usecase.WithSchedulerLogger(logger.Named("scheduler")), usecase.WithSchedulerMetrics(rec))

	a := &app{cfg: cfg, logger: logger, registry: reg}

	opts := []usecase.CoordinatorOption{
		usecase.WithCoordinatorLogger(logger.Named("coordinator")),
		usecase.WithCoordinatorMetrics(rec),
	}
	if cfg.MySQL.Enabled() {
		conn, err := db.Open(ctx, dbConfig(cfg))
		if err != nil {
			return nil, err
		}
		a.db = conn
		a.results = dao.NewResultRepository(conn)
		opts = append(opts, usecase.WithRecorder(a.results))
		logger.Info("result persistence enabled", zap.String("database", cfg.MySQL.Database))
	}

	a.coordinator = usecase.NewCoordinator(
		usecase.NewSearchAgent(gateway, sim, logger.Named("search")),
		scheduler,
		dao.NewTaskStore(),
		opts...,
	)
	return a, nil
}

// newLanguageModel returns nil when no API key is configured, which puts the
// gateway in mock mode.
func newLanguageModel(ctx context.Context, cfg config.Config) (llm.LanguageModel, error) {
	key := cfg.LLMAPIKey()
	if key == "" {
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, key, cfg.LLM.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return c, nil
	default:
		c, err := deepseek.NewClient(key, cfg.LLM.DeepSeekBaseURL, cfg.LLM.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("deepseek client: %w", err)
		}
		return c, nil
	}
}

func modelName(cfg config.Config) string {
	if cfg.LLM.Provider == config.ProviderGemini {
		return cfg.LLM.GeminiModel
	}
	return cfg.LLM.DeepSeekModel
}

func dbConfig(cfg config.Config) db.Config {
	return db.Config{
		User:     cfg.MySQL.User,
		Password: cfg.MySQL.Password,
		Host:     cfg.MySQL.Host,
		Database: cfg.MySQL.Database,
	}
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
