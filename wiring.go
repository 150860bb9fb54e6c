package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/chains"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/repo"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/retrieval"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/telecom"
	"github.com/Chative-core-poc-v1/callcenter/internal/events"
	"github.com/Chative-core-poc-v1/callcenter/internal/observability"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

const metricsNamespace = "callcenter"

// app is the wired router with everything that needs closing on shutdown.
type app struct {
	runner  *graph.Runner
	store   *repo.MemoryStore
	account *telecom.Client
	metrics *observability.Metrics

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	a := &app{metrics: observability.NewMetrics(metricsNamespace)}

	store, closeStore := newMemoryStore(cfg)
	a.store = store
	a.closers = append(a.closers, closeStore)

	search, closeSearch := newSearcher(ctx, cfg)
	a.closers = append(a.closers, closeSearch)

	a.account = telecom.NewClient(cfg.AccountAPI, nil)
	registry, err := tools.NewAccountRegistry(a.account)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build capability registry: %w", err)
	}

	cms, err := chains.NewChatModels(ctx, chains.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Grader:    cfg.Grader,
		Generator: cfg.Generator,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	selector, err := chains.NewSelector(cms.Generator, cms.GeneratorName, registry.ToolInfos(), a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	steps := nodes.New(nodes.Deps{
		Memory:    store,
		Grader:    chains.NewGrader(cms.Grader, cms.GraderName, a.metrics),
		Writer:    chains.NewWriter(cms.Generator, cms.GeneratorName, cfg.Pipeline.ResponseLanguage, a.metrics),
		Selector:  selector,
		Tools:     registry,
		Backend:   a.account,
		Search:    search,
		Pipeline:  cfg.Pipeline,
		Fallbacks: a.metrics,
	})

	var publisher graph.TurnPublisher = events.Noop{}
	if cfg.NATS.Enabled() {
		nc, err := cfg.NATS.New(metricsNamespace)
		if err != nil {
			logx.Warn().Err(err).Msg("Failed to connect to NATS, turn events disabled")
		} else {
			publisher = events.NewPublisher(nc, cfg.NATS.Subject)
			a.closers = append(a.closers, nc.Close)
		}
	}

	a.runner, err = graph.BuildRunner(ctx, &graph.Config{Steps: steps, Memory: store},
		graph.WithCallbacks(observers.NewAllCallbacks(a.metrics, observability.Tracer())...),
		graph.WithPublisher(publisher),
		graph.WithTurnObserver(a.metrics),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newMemoryStore builds the Memory Store over Redis, or over the in-process backend when
// Redis is not configured, not selected or not reachable at startup.
func newMemoryStore(cfg *AppConfig) (*repo.MemoryStore, func()) {
	local := func() (*repo.MemoryStore, func()) {
		return repo.NewMemoryStore(repo.NewLocalBackend(time.Minute), cfg.Memory), func() {}
	}

	if !strings.EqualFold(cfg.Memory.Backend, "redis") || !cfg.Redis.Enabled() {
		logx.Info().Msg("Using in-process memory store")
		return local()
	}
	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Error().Err(err).Msg("Failed to initialise Redis client, using in-process memory store")
		return local()
	}
	logx.Info().Msg("Connected to Redis successfully")
	return repo.NewMemoryStore(repo.NewRedisBackend(rdb), cfg.Memory), func() { _ = rdb.Close() }
}

// newSearcher builds the configured document search backend. A backend that cannot be set up
// leaves the searcher nil, and retrieval then finds nothing.
func newSearcher(ctx context.Context, cfg *AppConfig) (retrieval.Searcher, func()) {
	noop := func() {}

	embedder, err := retrieval.NewOllamaEmbedder(cfg.Search)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create embedder, document search disabled")
		return nil, noop
	}

	switch strings.ToLower(cfg.Search.Backend) {
	case "chromem":
		db, err := retrieval.OpenChromem(cfg.Search.ChromemPath)
		if err != nil {
			logx.Error().Err(err).Msg("Failed to open chromem store, document search disabled")
			return nil, noop
		}
		searcher, err := retrieval.NewChromemSearcher(db, cfg.Search.Collection, retrieval.EmbeddingFunc(embedder))
		if err != nil {
			logx.Error().Err(err).Msg("Failed to open chromem collection, document search disabled")
			return nil, noop
		}
		return searcher, noop
	default:
		if cfg.Database.URL == "" {
			logx.Warn().Msg("DATABASE_URL is not set, document search disabled")
			return nil, noop
		}
		pool, err := cfg.Database.New(ctx)
		if err != nil {
			logx.Error().Err(err).Msg("Failed to connect to Postgres, document search disabled")
			return nil, noop
		}
		return retrieval.NewPGVectorSearcher(pool, embedder, cfg.Search.Collection), pool.Close
	}
}
