package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/analyzer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/composer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/config"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/embedding"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/identity"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/ingest"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/llm"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/pipeline"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/retrieval"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/websearch"
)

// app bundles the wired components shared by the CLI commands.
type app struct {
	cfg      config.Config
	store    *store.Store
	client   *llm.Client
	embedder *embedding.Embedder
	imageEmb *embedding.ImageEmbedder
	manuals  *store.Collection
	catalog  *store.Collection
	engine   *pipeline.Engine
}

// buildApp loads configuration, opens storage and wires the QA engine.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	manuals, err := st.Collection(cfg.Storage.ManualCollection)
	if err != nil {
		st.Close()
		return nil, err
	}
	catalog, err := st.Collection(cfg.Storage.CatalogCollection)
	if err != nil {
		st.Close()
		return nil, err
	}

	client, err := llm.New(cfg.OpenAI)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	embedder := embedding.NewEmbedder(client)
	imageEmbedder := embedding.NewImageEmbedder(cfg.OpenAI.ImageEmbedBaseURL, cfg.OpenAI.ImageEmbedModel)

	resolver := identity.NewResolver(imageEmbedder, catalog)

	var web retrieval.WebSearcher
	if cfg.Tavily.APIKey != "" {
		web = websearch.New(cfg.Tavily.APIKey, cfg.Tavily.MaxResults)
	} else {
		slog.Warn("TAVILY_API_KEY not set, answering from manual corpus only")
	}

	var counter retrieval.TokenCounter
	if cfg.Retrieval.MaxContextTokens > 0 {
		tc, err := ingest.NewTokenCounter()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("initializing token counter: %w", err)
		}
		counter = tc
	}

	aggregator := retrieval.NewAggregator(embedder, manuals, web, counter, cfg.Retrieval)
	engine := pipeline.NewEngine(resolver, analyzer.New(client), aggregator, composer.New(client))

	return &app{
		cfg:      cfg,
		store:    st,
		client:   client,
		embedder: embedder,
		imageEmb: imageEmbedder,
		manuals:  manuals,
		catalog:  catalog,
		engine:   engine,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
