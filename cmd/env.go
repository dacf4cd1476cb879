package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/extract"
	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/pipeline"
	"github.com/finsight-ai/finsight/internal/store"
	"github.com/finsight-ai/finsight/pkg/anthropic"
	"github.com/finsight-ai/finsight/pkg/serper"
)

// Runner is the analysis entry point the commands and HTTP handlers call.
type Runner interface {
	Run(ctx context.Context, query, filePath, userID, documentID string) (*model.AnalysisRecord, error)
}

// Env bundles the wired application dependencies for one command invocation.
type Env struct {
	Store     store.Store
	Extractor *extract.Extractor
	Pipeline  Runner
}

// initEnv wires the store, API clients, extractor and pipeline from config.
func initEnv(ctx context.Context) (*Env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	if cfg.Anthropic.Key == "" {
		st.Close()
		return nil, eris.New("anthropic API key not configured (FINSIGHT_ANTHROPIC_KEY)")
	}
	aiClient := anthropic.NewClient(cfg.Anthropic.Key)

	var searchClient serper.Client
	if cfg.Serper.Key != "" {
		searchClient = serper.NewClient(cfg.Serper.Key,
			serper.WithBaseURL(cfg.Serper.BaseURL),
			serper.WithLocale(cfg.Serper.Location, cfg.Serper.Country, cfg.Serper.Language),
		)
	} else {
		zap.L().Warn("serper API key not configured, web search disabled")
	}

	stages, err := pipeline.LoadStages(cfg.Pipeline.StagesFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	extractor := extract.New(cfg.Extract)

	return &Env{
		Store:     st,
		Extractor: extractor,
		Pipeline:  pipeline.New(cfg, st, extractor, aiClient, searchClient, stages),
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close releases the environment's resources.
func (e *Env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
