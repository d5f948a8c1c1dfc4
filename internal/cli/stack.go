package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/marquee-ai/marquee/internal/agent"
	"github.com/marquee-ai/marquee/internal/config"
	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/llm"
	"github.com/marquee-ai/marquee/internal/memory"
	"github.com/marquee-ai/marquee/internal/search"
	"github.com/marquee-ai/marquee/internal/store"
	"github.com/marquee-ai/marquee/internal/toolbox"
	"github.com/marquee-ai/marquee/internal/tools"
)

// openMovieStore opens the configured dataset store. The *store.DB is
// non-nil only for the sqlite backend; the sqlite session store reuses
// that same handle.
func openMovieStore(ctx context.Context, cfg config.Config) (store.MovieStore, *store.DB, error) {
	switch cfg.Store.Backend {
	case "", "sqlite":
		if err := paths.EnsureDirs(); err != nil {
			return nil, nil, fmt.Errorf("creating data directories: %w", err)
		}
		db, err := store.Open(paths.DatabasePath(cfg.Store), log)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "postgres":
		st, err := store.OpenPostgres(ctx, cfg.Store.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openSessionStore builds the conversation store. db may be nil; the
// sqlite session store then opens its own handle in the data directory.
// The returned closer is non-nil only when that extra handle was opened.
func openSessionStore(cfg config.Config, db *store.DB) (memory.Store, func() error, error) {
	switch cfg.Memory.Store {
	case "memory":
		return memory.NewInMemoryStore(), nil, nil
	case "", "sqlite":
		if db != nil {
			return memory.NewSQLiteStore(db), nil, nil
		}
		if err := paths.EnsureDirs(); err != nil {
			return nil, nil, fmt.Errorf("creating data directories: %w", err)
		}
		own, err := store.Open(paths.DatabasePath(cfg.Store), log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session store: %w", err)
		}
		return memory.NewSQLiteStore(own), own.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory store %q", cfg.Memory.Store)
	}
}

// buildIndex constructs the configured vector index. The in-process
// index is bootstrapped from the vectors persisted at ingest time.
func buildIndex(ctx context.Context, cfg config.Config, st store.MovieStore, embedder embedding.Provider) (search.Index, error) {
	switch cfg.Search.Backend {
	case "", "memory":
		idx := search.NewFlatIndex(cfg.Search.SimilarityFloor)
		rows, err := st.LoadVectors(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading stored vectors: %w", err)
		}
		if len(rows) > 0 {
			docs := make([]search.Document, len(rows))
			for i, r := range rows {
				docs[i] = search.Document{ID: r.MovieID, Title: r.Title, Vector: r.Vector}
			}
			if err := idx.Upsert(ctx, docs); err != nil {
				return nil, err
			}
		}
		log.Info().Int("vectors", len(rows)).Msg("in-process index ready")
		return idx, nil

	case "qdrant":
		idx, err := search.NewQdrantIndex(search.QdrantConfig{
			URL:        cfg.Search.Qdrant.URL,
			APIKey:     cfg.Search.Qdrant.APIKey,
			Collection: cfg.Search.Qdrant.Collection,
			Dims:       uint64(embedder.Dimensions()),
			Floor:      cfg.Search.SimilarityFloor,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := idx.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return idx, nil

	case "pgvector":
		pg, ok := st.(*store.PostgresStore)
		if !ok {
			return nil, fmt.Errorf("pgvector index requires the postgres store backend")
		}
		return search.NewPgvectorIndex(pg.Pool(), cfg.Search.SimilarityFloor, log), nil

	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}
}

// buildReasoner constructs the provider registry and the failover
// client over it. An empty registry is not an error here: serve runs
// degraded, interactive commands refuse before the first question.
func buildReasoner(cfg config.Config) (llm.Client, *llm.Registry) {
	registry := llm.NewRegistryFromConfig(cfg.LLM, log)
	client := llm.NewFailoverClient(registry, cfg.LLM.Primary, cfg.LLM.Fallbacks, log)
	return client, registry
}

// buildToolbox registers the two dataset tools.
func buildToolbox(cfg config.Config, client llm.Client, st store.MovieStore, embedder embedding.Provider, index search.Index) (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if err := reg.Register(toolbox.NewStructuredQueryTool(client, st, cfg.Agent.MaxResultRows, log)); err != nil {
		return nil, err
	}
	if err := reg.Register(toolbox.NewSemanticSearchTool(embedder, index, cfg.Search.DefaultK, cfg.Search.MaxK, log)); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildOrchestrator assembles the reasoning loop over the given
// conversation store.
func buildOrchestrator(cfg config.Config, client llm.Client, toolReg *tools.Registry, mem memory.Store) *agent.Orchestrator {
	return agent.New(client, toolReg, mem, agent.Config{
		Model:         cfg.LLM.Primary,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
		ToolTimeout:   time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second,
	}, log)
}

// fatalValidation logs every issue and errors when the config cannot
// drive the requested command.
func fatalValidation(cfg *config.Config) error {
	issues := config.Validate(cfg)
	if len(issues) == 0 {
		return nil
	}
	for _, issue := range issues {
		log.Error().Str("path", issue.Path).Msg(issue.Message)
	}
	return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
}
