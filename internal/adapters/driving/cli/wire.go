package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/ai"
	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/config/file"
	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/storage/memory"
	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/storage/sqlite"
	"github.com/SanjayDoppalapudi/RAG/internal/adapters/driven/vectorstore/qdrant"
	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driven"
	"github.com/SanjayDoppalapudi/RAG/internal/core/services"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers"
	"github.com/SanjayDoppalapudi/RAG/internal/postprocessors/chunker"
)

// shutdownTimeout bounds how long teardown waits for running jobs to pause.
const shutdownTimeout = 10 * time.Second

var wireLog = logger.With("wire")

// closers release wired resources in reverse order.
var closers []func() error

// storage groups the three stores a backend provides.
type storage struct {
	registry driven.DocumentRegistry
	jobs     driven.JobStore
	vectors  driven.VectorStore
}

func wireSettings() error {
	if settingsService != nil {
		return nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return nil
}

// wireCore builds every service from settings. Invalid settings and a
// dimension mismatch between the embedding model and the store are fatal.
func wireCore(ctx context.Context) error {
	if answerService != nil {
		return nil
	}
	if err := wireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid configuration (see 'ragvis settings show'): %w", err)
	}

	aiServices, err := ai.Init(ctx, settings)
	if err != nil {
		return err
	}
	closers = append(closers, func() error {
		aiServices.Close()
		return nil
	})

	st, err := openStorage(ctx, settings)
	if err != nil {
		return err
	}

	chunks := chunker.New(
		chunker.WithChunkTokens(settings.Ingestion.ChunkTokens),
		chunker.WithOverlapFraction(settings.Ingestion.OverlapFraction),
	)
	ingest, err := services.NewIngestionService(
		parsers.NewDefaultRegistry(),
		chunks,
		aiServices.EmbeddingService,
		st.vectors,
		st.registry,
		st.jobs,
		settings.Ingestion,
	)
	if err != nil {
		return err
	}
	closers = append(closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return ingest.Shutdown(ctx)
	})

	prompts, err := file.NewPromptStore(promptDir())
	if err != nil {
		return err
	}

	ingestionService = ingest
	documentService = services.NewDocumentService(st.registry, st.jobs, st.vectors, ingest)
	visualizationService = services.NewVisualizationService(
		aiServices.EmbeddingService, st.vectors, st.registry, settings.Visualization)
	answerService = services.NewAnswerService(
		aiServices.EmbeddingService, st.vectors, st.registry, aiServices.LLMService, prompts, *settings)
	reconcileSchedule = settings.Reconcile.Schedule

	wireLog.Debug("services ready: embedding=%s llm=%s store=%s",
		aiServices.EmbeddingService.ModelName(), aiServices.LLMService.ModelName(), settings.VectorStore.Backend)
	return nil
}

// openStorage opens the registry, job store and chunk store for the
// configured backend. The memory backend keeps everything in process.
func openStorage(ctx context.Context, settings *domain.AppSettings) (*storage, error) {
	dims := settings.Embedding.Dimensions
	cfg := settings.VectorStore

	if cfg.Backend == domain.VectorBackendMemory {
		wireLog.Warn("memory backend: documents are lost when the process exits")
		return &storage{
			registry: memory.NewDocumentRegistry(),
			jobs:     memory.NewJobStore(),
			vectors:  memory.NewVectorStore(dims),
		}, nil
	}

	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	closers = append(closers, db.Close)

	st := &storage{
		registry: db.DocumentRegistry(),
		jobs:     db.JobStore(),
	}
	switch cfg.Backend {
	case domain.VectorBackendQdrant:
		q, err := qdrant.New(ctx, qdrant.Config{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: dims,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
		}
		closers = append(closers, q.Close)
		st.vectors = q
	default:
		st.vectors = db.VectorStore(cfg.Collection, dims)
	}
	return st, nil
}

func promptDir() string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}

// teardown closes wired resources. Running ingestion jobs are paused and
// resume on the next serve.
func teardown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			wireLog.Warn("teardown: %v", err)
		}
	}
	closers = nil
}
