package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/denial-appeal-assistant/internal/config"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/usecase"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/extractor/ocr"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/render/pdfletter"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/rules"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/storage/localfs"
)

type Options struct {
	Logger   *slog.Logger
	Observer ports.PipelineObserver
}

type App struct {
	Config config.Config

	Queue    *nats.Queue
	Repo     ports.DocumentRepository
	Ingest   ports.DocumentIngestor
	Process  ports.DocumentProcessor
	Analysis ports.AnalysisService
	Sessions ports.SessionService
	Plans    ports.PlanCatalog

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	sessions := postgres.NewSessionRepository(db)
	if err := sessions.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		CompletedSubject:   cfg.NATSCompletedSubject,
		HandlerTimeout:     cfg.WorkerHandlerTimeout,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	oracle := ollama.New(cfg.OllamaURL, cfg.OllamaExtractModel, cfg.OllamaReasonModel, resilience.NewExecutor(cfg.OracleResilience()))
	ruleStore := rules.NewFileStore(cfg.RulesDir)

	var imageSource ports.TextExtractor
	if cfg.UseMockOCR {
		logger.Warn("mock_ocr_enabled", "reason", "USE_MOCK_OCR=true")
		imageSource = ocr.NewMockExtractor()
	} else {
		imageSource = ocr.NewClient(cfg.OCRURL, storage, resilience.NewExecutor(resilience.DefaultConfig()))
	}
	textSource := extractor.NewRouter(
		plaintext.NewExtractor(storage),
		pdftext.NewExtractor(storage),
		imageSource,
		logger,
	)

	analysisOpts := []usecase.AnalysisOption{
		usecase.WithEventPublisher(queue),
		usecase.WithLogger(logger),
		usecase.WithMaxParallelDocuments(cfg.PipelineMaxParallelDocuments),
	}
	if opts.Observer != nil {
		analysisOpts = append(analysisOpts, usecase.WithPipelineObserver(opts.Observer))
	}

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		Ingest:  usecase.NewIngestDocumentUseCase(repo, storage, queue),
		Process: usecase.NewProcessDocumentUseCase(repo, textSource, logger),
		Analysis: usecase.NewAnalysisUseCase(
			repo,
			ollama.NewClassifier(oracle),
			ollama.NewFieldExtractor(oracle),
			ruleStore,
			ollama.NewReasoner(oracle),
			sessions,
			analysisOpts...,
		),
		Sessions: usecase.NewSessionUseCase(sessions, pdfletter.New(), xlsx.New()),
		Plans:    usecase.NewPlanCatalogUseCase(ruleStore),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
