package ports

import (
	"context"
	"io"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous text extraction.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// AnalysisService runs the document-to-decision pipeline.
type AnalysisService interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error)
	ExplainDenial(ctx context.Context, documentIDs []string) (*domain.ReasoningResult, error)
	DraftAppeal(ctx context.Context, req domain.AppealRequest) (*domain.AppealDraft, error)
}

// SessionService reads completed sessions and derives artifacts from them.
type SessionService interface {
	GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	RenderAppeal(ctx context.Context, sessionID string) (*domain.RenderedLetter, error)
	ExportSession(ctx context.Context, sessionID string) ([]byte, error)
}

// PlanCatalog lists insurance plans with rule documents.
type PlanCatalog interface {
	ListPlans(ctx context.Context) ([]string, error)
}
