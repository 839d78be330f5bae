package ports

import (
	"context"
	"io"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveText(ctx context.Context, id string, text string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// EventPublisher announces completed analysis sessions.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, sessionID string) error
}

// TextExtractor turns a stored document into raw text (OCR, PDF text layer, plain text).
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// DocumentClassifier assigns a DocumentType to raw text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.DocumentType, error)
}

// FieldExtractor pulls the typed fields of docType out of raw text.
type FieldExtractor interface {
	Extract(ctx context.Context, text string, docType domain.DocumentType) (domain.Fields, error)
}

// Reasoner synthesizes assessments, explanations and letters.
type Reasoner interface {
	AssessPreClaim(ctx context.Context, docs []domain.ExtractedDocument, rules *domain.InsuranceRules) (domain.PreClaimAssessment, error)
	ExplainDenial(ctx context.Context, denial domain.Fields, supporting []domain.ExtractedDocument) (domain.DenialExplanation, error)
	DraftAppeal(ctx context.Context, input domain.AppealInput) (domain.AppealLetter, error)
}

// RuleStore looks up plan rules by normalized plan name. A missing plan is
// reported with ok=false and a nil error.
type RuleStore interface {
	Lookup(ctx context.Context, planKey string) (rules *domain.InsuranceRules, ok bool, err error)
	ListPlans(ctx context.Context) ([]string, error)
}

// SessionStore is the append-only session/result store.
type SessionStore interface {
	Save(ctx context.Context, record domain.SessionRecord) error
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
}

// LetterRenderer turns structured appeal content into a downloadable document.
type LetterRenderer interface {
	Render(ctx context.Context, letter domain.AppealLetter, recipient domain.UserDetails) ([]byte, error)
}

// SessionExporter serializes a session record into a spreadsheet.
type SessionExporter interface {
	Export(record domain.SessionRecord) ([]byte, error)
}

// PipelineObserver receives pipeline telemetry.
type PipelineObserver interface {
	SessionFinished(analysisType domain.AnalysisType, state domain.SessionState, seconds float64)
	StageFinished(stage domain.SessionState, seconds float64)
	DocumentClassified(docType domain.DocumentType, forced bool)
	FallbackApplied(kind string)
}
