package httpadapter

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/config"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/observability/metrics"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "a.txt", MimeType: "text/plain", StoragePath: "a.txt", Status: domain.StatusReady}, nil
}

type analysisFake struct {
	err         error
	lastAnalyze domain.AnalyzeRequest
	lastExplain []string
	lastAppeal  domain.AppealRequest
}

func (f *analysisFake) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	f.lastAnalyze = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisResult{
		SessionID:           "sess-1",
		AnalysisType:        req.AnalysisType,
		DenialRiskScore:     42,
		MissingRequirements: []string{},
		RulesLoaded:         req.InsurancePlan != "",
	}, nil
}

func (f *analysisFake) ExplainDenial(_ context.Context, ids []string) (*domain.ReasoningResult, error) {
	f.lastExplain = ids
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ReasoningResult{
		SessionID:    "sess-2",
		AnalysisType: domain.AnalysisDenialExplanation,
		Explanation:  &domain.DenialExplanation{DenialCode: "CO-197"},
	}, nil
}

func (f *analysisFake) DraftAppeal(_ context.Context, req domain.AppealRequest) (*domain.AppealDraft, error) {
	f.lastAppeal = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AppealDraft{
		SessionID: "sess-3",
		Letter:    domain.AppealLetter{DenialCode: "Unknown", SynthesizedDenial: true},
	}, nil
}

type sessionsFake struct {
	err       error
	renderErr error
}

func (f sessionsFake) GetSession(_ context.Context, id string) (*domain.SessionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SessionRecord{Session: domain.AnalysisSession{ID: id, State: domain.SessionCompleted}}, nil
}

func (f sessionsFake) RenderAppeal(_ context.Context, id string) (*domain.RenderedLetter, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return &domain.RenderedLetter{SessionID: id, Filename: "appeal_" + id + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}, nil
}

func (f sessionsFake) ExportSession(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK"), nil
}

type plansFake struct{}

func (plansFake) ListPlans(context.Context) ([]string, error) {
	return []string{"bluecross_ppo", "silver"}, nil
}

type routerDeps struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
}

func defaultRouterDeps() routerDeps {
	return routerDeps{
		cfg: config.Config{OllamaExtractModel: "extract-m", OllamaReasonModel: "reason-m"},
		services: Services{
			Ingest:   ingestFake{},
			Docs:     docsFake{},
			Analysis: &analysisFake{},
			Sessions: sessionsFake{},
			Plans:    plansFake{},
		},
	}
}

func newTestHandler(t *testing.T, deps routerDeps) http.Handler {
	t.Helper()
	router, err := NewRouter(deps.cfg, deps.services, deps.metrics)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}
