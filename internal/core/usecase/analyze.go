package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

const defaultMaxParallelDocuments = 4

// AnalysisUseCase orchestrates classification, extraction, rule loading and
// reasoning for one session per call.
type AnalysisUseCase struct {
	docs       ports.DocumentRepository
	classifier ports.DocumentClassifier
	extractor  ports.FieldExtractor
	rules      ports.RuleStore
	engine     *ReasoningEngine
	sessions   ports.SessionStore

	events      ports.EventPublisher
	observer    ports.PipelineObserver
	logger      *slog.Logger
	maxParallel int
	now         func() time.Time
	newID       func() string
}

type AnalysisOption func(*AnalysisUseCase)

func WithEventPublisher(events ports.EventPublisher) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.events = events }
}

func WithPipelineObserver(observer ports.PipelineObserver) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if observer != nil {
			uc.observer = observer
		}
	}
}

func WithLogger(logger *slog.Logger) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithMaxParallelDocuments(n int) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if n > 0 {
			uc.maxParallel = n
		}
	}
}

func NewAnalysisUseCase(
	docs ports.DocumentRepository,
	classifier ports.DocumentClassifier,
	extractor ports.FieldExtractor,
	rules ports.RuleStore,
	reasoner ports.Reasoner,
	sessions ports.SessionStore,
	opts ...AnalysisOption,
) *AnalysisUseCase {
	uc := &AnalysisUseCase{
		docs:        docs,
		classifier:  classifier,
		extractor:   extractor,
		rules:       rules,
		sessions:    sessions,
		observer:    noopObserver{},
		logger:      slog.Default(),
		maxParallel: defaultMaxParallelDocuments,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.engine = NewReasoningEngine(reasoner, uc.logger)
	return uc
}

func (uc *AnalysisUseCase) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	analysisType, err := domain.ParseAnalysisType(string(req.AnalysisType))
	if err != nil {
		return nil, err
	}
	ids := normalizeIDs(req.DocumentIDs)
	if len(ids) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("document_ids must not be empty"))
	}

	run := newSessionRun(domain.AnalysisSession{
		ID:            uc.newID(),
		AnalysisType:  analysisType,
		DocumentIDs:   ids,
		InsurancePlan: strings.TrimSpace(req.InsurancePlan),
		CreatedAt:     uc.now(),
	}, uc.observer, uc.logger, uc.now)

	record, rulesLoaded, err := uc.execute(ctx, run, req.UserDetails)
	if err != nil {
		return nil, run.fail(err)
	}

	record.Session.State = domain.SessionCompleted
	if err := uc.sessions.Save(ctx, *record); err != nil {
		return nil, run.fail(fmt.Errorf("save session result: %w", err))
	}
	if err := run.advance(domain.SessionCompleted); err != nil {
		return nil, err
	}
	uc.publishCompleted(ctx, record.Session.ID)

	uc.logger.Info("analysis_session_completed",
		"session_id", record.Session.ID,
		"analysis_type", analysisType,
		"documents", len(record.Documents),
		"denial_risk_score", record.Result.DenialRiskScore,
		"degradations", len(record.Result.Degradations),
	)

	return &domain.AnalysisResult{
		SessionID:           record.Session.ID,
		AnalysisType:        analysisType,
		Documents:           record.Documents,
		Reasoning:           record.Result,
		DenialRiskScore:     record.Result.DenialRiskScore,
		MissingRequirements: record.Result.MissingRequirements,
		RulesLoaded:         rulesLoaded,
	}, nil
}

func (uc *AnalysisUseCase) ExplainDenial(ctx context.Context, documentIDs []string) (*domain.ReasoningResult, error) {
	result, err := uc.Analyze(ctx, domain.AnalyzeRequest{
		DocumentIDs:  documentIDs,
		AnalysisType: domain.AnalysisDenialExplanation,
	})
	if err != nil {
		return nil, err
	}
	return &result.Reasoning, nil
}

func (uc *AnalysisUseCase) DraftAppeal(ctx context.Context, req domain.AppealRequest) (*domain.AppealDraft, error) {
	result, err := uc.Analyze(ctx, domain.AnalyzeRequest{
		DocumentIDs:   req.DocumentIDs,
		AnalysisType:  domain.AnalysisAppealLetter,
		InsurancePlan: req.InsurancePlan,
		UserDetails:   req.UserDetails,
	})
	if err != nil {
		return nil, err
	}
	if result.Reasoning.Letter == nil {
		return nil, fmt.Errorf("draft appeal: session %s produced no letter", result.SessionID)
	}
	return &domain.AppealDraft{
		SessionID:    result.SessionID,
		Letter:       *result.Reasoning.Letter,
		Documents:    result.Documents,
		Degradations: result.Reasoning.Degradations,
	}, nil
}

const (
	degradedNoRules     = "no insurance rules"
	degradedRulesFailed = "insurance rules unreadable"
)

func (uc *AnalysisUseCase) execute(ctx context.Context, run *sessionRun, user *domain.UserDetails) (*domain.SessionRecord, bool, error) {
	docs, err := uc.loadDocuments(ctx, run.session.DocumentIDs)
	if err != nil {
		return nil, false, err
	}

	if err := run.advance(domain.SessionClassifying); err != nil {
		return nil, false, err
	}
	labels, err := uc.classifyAll(ctx, run.session.ID, docs)
	if err != nil {
		return nil, false, err
	}

	if err := run.advance(domain.SessionExtracting); err != nil {
		return nil, false, err
	}
	extracted, err := uc.extractAll(ctx, docs, labels)
	if err != nil {
		return nil, false, err
	}
	if len(extracted) == 0 {
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("none of the documents has extractable text"))
	}

	if err := run.advance(domain.SessionReasoning); err != nil {
		return nil, false, err
	}
	var (
		rules           *domain.InsuranceRules
		ruleDegradation string
	)
	if run.session.AnalysisType != domain.AnalysisDenialExplanation {
		rules, ruleDegradation = uc.loadRules(ctx, run.session.InsurancePlan)
	}
	result, err := uc.reason(ctx, run.session, extracted, rules, user)
	if err != nil {
		return nil, false, err
	}
	if ruleDegradation != "" {
		result.Degradations = append(result.Degradations, ruleDegradation)
	}

	return &domain.SessionRecord{
		Session:     run.session,
		Documents:   extracted,
		Result:      result,
		UserDetails: user,
	}, rules != nil, nil
}

// loadDocuments resolves ids in request order, dropping unknown ones.
func (uc *AnalysisUseCase) loadDocuments(ctx context.Context, ids []string) ([]domain.Document, error) {
	found, err := uc.docs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	byID := make(map[string]domain.Document, len(found))
	for _, doc := range found {
		byID[doc.ID] = doc
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load documents", fmt.Errorf("no documents found with provided ids: %w", domain.ErrDocumentNotFound))
	}
	return docs, nil
}

type classification struct {
	docType domain.DocumentType
	forced  bool
	ok      bool
}

func (uc *AnalysisUseCase) classifyAll(ctx context.Context, sessionID string, docs []domain.Document) ([]classification, error) {
	labels := make([]classification, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workerCount(len(docs)))
	for i := range docs {
		g.Go(func() error {
			docType, forced, ok, err := classifyDocument(gctx, uc.classifier, docs[i])
			if err != nil {
				return err
			}
			labels[i] = classification{docType: docType, forced: forced, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, label := range labels {
		if !label.ok {
			uc.logger.Warn("document_skipped_empty_text", "session_id", sessionID, "document_id", docs[i].ID, "filename", docs[i].Filename)
			continue
		}
		uc.observer.DocumentClassified(label.docType, label.forced)
		uc.logger.Info("document_classified",
			"session_id", sessionID,
			"document_id", docs[i].ID,
			"doc_type", label.docType,
			"forced", label.forced,
		)
	}
	return labels, nil
}

func (uc *AnalysisUseCase) extractAll(ctx context.Context, docs []domain.Document, labels []classification) ([]domain.ExtractedDocument, error) {
	results := make([]*domain.ExtractedDocument, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workerCount(len(docs)))
	for i := range docs {
		if !labels[i].ok {
			continue
		}
		g.Go(func() error {
			extracted, err := extractDocument(gctx, uc.extractor, docs[i], labels[i].docType, labels[i].forced)
			if err != nil {
				return err
			}
			results[i] = &extracted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ExtractedDocument, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Synthesized {
			uc.observer.FallbackApplied("denial_fields")
		}
		out = append(out, *res)
	}
	return out, nil
}

func (uc *AnalysisUseCase) reason(
	ctx context.Context,
	session domain.AnalysisSession,
	docs []domain.ExtractedDocument,
	rules *domain.InsuranceRules,
	user *domain.UserDetails,
) (domain.ReasoningResult, error) {
	result := domain.ReasoningResult{
		SessionID:           session.ID,
		AnalysisType:        session.AnalysisType,
		MissingRequirements: []string{},
		Degradations:        extractionDegradations(docs),
	}

	switch session.AnalysisType {
	case domain.AnalysisPreClaim:
		assessment, degraded, err := uc.engine.PreClaim(ctx, docs, rules)
		if err != nil {
			return domain.ReasoningResult{}, err
		}
		result.PreClaim = &assessment
		result.DenialRiskScore = assessment.DenialRiskScore
		result.MissingRequirements = assessment.MissingRequirements
		result.Degradations = append(result.Degradations, degraded...)
	case domain.AnalysisDenialExplanation:
		explanation, err := uc.engine.ExplainDenial(ctx, docs)
		if err != nil {
			return domain.ReasoningResult{}, err
		}
		result.Explanation = &explanation
	case domain.AnalysisAppealLetter:
		var details domain.UserDetails
		if user != nil {
			details = *user
		}
		letter, degraded, err := uc.engine.DraftAppeal(ctx, docs, rules, details)
		if err != nil {
			return domain.ReasoningResult{}, err
		}
		if letter.SynthesizedDenial {
			uc.observer.FallbackApplied("synthetic_denial")
		}
		result.Letter = &letter
		result.Degradations = append(result.Degradations, degraded...)
	}

	result.CreatedAt = uc.now()
	return result, nil
}

// loadRules returns nil rules plus a degradation note when the plan is unset,
// unknown, or its rule document cannot be read.
func (uc *AnalysisUseCase) loadRules(ctx context.Context, plan string) (*domain.InsuranceRules, string) {
	if plan == "" {
		return nil, degradedNoRules + ": no insurance plan selected"
	}
	key := domain.NormalizePlanName(plan)
	rules, ok, err := uc.rules.Lookup(ctx, key)
	if err != nil {
		uc.logger.Warn("insurance_rules_unreadable", "plan", plan, "key", key, "error", err)
		return nil, degradedRulesFailed + ": " + plan
	}
	if !ok {
		uc.logger.Info("insurance_rules_not_found", "plan", plan, "key", key)
		return nil, degradedNoRules + ": no rule document for plan " + plan
	}
	uc.logger.Info("insurance_rules_loaded", "plan", plan, "key", key)
	return rules, ""
}

func (uc *AnalysisUseCase) publishCompleted(ctx context.Context, sessionID string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAnalysisCompleted(ctx, sessionID); err != nil {
		uc.logger.Warn("analysis_event_publish_failed", "session_id", sessionID, "error", err)
	}
}

func (uc *AnalysisUseCase) workerCount(n int) int {
	return max(1, min(n, uc.maxParallel, runtime.NumCPU()*2))
}

func extractionDegradations(docs []domain.ExtractedDocument) []string {
	var out []string
	for _, doc := range docs {
		if doc.Synthesized {
			out = append(out, fmt.Sprintf("document %s: denial_reason, denial_code and appeal_deadline synthesized", doc.DocumentID))
		}
		if len(doc.MissingFields) > 0 {
			out = append(out, fmt.Sprintf("document %s (%s): missing %s", doc.DocumentID, doc.Type, strings.Join(doc.MissingFields, ", ")))
		}
	}
	return out
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
