package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

type memoryDocRepo struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	listErr error
}

func newMemoryDocRepo(docs ...domain.Document) *memoryDocRepo {
	repo := &memoryDocRepo{docs: make(map[string]domain.Document, len(docs))}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (r *memoryDocRepo) Create(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memoryDocRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

// ListByIDs deliberately returns documents in reverse request order.
func (r *memoryDocRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Document, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Document, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if doc, ok := r.docs[ids[i]]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memoryDocRepo) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (r *memoryDocRepo) SaveText(_ context.Context, id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Text = text
	r.docs[id] = doc
	return nil
}

// labelClassifier maps exact document text to a raw oracle label.
type labelClassifier struct {
	labels map[string]string
	err    error
	calls  atomic.Int32
}

func (c *labelClassifier) Classify(_ context.Context, text string) (domain.DocumentType, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	label, ok := c.labels[text]
	if !ok {
		return domain.TypeUnknown, nil
	}
	return domain.DocumentType(label), nil
}

type typedExtractor struct {
	fields map[domain.DocumentType]domain.Fields
	err    error
	calls  atomic.Int32
}

func (e *typedExtractor) Extract(_ context.Context, _ string, docType domain.DocumentType) (domain.Fields, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.fields[docType].Clone(), nil
}

type reasonerFake struct {
	preClaim    domain.PreClaimAssessment
	preClaimErr error
	explanation domain.DenialExplanation
	explainErr  error
	letter      domain.AppealLetter
	letterErr   error

	mu             sync.Mutex
	gotDenial      domain.Fields
	gotSupporting  []domain.ExtractedDocument
	gotAppealInput *domain.AppealInput
	gotRules       *domain.InsuranceRules
}

func (r *reasonerFake) AssessPreClaim(_ context.Context, _ []domain.ExtractedDocument, rules *domain.InsuranceRules) (domain.PreClaimAssessment, error) {
	r.mu.Lock()
	r.gotRules = rules
	r.mu.Unlock()
	if r.preClaimErr != nil {
		return domain.PreClaimAssessment{}, r.preClaimErr
	}
	return r.preClaim, nil
}

func (r *reasonerFake) ExplainDenial(_ context.Context, denial domain.Fields, supporting []domain.ExtractedDocument) (domain.DenialExplanation, error) {
	r.mu.Lock()
	r.gotDenial = denial.Clone()
	r.gotSupporting = supporting
	r.mu.Unlock()
	if r.explainErr != nil {
		return domain.DenialExplanation{}, r.explainErr
	}
	return r.explanation, nil
}

func (r *reasonerFake) DraftAppeal(_ context.Context, input domain.AppealInput) (domain.AppealLetter, error) {
	r.mu.Lock()
	r.gotAppealInput = &input
	r.mu.Unlock()
	if r.letterErr != nil {
		return domain.AppealLetter{}, r.letterErr
	}
	return r.letter, nil
}

type ruleStoreFake struct {
	plans map[string]*domain.InsuranceRules
	err   error
}

func (s *ruleStoreFake) Lookup(_ context.Context, key string) (*domain.InsuranceRules, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	rules, ok := s.plans[key]
	return rules, ok, nil
}

func (s *ruleStoreFake) ListPlans(context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, 0, len(s.plans))
	for key := range s.plans {
		out = append(out, key)
	}
	return out, nil
}

type memorySessionStore struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
	saveErr error
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{records: map[string]domain.SessionRecord{}}
}

func (s *memorySessionStore) Save(_ context.Context, record domain.SessionRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.Session.ID]; exists {
		return errors.New("session already stored")
	}
	s.records[record.Session.ID] = record
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (*domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &record, nil
}

type observerFake struct {
	mu         sync.Mutex
	finished   []domain.SessionState
	stages     []domain.SessionState
	classified map[domain.DocumentType]int
	fallbacks  []string
}

func (o *observerFake) SessionFinished(_ domain.AnalysisType, state domain.SessionState, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, state)
}

func (o *observerFake) StageFinished(stage domain.SessionState, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *observerFake) DocumentClassified(docType domain.DocumentType, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.classified == nil {
		o.classified = map[domain.DocumentType]int{}
	}
	o.classified[docType]++
}

func (o *observerFake) FallbackApplied(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, kind)
}

type eventsFake struct {
	published []string
	err       error
}

func (e *eventsFake) PublishAnalysisCompleted(_ context.Context, sessionID string) error {
	if e.err != nil {
		return e.err
	}
	e.published = append(e.published, sessionID)
	return nil
}
