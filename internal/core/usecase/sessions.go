package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

const pdfContentType = "application/pdf"

type SessionUseCase struct {
	sessions ports.SessionStore
	renderer ports.LetterRenderer
	exporter ports.SessionExporter
}

func NewSessionUseCase(sessions ports.SessionStore, renderer ports.LetterRenderer, exporter ports.SessionExporter) *SessionUseCase {
	return &SessionUseCase{
		sessions: sessions,
		renderer: renderer,
		exporter: exporter,
	}
}

func (uc *SessionUseCase) GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get session", errors.New("session id is required"))
	}
	record, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return record, nil
}

// RenderAppeal renders the letter of an appeal_letter session.
func (uc *SessionUseCase) RenderAppeal(ctx context.Context, sessionID string) (*domain.RenderedLetter, error) {
	record, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Result.Letter == nil {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"render appeal",
			fmt.Errorf("session %s is %s, not an appeal letter", record.Session.ID, record.Session.AnalysisType),
		)
	}

	var recipient domain.UserDetails
	if record.UserDetails != nil {
		recipient = *record.UserDetails
	}
	data, err := uc.renderer.Render(ctx, *record.Result.Letter, recipient)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderFailed, "render appeal", err)
	}

	return &domain.RenderedLetter{
		SessionID:   record.Session.ID,
		Filename:    "appeal_" + sanitizeFilename(record.Session.ID) + ".pdf",
		ContentType: pdfContentType,
		Data:        data,
	}, nil
}

func (uc *SessionUseCase) ExportSession(ctx context.Context, sessionID string) ([]byte, error) {
	record, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	data, err := uc.exporter.Export(*record)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderFailed, "export session", err)
	}
	return data, nil
}

type PlanCatalogUseCase struct {
	rules ports.RuleStore
}

func NewPlanCatalogUseCase(rules ports.RuleStore) *PlanCatalogUseCase {
	return &PlanCatalogUseCase{rules: rules}
}

func (uc *PlanCatalogUseCase) ListPlans(ctx context.Context) ([]string, error) {
	plans, err := uc.rules.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list insurance plans: %w", err)
	}
	if plans == nil {
		plans = []string{}
	}
	return plans, nil
}
