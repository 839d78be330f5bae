package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

// sessionRun tracks one session through the pipeline states. It is owned by a
// single request goroutine.
type sessionRun struct {
	session    domain.AnalysisSession
	startedAt  time.Time
	stageStart time.Time
	observer   ports.PipelineObserver
	logger     *slog.Logger
	now        func() time.Time
}

func newSessionRun(session domain.AnalysisSession, observer ports.PipelineObserver, logger *slog.Logger, now func() time.Time) *sessionRun {
	session.State = domain.SessionCreated
	started := now()
	logger.Info("analysis_session_created",
		"session_id", session.ID,
		"analysis_type", session.AnalysisType,
		"documents", len(session.DocumentIDs),
	)
	return &sessionRun{
		session:    session,
		startedAt:  started,
		stageStart: started,
		observer:   observer,
		logger:     logger,
		now:        now,
	}
}

func (r *sessionRun) advance(next domain.SessionState) error {
	from := r.session.State
	if !from.CanTransition(next) {
		return fmt.Errorf("session %s: invalid transition %s -> %s", r.session.ID, from, next)
	}

	now := r.now()
	if from != domain.SessionCreated {
		r.observer.StageFinished(from, now.Sub(r.stageStart).Seconds())
	}
	r.stageStart = now
	r.session.State = next

	if next.Terminal() {
		r.observer.SessionFinished(r.session.AnalysisType, next, now.Sub(r.startedAt).Seconds())
	}
	r.logger.Debug("analysis_session_state", "session_id", r.session.ID, "from", from, "to", next)
	return nil
}

// fail moves the session to failed and returns cause unchanged.
func (r *sessionRun) fail(cause error) error {
	stage := r.session.State
	if err := r.advance(domain.SessionFailed); err != nil {
		r.logger.Error("analysis_session_transition", "session_id", r.session.ID, "error", err)
	}
	level := slog.LevelError
	if isInputError(cause) {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "analysis_session_failed",
		"session_id", r.session.ID,
		"stage", stage,
		"error", cause,
	)
	return cause
}

type noopObserver struct{}

func (noopObserver) SessionFinished(domain.AnalysisType, domain.SessionState, float64) {}
func (noopObserver) StageFinished(domain.SessionState, float64)                        {}
func (noopObserver) DocumentClassified(domain.DocumentType, bool)                      {}
func (noopObserver) FallbackApplied(string)                                            {}
