package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// SessionRepository is the append-only store of completed analysis sessions.
// A session, its extracted documents and its reasoning result are written in
// one transaction and never updated.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, r.db, 2026101602, `
CREATE TABLE IF NOT EXISTS analysis_sessions (
	session_id TEXT PRIMARY KEY,
	analysis_type TEXT NOT NULL,
	insurance_plan TEXT NOT NULL DEFAULT '',
	document_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	state TEXT NOT NULL,
	user_details JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS extracted_data (
	session_id TEXT NOT NULL REFERENCES analysis_sessions(session_id),
	position INTEGER NOT NULL,
	document_id TEXT NOT NULL,
	payload JSONB NOT NULL,
	PRIMARY KEY (session_id, position)
);

CREATE TABLE IF NOT EXISTS reasoning_results (
	session_id TEXT PRIMARY KEY REFERENCES analysis_sessions(session_id),
	analysis_type TEXT NOT NULL,
	denial_risk_score INTEGER NOT NULL DEFAULT 0,
	missing_requirements JSONB NOT NULL DEFAULT '[]'::jsonb,
	output JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_sessions_created_at ON analysis_sessions(created_at DESC);
`)
}

func (r *SessionRepository) Save(ctx context.Context, record domain.SessionRecord) error {
	docIDs, err := json.Marshal(record.Session.DocumentIDs)
	if err != nil {
		return fmt.Errorf("marshal document ids: %w", err)
	}
	userDetails, err := marshalNullable(record.UserDetails)
	if err != nil {
		return fmt.Errorf("marshal user details: %w", err)
	}
	missing, err := json.Marshal(record.Result.MissingRequirements)
	if err != nil {
		return fmt.Errorf("marshal missing requirements: %w", err)
	}
	output, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal reasoning result: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO analysis_sessions (session_id, analysis_type, insurance_plan, document_ids, state, user_details, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.Session.ID, string(record.Session.AnalysisType), record.Session.InsurancePlan,
		docIDs, string(record.Session.State), userDetails, record.Session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis session: %w", err)
	}

	for i, doc := range record.Documents {
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal extracted document %s: %w", doc.DocumentID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO extracted_data (session_id, position, document_id, payload)
VALUES ($1,$2,$3,$4)
`, record.Session.ID, i, doc.DocumentID, payload); err != nil {
			return fmt.Errorf("insert extracted data: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO reasoning_results (session_id, analysis_type, denial_risk_score, missing_requirements, output, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		record.Session.ID, string(record.Result.AnalysisType), record.Result.DenialRiskScore,
		missing, output, record.Result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reasoning result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var record domain.SessionRecord
	var analysisType, state string
	var docIDs, userDetails []byte

	err := r.db.QueryRowContext(ctx, `
SELECT session_id, analysis_type, insurance_plan, document_ids, state, user_details, created_at
FROM analysis_sessions
WHERE session_id = $1
`, sessionID).Scan(
		&record.Session.ID, &analysisType, &record.Session.InsurancePlan,
		&docIDs, &state, &userDetails, &record.Session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", sessionID))
		}
		return nil, fmt.Errorf("scan analysis session: %w", err)
	}
	record.Session.AnalysisType = domain.AnalysisType(analysisType)
	record.Session.State = domain.SessionState(state)
	if err := json.Unmarshal(docIDs, &record.Session.DocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshal document ids: %w", err)
	}
	if len(userDetails) > 0 && string(userDetails) != "null" {
		record.UserDetails = &domain.UserDetails{}
		if err := json.Unmarshal(userDetails, record.UserDetails); err != nil {
			return nil, fmt.Errorf("unmarshal user details: %w", err)
		}
	}

	docs, err := r.listExtracted(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	record.Documents = docs

	var output []byte
	err = r.db.QueryRowContext(ctx, `
SELECT output
FROM reasoning_results
WHERE session_id = $1
`, sessionID).Scan(&output)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get reasoning result", fmt.Errorf("id=%s", sessionID))
		}
		return nil, fmt.Errorf("scan reasoning result: %w", err)
	}
	if err := json.Unmarshal(output, &record.Result); err != nil {
		return nil, fmt.Errorf("unmarshal reasoning result: %w", err)
	}
	return &record, nil
}

func (r *SessionRepository) listExtracted(ctx context.Context, sessionID string) ([]domain.ExtractedDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT payload
FROM extracted_data
WHERE session_id = $1
ORDER BY position
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list extracted data: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractedDocument, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan extracted data: %w", err)
		}
		var doc domain.ExtractedDocument
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extracted data: %w", err)
	}
	return out, nil
}

// marshalNullable keeps an absent value as SQL NULL rather than JSON null.
func marshalNullable(v *domain.UserDetails) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
