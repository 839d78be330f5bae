package domain

import (
	"fmt"
	"strings"
	"time"
)

type AnalysisType string

const (
	AnalysisPreClaim          AnalysisType = "pre_claim"
	AnalysisDenialExplanation AnalysisType = "denial_explanation"
	AnalysisAppealLetter      AnalysisType = "appeal_letter"
)

func ParseAnalysisType(raw string) (AnalysisType, error) {
	switch t := AnalysisType(strings.TrimSpace(raw)); t {
	case AnalysisPreClaim, AnalysisDenialExplanation, AnalysisAppealLetter:
		return t, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse analysis type", fmt.Errorf("unsupported analysis_type %q", raw))
	}
}

type SessionState string

const (
	SessionCreated     SessionState = "created"
	SessionClassifying SessionState = "classifying"
	SessionExtracting  SessionState = "extracting"
	SessionReasoning   SessionState = "reasoning"
	SessionCompleted   SessionState = "completed"
	SessionFailed      SessionState = "failed"
)

var sessionStateOrder = map[SessionState]int{
	SessionCreated:     0,
	SessionClassifying: 1,
	SessionExtracting:  2,
	SessionReasoning:   3,
	SessionCompleted:   4,
}

func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// CanTransition reports whether a session may move from s to next. States are
// never revisited and failed is reachable from every non-terminal state.
func (s SessionState) CanTransition(next SessionState) bool {
	if s.Terminal() {
		return false
	}
	if next == SessionFailed {
		return true
	}
	from, ok := sessionStateOrder[s]
	if !ok {
		return false
	}
	to, ok := sessionStateOrder[next]
	return ok && to == from+1
}

// AnalysisSession is one end-to-end pipeline run over a fixed document set.
type AnalysisSession struct {
	ID            string       `json:"session_id"`
	AnalysisType  AnalysisType `json:"analysis_type"`
	DocumentIDs   []string     `json:"document_ids"`
	InsurancePlan string       `json:"insurance_plan,omitempty"`
	State         SessionState `json:"state"`
	CreatedAt     time.Time    `json:"created_at"`
}

type PreClaimAssessment struct {
	DenialRiskScore     int      `json:"denial_risk_score"`
	RiskLevel           string   `json:"risk_level"`
	MissingRequirements []string `json:"missing_requirements"`
	Recommendations     []string `json:"recommendations,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	HeuristicScore      bool     `json:"heuristic_score,omitempty"`
}

type DenialExplanation struct {
	Explanation       string   `json:"explanation"`
	DenialReason      string   `json:"denial_reason"`
	DenialCode        string   `json:"denial_code"`
	AppealDeadline    string   `json:"appeal_deadline,omitempty"`
	ProcedureCodes    []string `json:"procedure_codes,omitempty"`
	RootCauses        []string `json:"root_causes,omitempty"`
	SupportingFacts   []string `json:"supporting_facts,omitempty"`
	NextSteps         []string `json:"next_steps,omitempty"`
	AppealRecommended bool     `json:"appeal_recommended"`
}

// ReasoningResult is the immutable output of the reasoning stage of a session.
type ReasoningResult struct {
	SessionID           string              `json:"session_id"`
	AnalysisType        AnalysisType        `json:"analysis_type"`
	PreClaim            *PreClaimAssessment `json:"pre_claim,omitempty"`
	Explanation         *DenialExplanation  `json:"explanation,omitempty"`
	Letter              *AppealLetter       `json:"letter,omitempty"`
	DenialRiskScore     int                 `json:"denial_risk_score"`
	MissingRequirements []string            `json:"missing_requirements"`
	Degradations        []string            `json:"degradations,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

type AnalyzeRequest struct {
	DocumentIDs   []string     `json:"document_ids"`
	AnalysisType  AnalysisType `json:"analysis_type"`
	InsurancePlan string       `json:"insurance_plan,omitempty"`
	UserDetails   *UserDetails `json:"user_details,omitempty"`
}

type AppealRequest struct {
	DocumentIDs   []string     `json:"document_ids"`
	InsurancePlan string       `json:"insurance_plan,omitempty"`
	UserDetails   *UserDetails `json:"user_details,omitempty"`
}

type AnalysisResult struct {
	SessionID           string              `json:"session_id"`
	AnalysisType        AnalysisType        `json:"analysis_type"`
	Documents           []ExtractedDocument `json:"extracted_documents"`
	Reasoning           ReasoningResult     `json:"reasoning_result"`
	DenialRiskScore     int                 `json:"denial_risk_score"`
	MissingRequirements []string            `json:"missing_requirements"`
	RulesLoaded         bool                `json:"rules_loaded"`
}

type AppealDraft struct {
	SessionID    string              `json:"session_id"`
	Letter       AppealLetter        `json:"letter"`
	Documents    []ExtractedDocument `json:"extracted_documents"`
	Degradations []string            `json:"degradations,omitempty"`
}

// SessionRecord is the append-only persisted form of a completed session.
type SessionRecord struct {
	Session     AnalysisSession     `json:"session"`
	Documents   []ExtractedDocument `json:"documents"`
	Result      ReasoningResult     `json:"result"`
	UserDetails *UserDetails        `json:"user_details,omitempty"`
}
