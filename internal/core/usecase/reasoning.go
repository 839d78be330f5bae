package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

// ReasoningEngine wraps the reasoning oracle with the deterministic policies of
// each analysis mode: score clamping, heuristic degradation, the denial-letter
// precondition and the synthetic denial fallback.
type ReasoningEngine struct {
	reasoner ports.Reasoner
	logger   *slog.Logger
}

func NewReasoningEngine(reasoner ports.Reasoner, logger *slog.Logger) *ReasoningEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReasoningEngine{reasoner: reasoner, logger: logger}
}

// PreClaim always returns an assessment. Without rules the score comes from
// HeuristicRisk and an oracle failure only costs the narrative.
func (e *ReasoningEngine) PreClaim(
	ctx context.Context,
	docs []domain.ExtractedDocument,
	rules *domain.InsuranceRules,
) (domain.PreClaimAssessment, []string, error) {
	var degradations []string
	heuristicScore, ruleMissing := HeuristicRisk(docs, rules)

	assessment, err := e.reasoner.AssessPreClaim(ctx, docs, rules)
	if err != nil {
		if rules != nil || ctx.Err() != nil {
			return domain.PreClaimAssessment{}, nil, fmt.Errorf("assess pre-claim: %w", err)
		}
		e.logger.Warn("pre_claim_oracle_degraded", "error", err)
		degradations = append(degradations, "reasoning oracle unavailable; heuristic assessment only")
		assessment = domain.PreClaimAssessment{}
	}

	if rules == nil {
		assessment.DenialRiskScore = heuristicScore
		assessment.HeuristicScore = true
		degradations = append(degradations, "no insurance rules loaded; risk score is heuristic")
	}
	assessment.DenialRiskScore = ClampRiskScore(assessment.DenialRiskScore)
	assessment.RiskLevel = RiskLevel(assessment.DenialRiskScore)
	assessment.MissingRequirements = dedupe(append(ruleMissing, assessment.MissingRequirements...))
	if strings.TrimSpace(assessment.Summary) == "" {
		assessment.Summary = fmt.Sprintf(
			"Estimated denial risk %d/100 (%s) with %d missing requirement(s).",
			assessment.DenialRiskScore, assessment.RiskLevel, len(assessment.MissingRequirements),
		)
	}
	return assessment, degradations, nil
}

// ExplainDenial requires exactly one denial letter among docs.
func (e *ReasoningEngine) ExplainDenial(ctx context.Context, docs []domain.ExtractedDocument) (domain.DenialExplanation, error) {
	letters := domain.FindDocuments(docs, domain.TypeDenialLetter)
	switch {
	case len(letters) == 0:
		return domain.DenialExplanation{}, domain.WrapError(domain.ErrInvalidInput, "explain denial", domain.ErrNoDenialLetter)
	case len(letters) > 1:
		return domain.DenialExplanation{}, domain.WrapError(
			domain.ErrInvalidInput,
			"explain denial",
			fmt.Errorf("expected exactly one denial letter, found %d", len(letters)),
		)
	}

	denial := letters[0].Fields.Clone()
	supporting := make([]domain.ExtractedDocument, 0, len(docs)-1)
	for _, doc := range docs {
		if doc.Type != domain.TypeDenialLetter {
			supporting = append(supporting, doc)
		}
	}

	explanation, err := e.reasoner.ExplainDenial(ctx, denial, supporting)
	if err != nil {
		return domain.DenialExplanation{}, fmt.Errorf("explain denial: %w", err)
	}

	explanation.DenialReason = denial.String("denial_reason")
	explanation.DenialCode = denial.String("denial_code")
	explanation.AppealDeadline = denial.String("appeal_deadline")
	explanation.ProcedureCodes = dedupe(append(explanation.ProcedureCodes, ProcedureCodes(docs)...))
	explanation.Explanation = completeExplanation(explanation)
	return explanation, nil
}

func completeExplanation(exp domain.DenialExplanation) string {
	text := strings.TrimSpace(exp.Explanation)
	if text == "" {
		text = fmt.Sprintf("The claim was denied with code %s: %s", exp.DenialCode, exp.DenialReason)
	}
	var unmentioned []string
	for _, code := range exp.ProcedureCodes {
		if !strings.Contains(text, code) {
			unmentioned = append(unmentioned, "CPT "+code)
		}
	}
	if len(unmentioned) > 0 {
		text += " Procedures under review: " + strings.Join(unmentioned, ", ") + "."
	}
	return text
}

// DraftAppeal never fails because the denial letter is missing: a synthetic
// denial record is used instead and reported in the degradations.
func (e *ReasoningEngine) DraftAppeal(
	ctx context.Context,
	docs []domain.ExtractedDocument,
	rules *domain.InsuranceRules,
	user domain.UserDetails,
) (domain.AppealLetter, []string, error) {
	var degradations []string

	denial, found := domain.FirstFields(docs, domain.TypeDenialLetter)
	if !found {
		denial = SyntheticDenial()
		degradations = append(degradations, "no denial letter found; synthetic denial record used")
	}
	doctorNote, _ := domain.FirstFields(docs, domain.TypeDoctorNote)
	bill, _ := domain.FirstFields(docs, domain.TypeMedicalBill)

	letter, err := e.reasoner.DraftAppeal(ctx, domain.AppealInput{
		Denial:      denial,
		DoctorNote:  doctorNote,
		Bill:        bill,
		Rules:       rules,
		UserDetails: user,
	})
	if err != nil {
		return domain.AppealLetter{}, nil, fmt.Errorf("draft appeal: %w", err)
	}

	letter.DenialReason = denial.String("denial_reason")
	letter.DenialCode = denial.String("denial_code")
	letter.SynthesizedDenial = !found
	completeLetter(&letter, denial, doctorNote, bill, user)
	return letter, degradations, nil
}

func completeLetter(letter *domain.AppealLetter, denial, doctorNote, bill domain.Fields, user domain.UserDetails) {
	if strings.TrimSpace(letter.Salutation) == "" {
		letter.Salutation = "To Whom It May Concern:"
	}
	if len(letter.BodySections) == 0 {
		letter.BodySections = defaultSections(denial, doctorNote, bill)
	}
	if strings.TrimSpace(letter.Closing) == "" {
		name := firstNonEmpty(user.Name, doctorNote.String("patient_name"), bill.String("patient_name"), "The Patient")
		letter.Closing = "Sincerely,\n" + name
	}
	if letter.Citations == nil {
		letter.Citations = []string{}
	}
}

func defaultSections(denial, doctorNote, bill domain.Fields) []domain.LetterSection {
	procedure := procedureLabel(bill.String("cpt_code"), bill.String("procedure"))
	if procedure == "" {
		procedure = "the requested procedure"
	}
	sections := []domain.LetterSection{{
		Heading: "Request for Reconsideration",
		Body: fmt.Sprintf(
			"I am writing to appeal the denial of coverage for %s (denial code %s). The stated reason was: %s",
			procedure, denial.String("denial_code"), denial.String("denial_reason"),
		),
	}}
	if justification := firstNonEmpty(doctorNote.String("medical_necessity_justification"), doctorNote.String("assessment")); justification != "" {
		sections = append(sections, domain.LetterSection{
			Heading: "Medical Necessity",
			Body:    fmt.Sprintf("My treating physician %s documented the following: %s", doctorNote.String("physician"), justification),
		})
	}
	sections = append(sections, domain.LetterSection{
		Heading: "Requested Action",
		Body:    "I respectfully request that the denial be overturned and the claim be reprocessed for payment.",
	})
	return sections
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// isInputError reports errors that must not be retried or reported as pipeline outages.
func isInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNoDenialLetter)
}
