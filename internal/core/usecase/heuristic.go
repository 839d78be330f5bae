package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// Risk weights for the rule-free pre-claim heuristic. Each finding adds its
// weight to riskBase; the sum is clamped to [0,100].
const (
	riskBase                 = 10
	riskNoDoctorNote         = 30
	riskNoNecessityStatement = 25
	riskNoPreAuthorization   = 30
	riskPreAuthNotApproved   = 30
	riskNoInsuranceCard      = 10
	riskPriorDenial          = 15
	riskPerMissingField      = 2
	riskMissingFieldsCap     = 10
)

var cptPattern = regexp.MustCompile(`\b\d{5}\b`)

// HeuristicRisk scores a document set without consulting the oracle. When
// rules is nil every billed procedure is assumed to need pre-authorization.
func HeuristicRisk(docs []domain.ExtractedDocument, rules *domain.InsuranceRules) (int, []string) {
	score := riskBase
	var missing []string

	notes := domain.FindDocuments(docs, domain.TypeDoctorNote)
	switch {
	case len(notes) == 0:
		score += riskNoDoctorNote
		missing = append(missing, "Doctor's note documenting the diagnosis and medical necessity")
	case !anyHas(notes, "medical_necessity_justification"):
		score += riskNoNecessityStatement
		missing = append(missing, "Medical necessity justification in the doctor's note")
	}

	preauths := domain.FindDocuments(docs, domain.TypePreAuthorization)
	for _, bill := range domain.FindDocuments(docs, domain.TypeMedicalBill) {
		code := bill.Fields.String("cpt_code")
		procedure := bill.Fields.String("procedure")
		if code == "" && procedure == "" {
			continue
		}
		if rules != nil && !rules.RequiresPreAuthorization(code, procedure) {
			continue
		}
		label := procedureLabel(code, procedure)
		switch {
		case len(preauths) == 0:
			score += riskNoPreAuthorization
			missing = append(missing, "Pre-authorization for "+label)
		case !anyApproved(preauths):
			score += riskPreAuthNotApproved
			missing = append(missing, fmt.Sprintf("Approved pre-authorization for %s (current status: %s)", label, preauths[0].Fields.String("status")))
		}
	}

	if len(domain.FindDocuments(docs, domain.TypeInsuranceCard)) == 0 {
		score += riskNoInsuranceCard
		missing = append(missing, "Insurance card with member ID and plan name")
	}

	if len(domain.FindDocuments(docs, domain.TypeDenialLetter)) > 0 {
		score += riskPriorDenial
	}

	gaps := 0
	for _, doc := range docs {
		gaps += len(doc.MissingFields)
	}
	score += min(gaps*riskPerMissingField, riskMissingFieldsCap)

	return ClampRiskScore(score), missing
}

func ClampRiskScore(score int) int {
	return max(0, min(100, score))
}

// RiskLevel buckets a clamped score.
func RiskLevel(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// ProcedureCodes collects CPT codes referenced by the documents, in document order.
func ProcedureCodes(docs []domain.ExtractedDocument) []string {
	var codes []string
	for _, doc := range docs {
		for _, key := range []string{"cpt_code", "procedure_code"} {
			codes = append(codes, cptPattern.FindAllString(doc.Fields.String(key), -1)...)
		}
		if doc.Type == domain.TypePreAuthorization {
			codes = append(codes, cptPattern.FindAllString(doc.Fields.String("approved_procedure"), -1)...)
		}
	}
	return dedupe(codes)
}

func procedureLabel(code, procedure string) string {
	switch {
	case code != "" && procedure != "":
		return fmt.Sprintf("%s (CPT %s)", procedure, code)
	case code != "":
		return "CPT " + code
	default:
		return procedure
	}
}

func anyHas(docs []domain.ExtractedDocument, key string) bool {
	for _, doc := range docs {
		if doc.Fields.Has(key) {
			return true
		}
	}
	return false
}

func anyApproved(preauths []domain.ExtractedDocument) bool {
	for _, doc := range preauths {
		if strings.HasPrefix(strings.ToLower(doc.Fields.String("status")), "approved") {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
