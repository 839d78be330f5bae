package domain

import (
	"fmt"
	"strings"
)

// Fields is the extracted field mapping of one document. Its schema depends on
// the DocumentType.
type Fields map[string]any

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String renders the value under key as trimmed text. Missing and null values are "".
func (f Fields) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%g", typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// Has reports whether key is present with a non-blank value.
func (f Fields) Has(key string) bool {
	return f.String(key) != ""
}

var requiredFields = map[DocumentType][]string{
	TypeMedicalBill:      {"patient_name", "provider", "date_of_service", "cpt_code", "amount_charged"},
	TypeDoctorNote:       {"patient_name", "diagnosis", "medical_necessity_justification", "physician"},
	TypeInsuranceCard:    {"member_name", "member_id", "plan_name", "coverage_percentages"},
	TypePreAuthorization: {"patient_name", "authorization_number", "approved_procedure", "status", "valid_through"},
	TypeDenialLetter:     {"patient_name", "denial_reason", "denial_code", "appeal_deadline"},
}

// fieldAliases lists accepted alternative keys for a required field.
var fieldAliases = map[string][]string{
	"diagnosis": {"assessment"},
}

// RequiredFields returns the keys downstream reasoning depends on for docType.
func RequiredFields(docType DocumentType) []string {
	keys := requiredFields[docType]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// MissingRequired lists required keys of docType that are absent or blank in f.
func MissingRequired(docType DocumentType, f Fields) []string {
	var missing []string
	for _, key := range requiredFields[docType] {
		if f.Has(key) {
			continue
		}
		found := false
		for _, alias := range fieldAliases[key] {
			if f.Has(alias) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, key)
		}
	}
	return missing
}
