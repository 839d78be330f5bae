package domain

import "strings"

// InsuranceRules is a plan's coverage-rule document. Raw keeps the full
// document for prompts; the typed fields are the ones the heuristics read.
type InsuranceRules struct {
	Plan                     string         `json:"plan" yaml:"plan"`
	PreAuthorizationRequired []string       `json:"pre_authorization_required" yaml:"pre_authorization_required"`
	MedicalNecessityRequired bool           `json:"medical_necessity_required" yaml:"medical_necessity_required"`
	AppealWindowDays         int            `json:"appeal_window_days" yaml:"appeal_window_days"`
	Notes                    []string       `json:"notes,omitempty" yaml:"notes"`
	Raw                      map[string]any `json:"raw,omitempty" yaml:"-"`
}

// NormalizePlanName builds the rule lookup key: lowercase, spaces replaced by underscores.
func NormalizePlanName(plan string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(plan)), " ", "_")
}

// RequiresPreAuthorization reports whether a procedure (CPT code or name) is
// listed as needing pre-authorization. Entries match codes exactly and names by
// case-insensitive substring.
func (r *InsuranceRules) RequiresPreAuthorization(cptCode, procedure string) bool {
	if r == nil {
		return false
	}
	code := strings.TrimSpace(cptCode)
	name := strings.ToLower(procedure)
	for _, entry := range r.PreAuthorizationRequired {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if code != "" && entry == code {
			return true
		}
		if name != "" && strings.Contains(name, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}
