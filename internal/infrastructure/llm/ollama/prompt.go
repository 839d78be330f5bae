package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/chunking"
)

const maxDocumentSnippet = 6000

func snippet(text string) string {
	return chunking.Excerpt(text, maxDocumentSnippet)
}

func buildClassificationPrompt(text string) string {
	labels := make([]string, 0, len(domain.DocumentTypes))
	for _, t := range domain.DocumentTypes {
		labels = append(labels, string(t))
	}

	return `You classify medical insurance documents.
Return strict JSON object {"document_type": "<label>"} where label is one of:
` + strings.Join(labels, ", ") + `.
No markdown, no extra keys.

Document:
` + snippet(text)
}

func buildExtractionPrompt(text string, docType domain.DocumentType) string {
	keys := domain.RequiredFields(docType)
	if len(keys) == 0 {
		keys = []string{"patient_name", "date", "summary"}
	}

	return fmt.Sprintf(`You extract structured data from a %s.
Return strict JSON object with keys: %s.
Add other clearly labelled facts as extra keys in snake_case.
Use null for values that are not present in the document. Do not invent values.
Copy codes (CPT, ICD-10, denial codes) exactly as written.

Document:
%s`, strings.ReplaceAll(string(docType), "_", " "), strings.Join(keys, ", "), snippet(text))
}

func buildPreClaimPrompt(docs []domain.ExtractedDocument, rules *domain.InsuranceRules) (string, error) {
	docsJSON, err := marshalForPrompt(promptDocuments(docs))
	if err != nil {
		return "", err
	}
	rulesJSON := "none loaded"
	if rules != nil {
		if rulesJSON, err = marshalForPrompt(rulesForPrompt(rules)); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf(`You review a planned medical claim before it is submitted to the insurer.
Estimate how likely the claim is to be denied and list what is missing.
Return strict JSON object with keys:
denial_risk_score (number 0-100), missing_requirements (array of strings),
recommendations (array of strings), summary (string).

Insurance rules:
%s

Documents:
%s
`, rulesJSON, docsJSON), nil
}

func buildExplanationPrompt(denial domain.Fields, supporting []domain.ExtractedDocument) (string, error) {
	denialJSON, err := marshalForPrompt(denial)
	if err != nil {
		return "", err
	}
	supportJSON, err := marshalForPrompt(promptDocuments(supporting))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You explain an insurance claim denial to the patient in plain language.
Reference the procedure codes (CPT) from the supporting documents.
Return strict JSON object with keys:
explanation (string), root_causes (array of strings), supporting_facts (array of strings),
next_steps (array of strings), procedure_codes (array of strings), appeal_recommended (boolean).

Denial letter:
%s

Supporting documents:
%s
`, denialJSON, supportJSON), nil
}

func buildAppealPrompt(input domain.AppealInput) (string, error) {
	payload := map[string]any{
		"denial":       input.Denial,
		"doctor_note":  input.DoctorNote,
		"medical_bill": input.Bill,
		"patient":      input.UserDetails,
	}
	if input.Rules != nil {
		payload["insurance_rules"] = rulesForPrompt(input.Rules)
	}
	body, err := marshalForPrompt(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You write a formal appeal letter for a denied medical insurance claim on behalf of the patient.
Argue medical necessity from the doctor's note, cite the denial code and the billed procedure,
and cite plan rules when they support the appeal. Do not invent facts.
Return strict JSON object with keys:
subject (string), salutation (string), body_sections (array of {"heading": string, "body": string}),
closing (string), citations (array of strings).

Case:
%s
`, body), nil
}

type promptDocument struct {
	Type     domain.DocumentType `json:"type"`
	Filename string              `json:"filename,omitempty"`
	Fields   domain.Fields       `json:"fields"`
}

func promptDocuments(docs []domain.ExtractedDocument) []promptDocument {
	out := make([]promptDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, promptDocument{Type: doc.Type, Filename: doc.Filename, Fields: doc.Fields})
	}
	return out
}

func rulesForPrompt(rules *domain.InsuranceRules) any {
	if len(rules.Raw) > 0 {
		return rules.Raw
	}
	return rules
}

func marshalForPrompt(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt context: %w", err)
	}
	return string(raw), nil
}
