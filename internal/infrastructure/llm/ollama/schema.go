package ollama

import "github.com/santhosh-tekuri/jsonschema/v5"

var (
	classificationSchema = jsonschema.MustCompileString("classification.json", `{
		"type": "object",
		"required": ["document_type"],
		"properties": {
			"document_type": {"type": "string"}
		}
	}`)

	extractionSchema = jsonschema.MustCompileString("extraction.json", `{
		"type": "object"
	}`)

	preClaimSchema = jsonschema.MustCompileString("pre_claim.json", `{
		"type": "object",
		"required": ["denial_risk_score"],
		"properties": {
			"denial_risk_score": {"type": "number"},
			"missing_requirements": {"type": "array", "items": {"type": "string"}},
			"recommendations": {"type": "array", "items": {"type": "string"}},
			"summary": {"type": "string"}
		}
	}`)

	explanationSchema = jsonschema.MustCompileString("explanation.json", `{
		"type": "object",
		"required": ["explanation"],
		"properties": {
			"explanation": {"type": "string", "minLength": 1},
			"root_causes": {"type": "array", "items": {"type": "string"}},
			"supporting_facts": {"type": "array", "items": {"type": "string"}},
			"next_steps": {"type": "array", "items": {"type": "string"}},
			"procedure_codes": {"type": "array", "items": {"type": "string"}},
			"appeal_recommended": {"type": "boolean"}
		}
	}`)

	appealSchema = jsonschema.MustCompileString("appeal.json", `{
		"type": "object",
		"required": ["body_sections"],
		"properties": {
			"subject": {"type": "string"},
			"salutation": {"type": "string"},
			"body_sections": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["body"],
					"properties": {
						"heading": {"type": "string"},
						"body": {"type": "string"}
					}
				}
			},
			"closing": {"type": "string"},
			"citations": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)
