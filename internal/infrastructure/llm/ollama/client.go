package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/resilience"
)

// Client talks to the Ollama generate API. Classification and field extraction
// use the small extractor model, reasoning uses the large one. Every call is
// deterministic (temperature 0) and goes through the resilience executor.
type Client struct {
	baseURL      string
	extractModel string
	reasonModel  string
	httpClient   *http.Client
	executor     *resilience.Executor
}

func New(baseURL, extractModel, reasonModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		extractModel: extractModel,
		reasonModel:  reasonModel,
		httpClient:   &http.Client{Timeout: 180 * time.Second},
		executor:     executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// generateJSON asks model for a JSON object, validates it against schema and
// decodes it into out.
func (c *Client) generateJSON(ctx context.Context, operation, model, prompt string, schema *jsonschema.Schema, out any) error {
	raw, err := c.generate(ctx, operation, model, prompt)
	if err != nil {
		return err
	}
	if err := decodeValidated(raw, schema, out); err != nil {
		return domain.WrapError(domain.ErrOracle, "ollama "+operation, err)
	}
	return nil
}

func (c *Client) generate(ctx context.Context, operation, model, prompt string) (string, error) {
	req := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": 0},
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.executor.Execute(ctx, "ollama."+operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", req, &response, operation)
	}, classifyOllamaError)
	if err != nil {
		return "", wrapOracleError("ollama "+operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func decodeValidated(raw string, schema *jsonschema.Schema, out any) error {
	body := extractJSONObject(raw)

	var generic any
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	if schema != nil {
		if err := schema.Validate(generic); err != nil {
			return fmt.Errorf("model output does not match schema: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify returns the raw label the model chose; the caller maps it onto the
// closed DocumentType set. Output that is not the expected JSON object is read
// as a bare label.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.DocumentType, error) {
	raw, err := c.client.generate(ctx, "classify", c.client.extractModel, buildClassificationPrompt(text))
	if err != nil {
		return domain.TypeUnknown, err
	}

	var result struct {
		DocumentType string `json:"document_type"`
	}
	if err := decodeValidated(raw, classificationSchema, &result); err != nil {
		return domain.ParseDocumentType(strings.Trim(raw, "\" \n")), nil
	}
	return domain.ParseDocumentType(result.DocumentType), nil
}

type FieldExtractor struct {
	client *Client
}

func NewFieldExtractor(client *Client) *FieldExtractor {
	return &FieldExtractor{client: client}
}

func (e *FieldExtractor) Extract(ctx context.Context, text string, docType domain.DocumentType) (domain.Fields, error) {
	var fields domain.Fields
	if err := e.client.generateJSON(ctx, "extract", e.client.extractModel, buildExtractionPrompt(text, docType), extractionSchema, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = domain.Fields{}
	}
	return fields, nil
}

type Reasoner struct {
	client *Client
}

func NewReasoner(client *Client) *Reasoner {
	return &Reasoner{client: client}
}

func (r *Reasoner) AssessPreClaim(ctx context.Context, docs []domain.ExtractedDocument, rules *domain.InsuranceRules) (domain.PreClaimAssessment, error) {
	prompt, err := buildPreClaimPrompt(docs, rules)
	if err != nil {
		return domain.PreClaimAssessment{}, err
	}
	var out struct {
		DenialRiskScore     float64  `json:"denial_risk_score"`
		MissingRequirements []string `json:"missing_requirements"`
		Recommendations     []string `json:"recommendations"`
		Summary             string   `json:"summary"`
	}
	if err := r.client.generateJSON(ctx, "pre_claim", r.client.reasonModel, prompt, preClaimSchema, &out); err != nil {
		return domain.PreClaimAssessment{}, err
	}
	return domain.PreClaimAssessment{
		DenialRiskScore:     int(out.DenialRiskScore + 0.5),
		MissingRequirements: out.MissingRequirements,
		Recommendations:     out.Recommendations,
		Summary:             out.Summary,
	}, nil
}

func (r *Reasoner) ExplainDenial(ctx context.Context, denial domain.Fields, supporting []domain.ExtractedDocument) (domain.DenialExplanation, error) {
	prompt, err := buildExplanationPrompt(denial, supporting)
	if err != nil {
		return domain.DenialExplanation{}, err
	}
	var out domain.DenialExplanation
	if err := r.client.generateJSON(ctx, "explain_denial", r.client.reasonModel, prompt, explanationSchema, &out); err != nil {
		return domain.DenialExplanation{}, err
	}
	return out, nil
}

func (r *Reasoner) DraftAppeal(ctx context.Context, input domain.AppealInput) (domain.AppealLetter, error) {
	prompt, err := buildAppealPrompt(input)
	if err != nil {
		return domain.AppealLetter{}, err
	}
	var out struct {
		Subject      string                 `json:"subject"`
		Salutation   string                 `json:"salutation"`
		BodySections []domain.LetterSection `json:"body_sections"`
		Closing      string                 `json:"closing"`
		Citations    []string               `json:"citations"`
	}
	if err := r.client.generateJSON(ctx, "draft_appeal", r.client.reasonModel, prompt, appealSchema, &out); err != nil {
		return domain.AppealLetter{}, err
	}
	return domain.AppealLetter{
		Subject:      out.Subject,
		Salutation:   out.Salutation,
		BodySections: out.BodySections,
		Closing:      out.Closing,
		Citations:    out.Citations,
	}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
