package mcpadapter

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

const (
	ToolAnalyzeDocuments = "analyze_documents"
	ToolExplainDenial    = "explain_denial"
	ToolDraftAppeal      = "draft_appeal"
)

// Tools exposes the analysis pipeline as MCP tools. Pipeline failures are
// returned as tool errors so the calling agent can read them.
type Tools struct {
	analysis ports.AnalysisService
	logger   *slog.Logger
}

func NewTools(analysis ports.AnalysisService, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{analysis: analysis, logger: logger}
}

// NewServer builds an MCP server with every analysis tool registered.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	srv := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	srv.AddTool(analyzeDocumentsTool(), tools.AnalyzeDocuments)
	srv.AddTool(explainDenialTool(), tools.ExplainDenial)
	srv.AddTool(draftAppealTool(), tools.DraftAppeal)
	return srv
}

func documentIDsOption() mcp.ToolOption {
	return mcp.WithArray("document_ids",
		mcp.Required(),
		mcp.MinItems(1),
		mcp.WithStringItems(),
		mcp.Description("IDs of uploaded documents whose text extraction has finished"),
	)
}

func userDetailsOption() mcp.ToolOption {
	return mcp.WithObject("user_details",
		mcp.Description("Patient contact data: name, address, phone, email, member_id, insurer_name, insurer_address"),
	)
}

func analyzeDocumentsTool() mcp.Tool {
	return mcp.NewTool(ToolAnalyzeDocuments,
		mcp.WithDescription("Classify and extract the given insurance documents and run one analysis: pre-claim denial risk, denial explanation or appeal letter."),
		documentIDsOption(),
		mcp.WithString("analysis_type",
			mcp.Required(),
			mcp.Enum(string(domain.AnalysisPreClaim), string(domain.AnalysisDenialExplanation), string(domain.AnalysisAppealLetter)),
		),
		mcp.WithString("insurance_plan", mcp.Description("Plan name used to load coverage rules")),
		userDetailsOption(),
	)
}

func explainDenialTool() mcp.Tool {
	return mcp.NewTool(ToolExplainDenial,
		mcp.WithDescription("Explain why a claim was denied. The document set must contain exactly one denial letter."),
		documentIDsOption(),
	)
}

func draftAppealTool() mcp.Tool {
	return mcp.NewTool(ToolDraftAppeal,
		mcp.WithDescription("Draft an appeal letter from a denial letter, doctor's note and bill. Works without a denial letter."),
		documentIDsOption(),
		mcp.WithString("insurance_plan", mcp.Description("Plan name used to load coverage rules")),
		userDetailsOption(),
	)
}

type analyzeArgs struct {
	DocumentIDs   []string            `json:"document_ids"`
	AnalysisType  string              `json:"analysis_type"`
	InsurancePlan string              `json:"insurance_plan"`
	UserDetails   *domain.UserDetails `json:"user_details"`
}

func (t *Tools) AnalyzeDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args analyzeArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorf("invalid arguments: %v", err), nil
	}
	analysisType, err := domain.ParseAnalysisType(args.AnalysisType)
	if err != nil {
		return t.toolError(ToolAnalyzeDocuments, err), nil
	}

	result, err := t.analysis.Analyze(ctx, domain.AnalyzeRequest{
		DocumentIDs:   args.DocumentIDs,
		AnalysisType:  analysisType,
		InsurancePlan: args.InsurancePlan,
		UserDetails:   args.UserDetails,
	})
	if err != nil {
		return t.toolError(ToolAnalyzeDocuments, err), nil
	}
	return mcp.NewToolResultJSON(result)
}

func (t *Tools) ExplainDenial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := req.RequireStringSlice("document_ids")
	if err != nil {
		return mcp.NewToolResultErrorf("invalid arguments: %v", err), nil
	}
	result, err := t.analysis.ExplainDenial(ctx, ids)
	if err != nil {
		return t.toolError(ToolExplainDenial, err), nil
	}
	return mcp.NewToolResultJSON(result)
}

func (t *Tools) DraftAppeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args analyzeArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorf("invalid arguments: %v", err), nil
	}
	draft, err := t.analysis.DraftAppeal(ctx, domain.AppealRequest{
		DocumentIDs:   args.DocumentIDs,
		InsurancePlan: args.InsurancePlan,
		UserDetails:   args.UserDetails,
	})
	if err != nil {
		return t.toolError(ToolDraftAppeal, err), nil
	}
	return mcp.NewToolResultJSON(draft)
}

func (t *Tools) toolError(tool string, err error) *mcp.CallToolResult {
	message := err.Error()
	switch {
	case domain.IsKind(err, domain.ErrTemporary):
		message = "pipeline unavailable, retry later"
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrDocumentNotFound):
	default:
		t.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(message)
}
