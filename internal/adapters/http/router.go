package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/config"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
	"github.com/kirillkom/denial-appeal-assistant/internal/observability/metrics"
)

const (
	serviceName         = "denial-api"
	maxJSONBodyBytes    = 1 << 20
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultUploadLimit  = 20 << 20
	multipartMemorySize = 8 << 20
)

// Services are the inbound ports the HTTP surface dispatches to.
type Services struct {
	Ingest   ports.DocumentIngestor
	Docs     ports.DocumentReader
	Analysis ports.AnalysisService
	Sessions ports.SessionService
	Plans    ports.PlanCatalog
}

type Router struct {
	cfg       config.Config
	services  Services
	metrics   *metrics.HTTPServerMetrics
	validator *requestValidator
}

func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:       cfg,
		services:  services,
		metrics:   httpMetrics,
		validator: validator,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocumentByID)
	api.HandleFunc("POST /v1/analyze", rt.analyze)
	api.HandleFunc("POST /v1/denials/explain", rt.explainDenial)
	api.HandleFunc("POST /v1/appeals", rt.draftAppeal)
	api.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	api.HandleFunc("GET /v1/sessions/{id}/appeal.pdf", rt.downloadAppeal)
	api.HandleFunc("GET /v1/sessions/{id}/export.xlsx", rt.exportSession)
	api.HandleFunc("GET /v1/insurance/plans", rt.listPlans)

	var limited http.Handler = rt.validator.middleware(api)
	limited = backpressureMiddleware(limited, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, rt.recordRejected)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		root.Handle("GET /metrics", rt.metrics.Handler())
	}
	root.Handle("/", limited)

	var handler http.Handler = root
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"extractor_model": rt.cfg.OllamaExtractModel,
		"reasoning_model": rt.cfg.OllamaReasonModel,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := rt.cfg.APIMaxUploadBytes
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemorySize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("upload exceeds %d bytes", limit),
				Code:  "too_large",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required", Code: "invalid_input"})
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required", Code: "invalid_input"})
		return
	}
	defer file.Close()

	doc, err := rt.services.Ingest.Upload(
		r.Context(),
		uploadName(fileHeader, r.FormValue("folder")),
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// uploadName recovers the client path of an uploaded file. Multipart parsing
// reduces the filename to its base name, which would hide a "Denial" folder.
// A non-empty folder form field replaces whatever folder the filename carried.
func uploadName(header *multipart.FileHeader, folder string) string {
	name := header.Filename
	if _, params, err := mime.ParseMediaType(header.Header.Get("Content-Disposition")); err == nil {
		if raw := strings.TrimSpace(params["filename"]); raw != "" {
			name = raw
		}
	}
	folder = strings.Trim(strings.ReplaceAll(strings.TrimSpace(folder), `\`, "/"), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + path.Base(strings.ReplaceAll(name, `\`, "/"))
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Docs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := rt.services.Analysis.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) explainDenial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentIDs []string `json:"document_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := rt.services.Analysis.ExplainDenial(r.Context(), req.DocumentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) draftAppeal(w http.ResponseWriter, r *http.Request) {
	var req domain.AppealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := rt.services.Analysis.DraftAppeal(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	record, err := rt.services.Sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) downloadAppeal(w http.ResponseWriter, r *http.Request) {
	letter, err := rt.services.Sessions.RenderAppeal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, letter.ContentType, letter.Filename, letter.Data)
}

func (rt *Router) exportSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := rt.services.Sessions.ExportSession(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, "session_"+attachmentName(id)+".xlsx", data)
}

func (rt *Router) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := rt.services.Plans.ListPlans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"plans": plans})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		message := "invalid json"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Code: "invalid_input"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func attachmentName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
