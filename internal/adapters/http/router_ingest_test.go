package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/usecase"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/storage/localfs"
)

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzReportsModels(t *testing.T) {
	handler := newTestHandler(t, defaultRouterDeps())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["extractor_model"] != "extract-m" || payload["reasoning_model"] != "reason-m" {
		t.Fatalf("unexpected health payload %v", payload)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestHandler(t, defaultRouterDeps())
	body, contentType := multipartBody(t, "bill.txt", "CPT 74160")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" || docResp["filename"] != "bill.txt" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestHandler(t, defaultRouterDeps())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentTooLarge(t *testing.T) {
	deps := defaultRouterDeps()
	deps.cfg.APIMaxUploadBytes = 64
	handler := newTestHandler(t, deps)
	body, contentType := multipartBody(t, "scan.png", strings.Repeat("x", 4096))

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestGetDocumentByID(t *testing.T) {
	handler := newTestHandler(t, defaultRouterDeps())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-9", nil))

	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"id":"doc-9"`) {
		t.Fatalf("unexpected response %d %s", res.Code, res.Body.String())
	}
}

type memoryDocumentRepo struct {
	docs map[string]domain.Document
}

func (r *memoryDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memoryDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id="+id))
	}
	return &doc, nil
}

func (r *memoryDocumentRepo) ListByIDs(context.Context, []string) ([]domain.Document, error) {
	return nil, nil
}

func (r *memoryDocumentRepo) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (r *memoryDocumentRepo) SaveText(context.Context, string, string) error {
	return nil
}

type discardQueue struct{}

func (discardQueue) PublishDocumentIngested(context.Context, string) error { return nil }

func (discardQueue) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func newIngestHandler(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	deps := defaultRouterDeps()
	deps.services.Ingest = usecase.NewIngestDocumentUseCase(&memoryDocumentRepo{docs: map[string]domain.Document{}}, storage, discardQueue{})
	return newTestHandler(t, deps), dir
}

func uploadAndDecode(t *testing.T, handler http.Handler, body *bytes.Buffer, contentType string) domain.Document {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return doc
}

func TestUploadDenialFolderKeepsStoragePrefix(t *testing.T) {
	handler, dir := newIngestHandler(t)
	body, contentType := multipartBody(t, "Denial/denial_letter.png", "scan")

	doc := uploadAndDecode(t, handler, body, contentType)

	if !strings.HasPrefix(doc.StoragePath, "Denial/") || !usecase.IsForcedDenial(doc.StoragePath) {
		t.Fatalf("expected Denial/ storage prefix, got %q", doc.StoragePath)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(doc.StoragePath))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestUploadFolderFieldForcesDenial(t *testing.T) {
	handler, _ := newIngestHandler(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("folder", "Denial"); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	part, err := writer.CreateFormFile("file", "letter.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("scan")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	doc := uploadAndDecode(t, handler, &body, writer.FormDataContentType())

	if !strings.HasPrefix(doc.StoragePath, "Denial/") || doc.Filename != "Denial/letter.png" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestUploadPlainFileHasNoDenialPrefix(t *testing.T) {
	handler, _ := newIngestHandler(t)
	body, contentType := multipartBody(t, "bills/bill.png", "scan")

	doc := uploadAndDecode(t, handler, body, contentType)

	if usecase.IsForcedDenial(doc.StoragePath) {
		t.Fatalf("unexpected forced denial for %q", doc.StoragePath)
	}
}
