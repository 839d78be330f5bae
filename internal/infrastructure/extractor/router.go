package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/extractor/pdftext"
)

type sourceKind string

const (
	sourceText  sourceKind = "text"
	sourcePDF   sourceKind = "pdf"
	sourceImage sourceKind = "image"
)

// Router picks a text source per document: plain text is read directly, PDFs
// use their text layer and fall back to OCR for scans, images always go to OCR.
type Router struct {
	plain  ports.TextExtractor
	pdf    ports.TextExtractor
	ocr    ports.TextExtractor
	logger *slog.Logger
}

func NewRouter(plain, pdf, ocr ports.TextExtractor, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{plain: plain, pdf: pdf, ocr: ocr, logger: logger}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch kind := detectKind(doc); kind {
	case sourceText:
		return r.plain.Extract(ctx, doc)
	case sourcePDF:
		text, err := r.pdf.Extract(ctx, doc)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, pdftext.ErrNoTextLayer) {
			r.logger.Warn("pdf_text_layer_unreadable", "document_id", doc.ID, "error", err)
		}
		return r.ocr.Extract(ctx, doc)
	case sourceImage:
		return r.ocr.Extract(ctx, doc)
	default:
		return "", fmt.Errorf("unsupported document type %q (%s)", doc.MimeType, doc.Filename)
	}
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {}, ".bmp": {}, ".webp": {}, ".gif": {},
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".csv": {}, ".json": {},
}

func detectKind(doc *domain.Document) sourceKind {
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "application/pdf":
		return sourcePDF
	case strings.HasPrefix(mime, "image/"):
		return sourceImage
	case strings.HasPrefix(mime, "text/"):
		return sourceText
	}

	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if ext == ".pdf" {
		return sourcePDF
	}
	if _, ok := imageExtensions[ext]; ok {
		return sourceImage
	}
	if _, ok := textExtensions[ext]; ok {
		return sourceText
	}
	return ""
}
