package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/core/ports"
)

const forcedDenialSegment = "Denial"

// IsForcedDenial reports whether a storage path has a path component exactly
// equal to "Denial". Both slash styles are accepted.
func IsForcedDenial(path string) bool {
	normalized := strings.ReplaceAll(path, `\`, "/")
	for _, segment := range strings.Split(normalized, "/") {
		if segment == forcedDenialSegment {
			return true
		}
	}
	return false
}

// classifyDocument assigns a type to doc. ok is false when the document has no
// text and no forced type, in which case it is left out of the run.
func classifyDocument(ctx context.Context, classifier ports.DocumentClassifier, doc domain.Document) (docType domain.DocumentType, forced bool, ok bool, err error) {
	if IsForcedDenial(doc.StoragePath) {
		return domain.TypeDenialLetter, true, true, nil
	}
	if strings.TrimSpace(doc.Text) == "" {
		return domain.TypeUnknown, false, false, nil
	}

	label, err := classifier.Classify(ctx, doc.Text)
	if err != nil {
		return domain.TypeUnknown, false, false, fmt.Errorf("classify document %s: %w", doc.ID, err)
	}
	return domain.ParseDocumentType(string(label)), false, true, nil
}

// extractDocument runs field extraction for an already classified document and
// applies the denial-letter fallback patch.
func extractDocument(
	ctx context.Context,
	extractor ports.FieldExtractor,
	doc domain.Document,
	docType domain.DocumentType,
	forced bool,
) (domain.ExtractedDocument, error) {
	fields := domain.Fields{}
	if strings.TrimSpace(doc.Text) != "" {
		extracted, err := extractor.Extract(ctx, doc.Text, docType)
		if err != nil {
			return domain.ExtractedDocument{}, fmt.Errorf("extract fields for document %s: %w", doc.ID, err)
		}
		if extracted != nil {
			fields = extracted.Clone()
		}
	}

	synthesized := false
	if docType == domain.TypeDenialLetter {
		fields, synthesized = ApplyDenialFallback(fields)
	}

	return domain.ExtractedDocument{
		DocumentID:    doc.ID,
		Filename:      doc.Filename,
		Type:          docType,
		Fields:        fields,
		ForcedType:    forced,
		Synthesized:   synthesized,
		MissingFields: domain.MissingRequired(docType, fields),
	}, nil
}
