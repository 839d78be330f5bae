package domain

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded artifact. Text is filled once by the text extraction
// worker and never changes afterwards.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Text        string         `json:"text,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type DocumentType string

const (
	TypeMedicalBill      DocumentType = "medical_bill"
	TypeDoctorNote       DocumentType = "doctor_note"
	TypeInsuranceCard    DocumentType = "insurance_card"
	TypePreAuthorization DocumentType = "pre_authorization"
	TypeDenialLetter     DocumentType = "denial_letter"
	TypeUnknown          DocumentType = "unknown"
)

// DocumentTypes lists every label the classifier may assign.
var DocumentTypes = []DocumentType{
	TypeMedicalBill,
	TypeDoctorNote,
	TypeInsuranceCard,
	TypePreAuthorization,
	TypeDenialLetter,
	TypeUnknown,
}

// ParseDocumentType maps a raw label onto the closed set; anything outside it is unknown.
func ParseDocumentType(raw string) DocumentType {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "-", "_")
	for _, t := range DocumentTypes {
		if string(t) == label {
			return t
		}
	}
	return TypeUnknown
}

// ExtractedDocument is the classification and field extraction outcome for one
// document within one analysis session.
type ExtractedDocument struct {
	DocumentID    string       `json:"document_id"`
	Filename      string       `json:"filename"`
	Type          DocumentType `json:"type"`
	Fields        Fields       `json:"fields"`
	ForcedType    bool         `json:"forced_type,omitempty"`
	Synthesized   bool         `json:"synthesized,omitempty"`
	MissingFields []string     `json:"missing_fields,omitempty"`
}

// FindDocuments returns the documents of the given type in their original order.
func FindDocuments(docs []ExtractedDocument, docType DocumentType) []ExtractedDocument {
	out := make([]ExtractedDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Type == docType {
			out = append(out, doc)
		}
	}
	return out
}

// FirstFields returns the fields of the first document of docType, or an empty map.
func FirstFields(docs []ExtractedDocument, docType DocumentType) (Fields, bool) {
	for _, doc := range docs {
		if doc.Type == docType {
			return doc.Fields.Clone(), true
		}
	}
	return Fields{}, false
}
