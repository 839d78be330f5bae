package xlsx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

const (
	sheetSummary   = "Summary"
	sheetDocuments = "Documents"
	sheetFields    = "Fields"
)

// Exporter writes a session record as a workbook with a summary sheet, one
// row per document and one row per extracted field.
type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(record domain.SessionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, sheet := range []string{sheetDocuments, sheetFields} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	if err := writeRows(f, sheetSummary, summaryRows(record)); err != nil {
		return nil, err
	}
	if err := writeRows(f, sheetDocuments, documentRows(record.Documents)); err != nil {
		return nil, err
	}
	if err := writeRows(f, sheetFields, fieldRows(record.Documents)); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(sheetSummary, "A", "A", 24)
	_ = f.SetColWidth(sheetSummary, "B", "B", 80)
	_ = f.SetColWidth(sheetDocuments, "A", "F", 22)
	_ = f.SetColWidth(sheetFields, "A", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(record domain.SessionRecord) [][]any {
	session := record.Session
	result := record.Result
	rows := [][]any{
		{"Field", "Value"},
		{"Session ID", session.ID},
		{"Analysis type", string(session.AnalysisType)},
		{"State", string(session.State)},
		{"Insurance plan", session.InsurancePlan},
		{"Created at", session.CreatedAt.UTC().Format(time.RFC3339)},
		{"Denial risk score", result.DenialRiskScore},
		{"Missing requirements", strings.Join(result.MissingRequirements, "; ")},
		{"Degradations", strings.Join(result.Degradations, "; ")},
	}
	if pc := result.PreClaim; pc != nil {
		rows = append(rows,
			[]any{"Risk level", pc.RiskLevel},
			[]any{"Recommendations", strings.Join(pc.Recommendations, "; ")},
		)
	}
	if ex := result.Explanation; ex != nil {
		rows = append(rows,
			[]any{"Denial reason", ex.DenialReason},
			[]any{"Denial code", ex.DenialCode},
			[]any{"Explanation", ex.Explanation},
			[]any{"Appeal recommended", strconv.FormatBool(ex.AppealRecommended)},
		)
	}
	if letter := result.Letter; letter != nil {
		rows = append(rows,
			[]any{"Appeal subject", letter.Subject},
			[]any{"Appeal sections", len(letter.BodySections)},
			[]any{"Synthesized denial", strconv.FormatBool(letter.SynthesizedDenial)},
		)
	}
	return rows
}

func documentRows(docs []domain.ExtractedDocument) [][]any {
	rows := [][]any{{"Document ID", "Filename", "Type", "Forced", "Synthesized", "Missing fields"}}
	for _, doc := range docs {
		rows = append(rows, []any{
			doc.DocumentID,
			doc.Filename,
			string(doc.Type),
			strconv.FormatBool(doc.ForcedType),
			strconv.FormatBool(doc.Synthesized),
			strings.Join(doc.MissingFields, ", "),
		})
	}
	return rows
}

func fieldRows(docs []domain.ExtractedDocument) [][]any {
	rows := [][]any{{"Document ID", "Field", "Value"}}
	for _, doc := range docs {
		keys := make([]string, 0, len(doc.Fields))
		for key := range doc.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			rows = append(rows, []any{doc.DocumentID, key, doc.Fields.String(key)})
		}
	}
	return rows
}
