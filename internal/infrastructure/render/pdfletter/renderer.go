package pdfletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// Renderer lays out appeal letters as A4 PDFs using pdfcpu's JSON create API.
type Renderer struct {
	now func() time.Time
}

func New() *Renderer {
	return &Renderer{now: time.Now}
}

func (r *Renderer) Render(ctx context.Context, letter domain.AppealLetter, recipient domain.UserDetails) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(letter.BodySections) == 0 {
		return nil, fmt.Errorf("render appeal letter: no body sections")
	}

	spec, err := json.Marshal(buildLayout(letter, recipient, r.now()))
	if err != nil {
		return nil, fmt.Errorf("marshal pdf layout: %w", err)
	}

	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(spec), &out, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("create pdf: %w", err)
	}
	return out.Bytes(), nil
}
