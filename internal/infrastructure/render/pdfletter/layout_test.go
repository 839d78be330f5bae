package pdfletter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

func sampleLetter(sections int) domain.AppealLetter {
	letter := domain.AppealLetter{
		Salutation: "Dear Appeals Committee,",
		Closing:    "Sincerely,\nJane Doe",
		Citations:  []string{"Doctor's note dated 2024-01-10"},
		DenialCode: "CO-197",
	}
	for i := 0; i < sections; i++ {
		letter.BodySections = append(letter.BodySections, domain.LetterSection{
			Heading: "Medical necessity",
			Body:    strings.Repeat("The CT abdomen was ordered after persistent pain. ", 6),
		})
	}
	return letter
}

func pageTexts(l layout, page string) []string {
	var out []string
	for _, text := range l.Pages[page].Content.Text {
		out = append(out, text.Value)
	}
	return out
}

func TestBuildLayoutOrdersLetterParts(t *testing.T) {
	recipient := domain.UserDetails{Name: "Jane Doe", MemberID: "XYZ123", InsurerName: "BlueCross"}
	got := buildLayout(sampleLetter(1), recipient, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	if got.Paper != "A4P" || got.Origin != "UpperLeft" || len(got.Pages) != 1 {
		t.Fatalf("unexpected layout header %+v", got)
	}
	joined := strings.Join(pageTexts(got, "1"), "\n")
	order := []string{"Jane Doe", "March 1, 2024", "BlueCross", "Re: Appeal of claim denial (CO-197)", "Member ID: XYZ123", "Dear Appeals Committee,", "Medical necessity", "References", "1. Doctor's note", "Sincerely,"}
	last := -1
	for _, part := range order {
		idx := strings.Index(joined, part)
		if idx <= last {
			t.Fatalf("%q out of order or missing in:\n%s", part, joined)
		}
		last = idx
	}
}

func TestBuildLayoutPaginates(t *testing.T) {
	got := buildLayout(sampleLetter(20), domain.UserDetails{}, time.Now())
	if len(got.Pages) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(got.Pages))
	}
	for name, page := range got.Pages {
		for _, text := range page.Content.Text {
			if text.Pos[1] < marginTop || text.Pos[1] > pageHeight-marginBottom {
				t.Fatalf("page %s line %q outside margins: %v", name, text.Value, text.Pos)
			}
			if len([]rune(text.Value)) > wrapColumns {
				t.Fatalf("line exceeds wrap width: %q", text.Value)
			}
		}
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("alpha beta gamma delta", 11)
	if want := []string{"alpha beta", "gamma delta"}; strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("wrap() = %q", lines)
	}
	if got := wrap("abcdefghij", 4); strings.Join(got, "|") != "abcd|efgh|ij" {
		t.Fatalf("hard split = %q", got)
	}
	if got := wrap("   ", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("blank wrap = %q", got)
	}
}

func TestRenderRejectsEmptyLetter(t *testing.T) {
	if _, err := New().Render(context.Background(), domain.AppealLetter{}, domain.UserDetails{}); err == nil {
		t.Fatalf("expected error for letter without sections")
	}
}
