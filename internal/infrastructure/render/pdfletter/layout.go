package pdfletter

import (
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// Page geometry in points for A4 portrait with an upper-left origin.
const (
	pageHeight   = 842.0
	marginLeft   = 56.0
	marginTop    = 64.0
	marginBottom = 64.0
	lineHeight   = 15.0
	bodyFontSize = 11
	headFontSize = 12
	wrapColumns  = 92
)

type layoutFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type layoutText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  layoutFont `json:"font"`
}

type layoutContent struct {
	Text []layoutText `json:"text"`
}

type layoutPage struct {
	Content layoutContent `json:"content"`
}

// layout is the JSON document pdfcpu's create command consumes.
type layout struct {
	Paper  string                `json:"paper"`
	Origin string                `json:"origin"`
	Pages  map[string]layoutPage `json:"pages"`
}

type line struct {
	text string
	bold bool
}

type pager struct {
	pages []layoutPage
	y     float64
}

func (p *pager) add(l line) {
	if len(p.pages) == 0 || p.y+lineHeight > pageHeight-marginBottom {
		p.pages = append(p.pages, layoutPage{})
		p.y = marginTop
	}
	font := layoutFont{Name: "Helvetica", Size: bodyFontSize}
	if l.bold {
		font = layoutFont{Name: "Helvetica-Bold", Size: headFontSize}
	}
	page := &p.pages[len(p.pages)-1]
	if l.text != "" {
		page.Content.Text = append(page.Content.Text, layoutText{
			Value: l.text,
			Pos:   [2]float64{marginLeft, p.y},
			Font:  font,
		})
	}
	p.y += lineHeight
}

func buildLayout(letter domain.AppealLetter, recipient domain.UserDetails, date time.Time) layout {
	p := &pager{}
	emit := func(text string, bold bool) {
		for _, wrapped := range wrap(text, wrapColumns) {
			p.add(line{text: wrapped, bold: bold})
		}
	}
	blank := func() { p.add(line{}) }

	for _, value := range []string{recipient.Name, recipient.Address, recipient.Phone, recipient.Email} {
		if strings.TrimSpace(value) != "" {
			emit(value, false)
		}
	}
	blank()
	emit(date.Format("January 2, 2006"), false)
	blank()
	if recipient.InsurerName != "" || recipient.InsurerAddress != "" {
		emit(recipient.InsurerName, false)
		emit(recipient.InsurerAddress, false)
		blank()
	}

	subject := letter.Subject
	if subject == "" {
		subject = "Appeal of claim denial"
		if letter.DenialCode != "" {
			subject += " (" + letter.DenialCode + ")"
		}
	}
	emit("Re: "+subject, true)
	if recipient.MemberID != "" {
		emit("Member ID: "+recipient.MemberID, false)
	}
	blank()

	emit(letter.Salutation, false)
	blank()
	for _, section := range letter.BodySections {
		if section.Heading != "" {
			emit(section.Heading, true)
		}
		for _, paragraph := range strings.Split(section.Body, "\n") {
			emit(paragraph, false)
		}
		blank()
	}

	if len(letter.Citations) > 0 {
		emit("References", true)
		for i, citation := range letter.Citations {
			emit(strconv.Itoa(i+1)+". "+citation, false)
		}
		blank()
	}

	for _, closing := range strings.Split(letter.Closing, "\n") {
		emit(closing, false)
	}

	pages := make(map[string]layoutPage, len(p.pages))
	for i, page := range p.pages {
		pages[strconv.Itoa(i+1)] = page
	}
	return layout{Paper: "A4P", Origin: "UpperLeft", Pages: pages}
}

// wrap splits text on word boundaries into lines of at most width runes.
// Words longer than width are hard-split.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var current []rune
	for _, word := range words {
		runes := []rune(word)
		for len(runes) > width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		if len(runes) == 0 {
			continue
		}
		switch {
		case len(current) == 0:
			current = runes
		case len(current)+1+len(runes) <= width:
			current = append(append(current, ' '), runes...)
		default:
			lines = append(lines, string(current))
			current = runes
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
