// Package carousel renders slides into a square-page PDF, the format
// LinkedIn shows as a swipeable document post.
package carousel

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/deusflow/newsposter/internal/rewrite"
)

const (
	pageSize = 200.0 // mm, square
	margin   = 16.0
)

var ErrNoSlides = errors.New("no slides to render")

type Theme struct {
	Background [3]int
	Accent     [3]int
	Text       [3]int
	Footer     string
}

func DefaultTheme() Theme {
	return Theme{
		Background: [3]int{15, 23, 42},
		Accent:     [3]int{56, 189, 248},
		Text:       [3]int{241, 245, 249},
		Footer:     "Desliza →",
	}
}

type Builder struct {
	theme Theme
}

func NewBuilder(theme Theme) *Builder {
	return &Builder{theme: theme}
}

// Build renders one page per slide and returns the PDF bytes.
func (b *Builder) Build(title string, slides []rewrite.Slide) ([]byte, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageSize, Ht: pageSize},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator("newsposter", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, margin, margin)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(toCP1252(s)) }

	for i, s := range slides {
		pdf.AddPage()
		b.background(pdf)

		pdf.SetTextColor(b.theme.Accent[0], b.theme.Accent[1], b.theme.Accent[2])
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetXY(margin, margin)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d/%d", i+1, len(slides)), "", 1, "L", false, 0, "")

		pdf.SetTextColor(b.theme.Text[0], b.theme.Text[1], b.theme.Text[2])
		titleSize := 26.0
		if i == 0 {
			titleSize = 32
		}
		pdf.SetFont("Helvetica", "B", titleSize)
		pdf.SetXY(margin, margin+22)
		pdf.MultiCell(pageSize-2*margin, titleSize*0.5, text(s.Title), "", "L", false)

		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 18)
		pdf.MultiCell(pageSize-2*margin, 9, text(s.Body), "", "L", false)

		footer := b.theme.Footer
		if i == len(slides)-1 {
			footer = title
		}
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(b.theme.Accent[0], b.theme.Accent[1], b.theme.Accent[2])
		pdf.SetXY(margin, pageSize-margin-6)
		pdf.CellFormat(pageSize-2*margin, 6, text(footer), "", 0, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render carousel: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write carousel: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) background(pdf *fpdf.Fpdf) {
	pdf.SetFillColor(b.theme.Background[0], b.theme.Background[1], b.theme.Background[2])
	pdf.Rect(0, 0, pageSize, pageSize, "F")
	pdf.SetFillColor(b.theme.Accent[0], b.theme.Accent[1], b.theme.Accent[2])
	pdf.Rect(0, pageSize-4, pageSize, 4, "F")
}

// cp1252Extras are the non-Latin-1 runes the core fonts can still draw.
var cp1252Extras = map[rune]bool{
	'€': true, '‚': true, '„': true, '…': true, '•': true, '–': true, '—': true,
	'‘': true, '’': true, '“': true, '”': true, '™': true,
}

// toCP1252 drops what the built-in fonts cannot render, mostly emoji.
func toCP1252(s string) string {
	s = strings.ReplaceAll(s, "→", "->")
	var b strings.Builder
	for _, r := range s {
		if r <= 0xFF || cp1252Extras[r] {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
