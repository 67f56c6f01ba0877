package rewrite

import (
	"regexp"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

var (
	disclaimerLine = regexp.MustCompile(`(?i)^\s*((note|nota|disclaimer|aviso)\s*:|as an ai\b|como (un )?modelo de (lenguaje|ia)\b)`)
	// (Note: ...) / [Nota: ...] anywhere in a line.
	inlineDisclaimer = regexp.MustCompile(`(?i)[\(\[]\s*(note|nota|disclaimer|aviso)\s*:[^\)\]]*[\)\]]\s*`)
	codeFence        = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	manyBlankLines   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeText cleans model output before it is posted: markup is stripped,
// code fences and model disclaimers are removed, and runs of blank lines
// collapse to one.
func SanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = codeFence.ReplaceAllString(s, "")
	s = inlineDisclaimer.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if disclaimerLine.MatchString(line) {
			continue
		}
		kept = append(kept, stripMarkup(line))
	}

	s = strings.Join(kept, "\n")
	s = manyBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// stripMarkup removes HTML tags line by line so paragraph breaks survive.
func stripMarkup(line string) string {
	if !strings.ContainsAny(line, "<&") {
		return strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(sanitize.HTML(line))
}

// extractJSON returns the outermost JSON object or array in s, which models
// tend to wrap in prose or fences.
func extractJSON(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
