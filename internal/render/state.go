// Package render turns classified materials into viewer HTML, print HTML,
// word-processor HTML and rasterized PDF. All targets share one layout so
// they agree on what a document contains.
package render

import (
	"fmt"
	"strings"

	"github.com/starford/gloss/internal/apperr"
)

// ViewState holds the reader's display toggles. Values are immutable;
// the With methods return a modified copy.
type ViewState struct {
	CleanView        bool `json:"cleanView"`
	ShowAnswers      bool `json:"showAnswers"`
	ShowTranslations bool `json:"showTranslations"`
}

// DefaultViewState shows annotations and translations and hides answers.
func DefaultViewState() ViewState {
	return ViewState{ShowTranslations: true}
}

// WithCleanView returns s with annotations stripped or shown.
func (s ViewState) WithCleanView(on bool) ViewState {
	s.CleanView = on
	return s
}

// WithAnswers returns s with answer keys shown or hidden.
func (s ViewState) WithAnswers(on bool) ViewState {
	s.ShowAnswers = on
	return s
}

// WithTranslations returns s with translations shown or hidden.
func (s ViewState) WithTranslations(on bool) ViewState {
	s.ShowTranslations = on
	return s
}

// Target is an output format.
type Target string

// Render targets.
const (
	TargetViewer Target = "viewer"
	TargetPrint  Target = "print"
	TargetPDF    Target = "pdf"
	TargetWord   Target = "word"
)

// ParseTarget maps a request parameter to a Target. An empty string
// selects the viewer.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TargetViewer, nil
	case TargetViewer, TargetPrint, TargetPDF, TargetWord:
		return t, nil
	case "hwp", "hwpx":
		return TargetWord, nil
	}
	return "", fmt.Errorf("render: %q: %w", s, apperr.ErrUnsupportedTarget)
}

// Content types of the rendered outputs.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
	ContentTypeWord = "application/hwp+zip"
)

// Output is a rendered document ready to be served or written.
type Output struct {
	Body        []byte
	ContentType string
	FileName    string
}

// FileName builds a download name from a document title.
func FileName(title, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "material"
	}
	return name + "." + ext
}
