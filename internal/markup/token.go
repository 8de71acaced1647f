// Package markup tokenizes the sentence-annotation markup used by analysis
// materials and strips it back to plain reading text.
package markup

import "strings"

// Type is the display type of a token.
type Type string

// Token types produced by the scanner.
const (
	TypeText    Type = "text"
	TypeBgSoft  Type = "bg-soft"
	TypeBold    Type = "bold"
	TypeStrike  Type = "strike"
	TypeVerb    Type = "verb"
	TypeOX      Type = "ox"
	TypeArrow   Type = "arrow"
	TypeBracket Type = "bracket-blue"

	TypeHighlightBlue Type = "highlight-blue"
	TypeHighlightRed  Type = "highlight-red"
	TypeOvalOrange    Type = "oval-orange"
)

// Clause colors, in the order of their markers.
const (
	ClauseBlue   = "blue"
	ClauseGreen  = "green"
	ClauseOrange = "orange"
	ClausePurple = "purple"
	ClausePink   = "pink"
)

// Colors accepted for underline-, box- and bracket- annotation types.
var palette = map[string]bool{
	"blue":   true,
	"green":  true,
	"red":    true,
	"orange": true,
	"purple": true,
	"pink":   true,
}

// Token is one atomic unit of a tokenized sentence.
type Token struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      Type   `json:"type"`
	Note      string `json:"note,omitempty"`
	NoteColor string `json:"noteColor,omitempty"`
}

// ClauseOpen returns the open type for a clause color.
func ClauseOpen(color string) Type { return Type("clause-" + color + "-open") }

// ClauseClose returns the close type for a clause color.
func ClauseClose(color string) Type { return Type("clause-" + color + "-close") }

// IsClause reports whether t is a clause open or close marker.
func (t Type) IsClause() bool {
	return strings.HasPrefix(string(t), "clause-")
}

// IsClauseOpen reports whether t opens a clause.
func (t Type) IsClauseOpen() bool {
	return t.IsClause() && strings.HasSuffix(string(t), "-open")
}

// IsClauseClose reports whether t closes a clause.
func (t Type) IsClauseClose() bool {
	return t.IsClause() && strings.HasSuffix(string(t), "-close")
}

// ClauseColor returns the color of a clause marker type, or "" for other types.
func (t Type) ClauseColor() string {
	if !t.IsClause() {
		return ""
	}
	s := strings.TrimPrefix(string(t), "clause-")
	s = strings.TrimSuffix(s, "-open")
	return strings.TrimSuffix(s, "-close")
}

// Color returns the color suffix of colored annotation types
// (highlight-red → red). Types without a color return "".
func (t Type) Color() string {
	if t.IsClause() {
		return t.ClauseColor()
	}
	s := string(t)
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return ""
	}
	if c := s[i+1:]; palette[c] {
		return c
	}
	return ""
}

// Family returns the annotation family of t (highlight, underline, box,
// oval, bracket) or the type itself for uncolored types.
func (t Type) Family() string {
	if c := t.Color(); c != "" && !t.IsClause() {
		return strings.TrimSuffix(string(t), "-"+c)
	}
	return string(t)
}

// IsAnnotation reports whether t is a type an annotation may carry.
func (t Type) IsAnnotation() bool {
	switch t {
	case TypeBgSoft, TypeBold, TypeStrike, TypeVerb, TypeOX, TypeArrow:
		return true
	}
	switch t.Family() {
	case "highlight", "underline", "box", "oval", "bracket":
		return t.Color() != ""
	}
	return false
}

// Text concatenates the text of every token that is not a clause marker.
func Text(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Type.IsClause() {
			continue
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

// CollapseSpace trims s and folds every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
