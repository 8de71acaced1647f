package material

import "strings"

// Kind is the inferred category of a material.
type Kind string

// Document kinds.
const (
	KindAnalysis Kind = "analysis"
	KindWorkbook Kind = "workbook"
	KindWord     Kind = "word"
	KindVariant  Kind = "variant"
)

// Title keywords used by the classifier.
const (
	titleWorkbook = "워크북"
	titleWordList = "단어장"
	titleVariant  = "변형문제"
)

var kindAliases = map[string]Kind{
	"analysis":          KindAnalysis,
	"workbook":          KindWorkbook,
	"word":              KindWord,
	"words":             KindWord,
	"wordlist":          KindWord,
	"word-list":         KindWord,
	"vocabulary":        KindWord,
	"variant":           KindVariant,
	"variants":          KindVariant,
	"variant-questions": KindVariant,
	"questions":         KindVariant,
}

// ParseKind maps a stored type hint to a Kind.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// Valid reports whether k is one of the four document kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAnalysis, KindWorkbook, KindWord, KindVariant:
		return true
	}
	return false
}

// Classify infers the document kind of m. It is deterministic and does not
// modify m; the first matching rule wins.
func Classify(m RawMaterial) Kind {
	if len(m.Questions) > 0 {
		return KindVariant
	}
	if k, ok := ParseKind(m.Type); ok && k != KindAnalysis {
		return k
	}
	// An explicit workbook type was matched above, so only the title is
	// left to mark a workbook here.
	if strings.Contains(m.Title, titleWorkbook) {
		return KindWorkbook
	}
	hasSentences := len(m.Sentences) > 0 || len(m.Content) > 0
	if hasSentences {
		return KindAnalysis
	}
	if len(m.Vocabulary) > 0 {
		return KindWord
	}
	if strings.Contains(m.Title, titleWordList) {
		return KindWord
	}
	if strings.Contains(m.Title, titleVariant) {
		return KindVariant
	}
	return KindAnalysis
}
