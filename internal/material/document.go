package material

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Document is a classified material. Exactly one of *Analysis, *Workbook,
// *WordList or *Variant.
type Document interface {
	Kind() Kind
	Header() Meta
	Validate() error
}

// Meta carries the fields every document kind shares.
type Meta struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	// RawText is set when the material could not be parsed and the raw
	// source is all there is to display.
	RawText string `json:"rawText,omitempty"`
}

// Analysis is a sentence-by-sentence analysis document.
type Analysis struct {
	Meta
	Structure  *Structure       `json:"structure,omitempty"`
	Background string           `json:"backgroundKnowledge,omitempty"`
	Sentences  []SentenceRecord `json:"sentences"`
	Vocabulary []VocabularyItem `json:"vocabulary,omitempty"`
}

// Workbook is a set of sentences turned into drills.
type Workbook struct {
	Meta
	Sentences  []SentenceRecord `json:"sentences"`
	Vocabulary []VocabularyItem `json:"vocabulary,omitempty"`
}

// WordList is a vocabulary table.
type WordList struct {
	Meta
	Items []VocabularyItem `json:"items"`
}

// Variant is a question set with an answer key.
type Variant struct {
	Meta
	Questions []Question `json:"questions"`
}

func (*Analysis) Kind() Kind { return KindAnalysis }
func (*Workbook) Kind() Kind { return KindWorkbook }
func (*WordList) Kind() Kind { return KindWord }
func (*Variant) Kind() Kind  { return KindVariant }

func (d *Analysis) Header() Meta { return d.Meta }
func (d *Workbook) Header() Meta { return d.Meta }
func (d *WordList) Header() Meta { return d.Meta }
func (d *Variant) Header() Meta  { return d.Meta }

// Validate checks the analysis has something to render.
func (d *Analysis) Validate() error {
	if d.RawText != "" {
		return nil
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Sentences, validation.Required.Error("analysis has no sentences")),
	)
}

// Validate checks the workbook has sentences to drill.
func (d *Workbook) Validate() error {
	if d.RawText != "" {
		return nil
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Sentences, validation.Required.Error("workbook has no sentences")),
	)
}

// Validate checks every entry names a word.
func (d *WordList) Validate() error {
	if d.RawText != "" {
		return nil
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Items, validation.Required.Error("word list is empty")),
	)
}

// Validate checks every question has text.
func (d *Variant) Validate() error {
	if d.RawText != "" {
		return nil
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Questions, validation.Required.Error("no questions")),
	)
}

// Validate implements validation.Validatable.
func (v VocabularyItem) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.Word, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (q Question) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Question, validation.Required),
	)
}

// Build classifies m once and returns the matching typed document.
// Sentences with no text are dropped; Build never fails, use Validate on
// the result to lint the material.
func Build(m RawMaterial) Document {
	meta := Meta{ID: m.ID.String(), Title: strings.TrimSpace(m.Title)}
	sentences := m.Sentences
	if len(sentences) == 0 {
		sentences = m.Content
	}
	sentences = compactSentences(sentences)

	if m.Fallback && len(sentences) > 0 {
		meta.RawText = sentences[0].Original
		sentences = nil
	}

	switch Classify(m) {
	case KindVariant:
		return &Variant{Meta: meta, Questions: m.Questions}
	case KindWorkbook:
		return &Workbook{Meta: meta, Sentences: sentences, Vocabulary: m.Vocabulary}
	case KindWord:
		return &WordList{Meta: meta, Items: m.Vocabulary}
	default:
		return &Analysis{
			Meta:       meta,
			Structure:  m.Structure,
			Background: strings.TrimSpace(m.BackgroundKnowledge.String()),
			Sentences:  sentences,
			Vocabulary: m.Vocabulary,
		}
	}
}

func compactSentences(in []SentenceRecord) []SentenceRecord {
	var out []SentenceRecord
	for _, s := range in {
		if strings.TrimSpace(s.Annotated()) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
