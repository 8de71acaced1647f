// Package material defines curriculum materials as they arrive from the
// course API, classifies them, and builds typed documents for rendering.
package material

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RawMaterial is the untyped material payload. Every field is optional.
type RawMaterial struct {
	ID                  FlexString       `json:"id,omitempty"`
	Title               string           `json:"title,omitempty"`
	Type                string           `json:"type,omitempty"`
	Sentences           []SentenceRecord `json:"sentences,omitempty"`
	Content             []SentenceRecord `json:"content,omitempty"`
	Vocabulary          []VocabularyItem `json:"vocabulary,omitempty"`
	Questions           []Question       `json:"questions,omitempty"`
	Structure           *Structure       `json:"structure,omitempty"`
	BackgroundKnowledge FlexString       `json:"backgroundKnowledge,omitempty"`
	URL                 string           `json:"url,omitempty"`
	Fallback            bool             `json:"fallback,omitempty"`
}

// UnmarshalJSON accepts content given as a bare string or a list.
func (m *RawMaterial) UnmarshalJSON(data []byte) error {
	type alias RawMaterial
	var aux struct {
		alias
		Content   json.RawMessage `json:"content,omitempty"`
		Sentences json.RawMessage `json:"sentences,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = RawMaterial(aux.alias)
	var err error
	if m.Sentences, err = decodeSentences(aux.Sentences); err != nil {
		return err
	}
	if m.Content, err = decodeSentences(aux.Content); err != nil {
		return err
	}
	return nil
}

// decodeSentences reads a list of sentence records, a single record, a
// stringified list, or a plain string split into one record per non-empty
// line.
func decodeSentences(data json.RawMessage) ([]SentenceRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch data[0] {
	case '[':
		var out []SentenceRecord
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		if inner := strings.TrimSpace(s); strings.HasPrefix(inner, "[") && json.Valid([]byte(inner)) {
			return decodeSentences(json.RawMessage(inner))
		}
		var out []SentenceRecord
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, SentenceRecord{Original: line})
			}
		}
		return out, nil
	default:
		var rec SentenceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		return []SentenceRecord{rec}, nil
	}
}

// SentenceRecord is one unit of source text.
type SentenceRecord struct {
	Original     string `json:"original,omitempty"`
	Analysis     string `json:"analysis,omitempty"`
	Translation  string `json:"translation,omitempty"`
	GrammarPoint string `json:"grammarPoint,omitempty"`
}

// UnmarshalJSON accepts a bare string as the original text.
func (s *SentenceRecord) UnmarshalJSON(data []byte) error {
	if str, ok := decodeString(data); ok {
		*s = SentenceRecord{Original: str}
		return nil
	}
	type alias SentenceRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = SentenceRecord(a)
	return nil
}

// Annotated returns the annotated text: the analysis when present,
// otherwise the original.
func (s SentenceRecord) Annotated() string {
	if strings.TrimSpace(s.Analysis) != "" {
		return s.Analysis
	}
	return s.Original
}

// VocabularyItem is one entry of a word list.
type VocabularyItem struct {
	Word         string `json:"word"`
	Meaning      string `json:"meaning,omitempty"`
	PartOfSpeech string `json:"partOfSpeech,omitempty"`
	Example      string `json:"example,omitempty"`
}

// UnmarshalJSON accepts "word: meaning" and "word - meaning" strings.
func (v *VocabularyItem) UnmarshalJSON(data []byte) error {
	if str, ok := decodeString(data); ok {
		*v = splitVocabulary(str)
		return nil
	}
	type alias VocabularyItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = VocabularyItem(a)
	return nil
}

func splitVocabulary(s string) VocabularyItem {
	for _, sep := range []string{":", " - ", "\t"} {
		if word, meaning, ok := strings.Cut(s, sep); ok {
			return VocabularyItem{Word: strings.TrimSpace(word), Meaning: strings.TrimSpace(meaning)}
		}
	}
	return VocabularyItem{Word: strings.TrimSpace(s)}
}

// Question is one variant question.
type Question struct {
	Type        string     `json:"type,omitempty"`
	Question    string     `json:"question"`
	Passage     string     `json:"passage,omitempty"`
	Choices     StringList `json:"choices,omitempty"`
	Answer      FlexString `json:"answer,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
}

// UnmarshalJSON accepts a bare string as the question text.
func (q *Question) UnmarshalJSON(data []byte) error {
	if str, ok := decodeString(data); ok {
		*q = Question{Question: str}
		return nil
	}
	type alias Question
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*q = Question(a)
	return nil
}

// Structure is the header block of an analysis document.
type Structure struct {
	Title              string    `json:"title,omitempty"`
	TitleTranslation   string    `json:"titleTranslation,omitempty"`
	Subject            string    `json:"subject,omitempty"`
	SubjectTranslation string    `json:"subjectTranslation,omitempty"`
	Summary            string    `json:"summary,omitempty"`
	SummaryTranslation string    `json:"summaryTranslation,omitempty"`
	Sections           []Section `json:"sections,omitempty"`
}

// Empty reports whether the structure carries nothing to render.
func (s *Structure) Empty() bool {
	return s == nil || (s.Title == "" && s.Subject == "" && s.Summary == "" && len(s.Sections) == 0)
}

// Section is one ordered part of a document structure.
type Section struct {
	Heading     string `json:"heading,omitempty"`
	Content     string `json:"content,omitempty"`
	Translation string `json:"translation,omitempty"`
}

// FlexString decodes strings, numbers, booleans and string lists into one
// string. Lists are joined with newlines.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '[':
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				parts = append(parts, string(it))
			}
		}
		*f = FlexString(strings.Join(parts, "\n"))
	default:
		*f = FlexString(data)
	}
	return nil
}

// String returns the decoded text.
func (f FlexString) String() string { return string(f) }

// StringList decodes a list of strings or a newline-separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if str, ok := decodeString(data); ok {
		var out StringList
		for _, line := range strings.Split(str, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		*l = out
		return nil
	}
	var items []FlexString
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(StringList, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	*l = out
	return nil
}

func decodeString(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}
