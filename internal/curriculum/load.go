package curriculum

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/starford/gloss/internal/material"
)

// maxDepth bounds how many times a JSON string is decoded again.
const maxDepth = 3

// Result is the outcome of loading a curriculum field.
type Result struct {
	Weeks []Week `json:"weeks"`
	// Repaired is set when truncated JSON had to be closed.
	Repaired bool `json:"repaired,omitempty"`
	// Fallback is set when the text was kept raw inside a fallback material.
	Fallback bool `json:"fallback,omitempty"`
	// Legacy is set when the field was read as newline-delimited lines.
	Legacy bool `json:"legacy,omitempty"`
}

// Load decodes raw into weeks. It never fails and always returns at
// least one week.
func Load(raw string) []Week {
	return Parse(raw).Weeks
}

// Parse decodes raw into weeks and reports which recovery steps were taken.
func Parse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Weeks: []Week{newWeek(1, "")}}
	}
	if !looksJSON(text) {
		return Result{Weeks: legacyWeeks(text), Legacy: true}
	}

	v, repaired, err := decodeValue(text, 0)
	if err != nil {
		src := text
		if de, ok := err.(*decodeError); ok {
			src = de.text
		}
		week := newWeek(1, "")
		week.AnalysisMaterials = append(week.AnalysisMaterials, fallbackMaterial(src))
		return Result{Weeks: []Week{week}, Repaired: repaired, Fallback: true}
	}
	if s, ok := v.(string); ok {
		return Result{Weeks: legacyWeeks(s), Repaired: repaired, Legacy: true}
	}
	return Result{Weeks: weeksFromValue(v), Repaired: repaired}
}

// ParseMaterial decodes a single material given as JSON text. Text that
// cannot be decoded becomes a fallback material carrying the raw text.
func ParseMaterial(raw string) material.RawMaterial {
	text := strings.TrimSpace(raw)
	if !looksJSON(text) {
		return plainMaterial(text)
	}
	v, _, err := decodeValue(text, 0)
	if err != nil {
		if de, ok := err.(*decodeError); ok {
			text = de.text
		}
		return fallbackMaterial(text)
	}
	return materialFromValue(v)
}

// decodeError carries the innermost text that failed to decode.
type decodeError struct {
	text string
	err  error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// decodeValue unmarshals s, repairing it once if needed. A result that is
// itself a JSON-looking string is decoded again, up to maxDepth levels.
func decodeValue(s string, depth int) (any, bool, error) {
	var v any
	repaired := false
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		fixed, changed := Repair(s)
		if !changed {
			return nil, false, &decodeError{text: s, err: err}
		}
		if err := json.Unmarshal([]byte(fixed), &v); err != nil {
			return nil, false, &decodeError{text: s, err: err}
		}
		repaired = true
	}
	if str, ok := v.(string); ok && depth < maxDepth {
		inner := strings.TrimSpace(str)
		if looksJSON(inner) {
			iv, ir, err := decodeValue(inner, depth+1)
			return iv, repaired || ir, err
		}
	}
	return v, repaired, nil
}

func looksJSON(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '{', '[', '"':
		return true
	}
	return false
}

func weeksFromValue(v any) []Week {
	switch t := v.(type) {
	case []any:
		return weeksFromChapters(t)
	case map[string]any:
		for _, key := range []string{"tableOfContents", "chapters", "weeks"} {
			if chapters, ok := listField(t, key); ok {
				return weeksFromChapters(chapters)
			}
		}
		if isMaterial(t) {
			week := newWeek(1, "")
			week.AnalysisMaterials = append(week.AnalysisMaterials, materialFromMap(t))
			return []Week{week}
		}
		if isChapter(t) {
			return []Week{weekFromChapter(t, 1)}
		}
		return []Week{newWeek(1, stringField(t, "title"))}
	}
	return []Week{newWeek(1, "")}
}

// listField returns m[key] as a list. A string holding a JSON list is
// decoded.
func listField(m map[string]any, key string) ([]any, bool) {
	switch t := m[key].(type) {
	case []any:
		return t, true
	case string:
		inner := strings.TrimSpace(t)
		if !looksJSON(inner) {
			return nil, false
		}
		v, _, err := decodeValue(inner, 1)
		if err != nil {
			return nil, false
		}
		list, ok := v.([]any)
		return list, ok
	}
	return nil, false
}

func weeksFromChapters(chapters []any) []Week {
	weeks := make([]Week, 0, len(chapters))
	for i, c := range chapters {
		weeks = append(weeks, weekFromValue(c, i+1))
	}
	if len(weeks) == 0 {
		weeks = append(weeks, newWeek(1, ""))
	}
	return weeks
}

func weekFromValue(v any, n int) Week {
	switch t := v.(type) {
	case map[string]any:
		return weekFromChapter(t, n)
	case string:
		s := strings.TrimSpace(t)
		if looksJSON(s) {
			if dv, _, err := decodeValue(s, 1); err == nil {
				if m, ok := dv.(map[string]any); ok {
					return weekFromChapter(m, n)
				}
			}
			return newWeek(n, extractTitle(s))
		}
		return newWeek(n, s)
	}
	return newWeek(n, "")
}

func weekFromChapter(m map[string]any, n int) Week {
	if num, ok := weekNumber(m["week"]); ok {
		n = num
	}
	w := newWeek(n, stringField(m, "title"))
	w.Duration = stringField(m, "duration")

	if videos, ok := listField(m, "videos"); ok {
		for _, v := range videos {
			w.Videos = append(w.Videos, videoFromValue(v))
		}
	}
	if quizzes, ok := listField(m, "quizzes"); ok {
		for _, q := range quizzes {
			w.Quizzes = append(w.Quizzes, quizFromValue(q))
		}
	}
	found := false
	for _, key := range []string{"analysisMaterials", "materials"} {
		if items, ok := listField(m, key); ok {
			found = true
			for _, it := range items {
				w.AnalysisMaterials = append(w.AnalysisMaterials, materialFromValue(it))
			}
		}
	}
	if !found && isMaterial(m) {
		w.AnalysisMaterials = append(w.AnalysisMaterials, materialFromMap(m))
	}
	return w
}

var materialKeys = []string{"sentences", "content", "vocabulary", "questions", "structure"}

func isMaterial(m map[string]any) bool {
	for _, k := range materialKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func isChapter(m map[string]any) bool {
	for _, k := range []string{"analysisMaterials", "materials", "videos", "quizzes", "week"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func weekNumber(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			return int(t), true
		}
	case string:
		digits := strings.TrimLeftFunc(t, func(r rune) bool { return !unicode.IsDigit(r) })
		end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) })
		if end >= 0 {
			digits = digits[:end]
		}
		if n, err := strconv.Atoi(digits); err == nil && n >= 1 {
			return n, true
		}
	}
	return 0, false
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch t := m[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func videoFromValue(v any) Video {
	switch t := v.(type) {
	case map[string]any:
		return Video{
			Title:    stringField(t, "title"),
			URL:      stringField(t, "url", "videoUrl", "link"),
			Duration: stringField(t, "duration"),
		}
	case string:
		s := strings.TrimSpace(t)
		if isURL(s) {
			return Video{URL: s}
		}
		return Video{Title: s}
	}
	return Video{}
}

func quizFromValue(v any) Quiz {
	switch t := v.(type) {
	case map[string]any:
		q := Quiz{Title: stringField(t, "title")}
		if list, ok := listField(t, "questions"); ok {
			q.Questions = questionsFromList(list)
		}
		return q
	case string:
		return Quiz{Title: strings.TrimSpace(t)}
	}
	return Quiz{}
}

// questionsFromList decodes quiz questions one by one. An item that does
// not fit the question shape is kept with its raw JSON as the question
// text rather than dropped.
func questionsFromList(list []any) []material.Question {
	out := make([]material.Question, 0, len(list))
	for _, item := range list {
		data, err := json.Marshal(item)
		if err != nil {
			out = append(out, material.Question{Question: fmt.Sprint(item)})
			continue
		}
		var q material.Question
		if err := json.Unmarshal(data, &q); err != nil {
			q = material.Question{Question: string(data)}
		}
		out = append(out, q)
	}
	return out
}

func materialFromValue(v any) material.RawMaterial {
	switch t := v.(type) {
	case map[string]any:
		return materialFromMap(t)
	case string:
		s := strings.TrimSpace(t)
		if !looksJSON(s) {
			return plainMaterial(s)
		}
		dv, _, err := decodeValue(s, 1)
		if err != nil {
			if de, ok := err.(*decodeError); ok {
				s = de.text
			}
			return fallbackMaterial(s)
		}
		if m, ok := dv.(map[string]any); ok {
			return materialFromMap(m)
		}
		return fallbackMaterial(s)
	case nil:
		return material.RawMaterial{}
	}
	return fallbackMaterial(fmt.Sprint(v))
}

func materialFromMap(m map[string]any) material.RawMaterial {
	if _, ok := m["url"]; !ok {
		for _, alias := range []string{"sourceUrl", "documentUrl", "link"} {
			if u, ok := m[alias].(string); ok {
				m["url"] = u
				break
			}
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fallbackMaterial(fmt.Sprint(m))
	}
	var raw material.RawMaterial
	if err := json.Unmarshal(data, &raw); err != nil {
		return fallbackMaterial(string(data))
	}
	return raw
}

func plainMaterial(s string) material.RawMaterial {
	if isURL(s) {
		return material.RawMaterial{URL: s}
	}
	if s == "" {
		return material.RawMaterial{}
	}
	return material.RawMaterial{Sentences: []material.SentenceRecord{{Original: s}}}
}

// fallbackMaterial wraps text that could not be decoded so it can still be
// displayed. The kind hint is inferred from the text.
func fallbackMaterial(text string) material.RawMaterial {
	return material.RawMaterial{
		Title:     extractTitle(text),
		Type:      string(InferKind(text)),
		Sentences: []material.SentenceRecord{{Original: text}},
		Fallback:  true,
	}
}

// InferKind guesses the kind of undecodable material text from keywords.
// It mirrors the classifier order: questions first.
func InferKind(text string) material.Kind {
	compact := strings.Join(strings.Fields(text), "")
	switch {
	case strings.Contains(compact, `"questions":`) || strings.Contains(compact, `"type":"variant"`):
		return material.KindVariant
	case strings.Contains(compact, `"type":"workbook"`) || strings.Contains(text, "워크북"):
		return material.KindWorkbook
	case strings.Contains(text, "변형문제"):
		return material.KindVariant
	case strings.Contains(compact, `"type":"word"`) || strings.Contains(compact, `"vocabulary":`) || strings.Contains(text, "단어장"):
		return material.KindWord
	}
	return material.KindAnalysis
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
