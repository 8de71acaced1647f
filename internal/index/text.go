package index

import (
	"sort"
	"strings"

	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
	"github.com/starford/gloss/internal/models"
)

// searchBody flattens a course into plain searchable text. Annotation
// markup is stripped so queries match what readers see.
func searchBody(c models.Course) string {
	var b strings.Builder
	line := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	line(c.Description)
	line(c.Level)
	for _, w := range c.Weeks {
		line(w.Title)
		for _, v := range w.Videos {
			line(v.Title)
		}
		for _, q := range w.Quizzes {
			line(q.Title)
		}
		for _, m := range w.AnalysisMaterials {
			line(m.Title)
			for _, list := range [][]material.SentenceRecord{m.Sentences, m.Content} {
				for _, s := range list {
					line(markup.Strip(s.Annotated()))
					line(s.Translation)
				}
			}
			for _, v := range m.Vocabulary {
				line(v.Word + " " + v.Meaning)
			}
			for _, q := range m.Questions {
				line(markup.Strip(q.Question))
			}
		}
	}
	return b.String()
}

// materialRows lists every material of c with its classified kind, and the
// sorted set of kinds present.
func materialRows(c models.Course) ([]MaterialRow, []string) {
	var rows []MaterialRow
	seen := map[string]bool{}
	for _, w := range c.Weeks {
		for i, m := range w.AnalysisMaterials {
			kind := string(material.Classify(m))
			rows = append(rows, MaterialRow{
				Path:  c.Path,
				Week:  w.Week,
				Index: i,
				Kind:  kind,
				Title: m.Title,
				URL:   m.URL,
			})
			seen[kind] = true
		}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return rows, kinds
}
