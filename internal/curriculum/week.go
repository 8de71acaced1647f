// Package curriculum decodes the stored course curriculum field into weeks.
// The field is hand-edited or machine-generated JSON that is often
// double-encoded, truncated or not JSON at all; loading never fails.
package curriculum

import (
	"fmt"

	"github.com/starford/gloss/internal/material"
)

// Week is one chapter of a course.
type Week struct {
	Week              int                    `json:"week"`
	Title             string                 `json:"title"`
	Duration          string                 `json:"duration,omitempty"`
	Videos            []Video                `json:"videos"`
	Quizzes           []Quiz                 `json:"quizzes"`
	AnalysisMaterials []material.RawMaterial `json:"analysisMaterials"`
}

// Video is a lecture video reference.
type Video struct {
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Quiz is a short question set attached to a week.
type Quiz struct {
	Title     string              `json:"title,omitempty"`
	Questions []material.Question `json:"questions,omitempty"`
}

// DefaultTitle is the title given to week n when none is stored.
func DefaultTitle(n int) string {
	return fmt.Sprintf("%d주차", n)
}

func newWeek(n int, title string) Week {
	if title == "" {
		title = DefaultTitle(n)
	}
	return Week{
		Week:              n,
		Title:             title,
		Videos:            []Video{},
		Quizzes:           []Quiz{},
		AnalysisMaterials: []material.RawMaterial{},
	}
}

// Material returns material i of week w, or false when out of range.
func (w Week) Material(i int) (material.RawMaterial, bool) {
	if i < 0 || i >= len(w.AnalysisMaterials) {
		return material.RawMaterial{}, false
	}
	return w.AnalysisMaterials[i], true
}

// Find returns the week numbered n.
func Find(weeks []Week, n int) (Week, bool) {
	for _, w := range weeks {
		if w.Week == n {
			return w, true
		}
	}
	return Week{}, false
}

// MaterialCount is the number of materials across all weeks.
func MaterialCount(weeks []Week) int {
	n := 0
	for _, w := range weeks {
		n += len(w.AnalysisMaterials)
	}
	return n
}
