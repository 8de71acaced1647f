// Package models defines the domain types for Gloss.
package models

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/starford/gloss/internal/curriculum"
)

// CourseFile is the on-disk shape of a course in the library. Curriculum
// is kept raw because it arrives as a list, an object, or a stringified
// (and sometimes truncated) JSON document. Seminars carry the same data
// under Program.
type CourseFile struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Level       string          `json:"level,omitempty"`
	Curriculum  json.RawMessage `json:"curriculum,omitempty"`
	Program     json.RawMessage `json:"program,omitempty"`
}

// schedule returns the curriculum field, or the program of a seminar.
func (f CourseFile) schedule() json.RawMessage {
	if len(f.Curriculum) > 0 {
		return f.Curriculum
	}
	return f.Program
}

// Course is a parsed library file.
type Course struct {
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Level       string            `json:"level,omitempty"`
	Weeks       []curriculum.Week `json:"weeks"`
	Repaired    bool              `json:"repaired,omitempty"`
	Fallback    bool              `json:"fallback,omitempty"`
	Legacy      bool              `json:"legacy,omitempty"`
	Checksum    string            `json:"checksum"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CourseMetadata is a lightweight representation returned by list operations.
type CourseMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseCourse reads a library file. A file that is not a course object is
// treated as a bare curriculum titled after its file name.
func ParseCourse(p string, data []byte) Course {
	c, text := SplitCourse(p, data)
	c.Apply(curriculum.Parse(text))
	return c
}

// SplitCourse returns the course envelope without weeks and the
// curriculum text still to be loaded.
func SplitCourse(p string, data []byte) (Course, string) {
	c := Course{Path: p}
	f, ok, repaired := decodeCourseFile(data)
	text := string(data)
	if ok {
		c.Title, c.Description, c.Level = f.Title, f.Description, f.Level
		c.Repaired = repaired
		if raw := f.schedule(); len(raw) > 0 {
			text = CurriculumText(raw)
		}
	}
	if c.Title == "" {
		base := path.Base(strings.ReplaceAll(p, "\\", "/"))
		c.Title = strings.TrimSuffix(base, path.Ext(base))
	}
	return c, text
}

// Apply copies a loader result onto c.
func (c *Course) Apply(r curriculum.Result) {
	c.Weeks, c.Fallback, c.Legacy = r.Weeks, r.Fallback, r.Legacy
	c.Repaired = c.Repaired || r.Repaired
}

// decodeCourseFile reads the course envelope, closing a truncated file
// first when needed.
func decodeCourseFile(data []byte) (f CourseFile, ok, repaired bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return f, false, false
	}
	if json.Unmarshal(trimmed, &f) == nil {
		return f, true, false
	}
	fixed, closed := curriculum.Repair(string(trimmed))
	if !closed || json.Unmarshal([]byte(fixed), &f) != nil {
		return CourseFile{}, false, false
	}
	return f, true, true
}

// CurriculumText returns the curriculum field as text for the loader.
// A JSON string is unwrapped once; the loader decodes nested strings itself.
func CurriculumText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
