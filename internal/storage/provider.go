// Package storage defines the course library file-system abstraction.
package storage

import "github.com/starford/gloss/internal/models"

// CourseExt is the extension of course files in the library.
const CourseExt = ".json"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every course file under dir (relative to the library root).
	List(dir string) ([]models.CourseMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the library root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the library root).
	Move(oldPath, newPath string) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
}

// IsCourseFile reports whether name looks like a course file. Temporary
// files left by atomic writes are skipped.
func IsCourseFile(name string) bool {
	return len(name) > len(CourseExt) &&
		name[len(name)-len(CourseExt):] == CourseExt &&
		name[0] != '.'
}
