package index

import "github.com/starford/gloss/internal/curriculum"

// CourseIndex defines the interface for course indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type CourseIndex interface {
	UpsertCourse(c CourseRow, body string, materials []MaterialRow) error
	DeleteCourse(path string) error
	GetChecksum(path string) (string, error)
	GetCourse(path string) (*CourseRow, error)
	ListCourses(limit, offset int, kind, sort string) ([]CourseRow, int, error)
	Materials(path string) ([]MaterialRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	CachedCurriculum(sum string) (curriculum.Result, bool, error)
	CacheCurriculum(sum string, r curriculum.Result) error
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies CourseIndex at compile time.
var _ CourseIndex = (*DB)(nil)
