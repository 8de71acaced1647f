// Package testutil provides shared test helpers for setting up course libraries and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/gloss/internal/index"
	"github.com/starford/gloss/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gloss-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary course library with a storage provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// SampleCourse is a small course with one material of each kind.
const SampleCourse = `{
	"title": "Reading Basics",
	"level": "A2",
	"curriculum": [
		{"week": 1, "title": "Orientation", "analysisMaterials": [
			{"title": "Lesson 1", "sentences": [{"original": "He went home.", "analysis": "[He/주어] went home.", "translation": "그는 집에 갔다."}]},
			{"title": "1과 단어장", "vocabulary": ["apple: 사과"]}
		]},
		{"week": 2, "title": "Practice", "analysisMaterials": [
			{"title": "Quiz", "questions": [{"question": "Pick one", "choices": ["a", "b"], "answer": 1}]},
			{"title": "1과 워크북", "sentences": ["She [left/leave/verb] the room early."]}
		]}
	]
}`
