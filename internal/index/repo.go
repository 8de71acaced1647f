package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/gloss/internal/apperr"
)

// CourseRow represents a row in the courses table.
type CourseRow struct {
	Path        string
	Title       string
	Description string
	Level       string
	Checksum    string
	Kinds       []string
	Weeks       int
	Materials   int
	UpdatedAt   time.Time
}

// MaterialRow is one material of an indexed course. Week is the week
// number, Index the position inside the week.
type MaterialRow struct {
	Path  string
	Week  int
	Index int
	Kind  string
	Title string
	URL   string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertCourse inserts or replaces a course, its FTS entry, and its
// material rows within a transaction.
func (db *DB) UpsertCourse(c CourseRow, body string, materials []MaterialRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if c.Kinds == nil {
		c.Kinds = []string{}
	}
	kindsJSON, _ := json.Marshal(c.Kinds)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	// Upsert courses table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO courses (path, title, description, level, checksum, kinds, weeks, materials, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			level       = excluded.level,
			checksum    = excluded.checksum,
			kinds       = excluded.kinds,
			weeks       = excluded.weeks,
			materials   = excluded.materials,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, c.Path, c.Title, c.Description, c.Level, c.Checksum, string(kindsJSON), c.Weeks, c.Materials, body, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert course: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, c.Path, c.Title, body, c.Kinds); err != nil {
		return err
	}

	// Replace materials: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM course_materials WHERE path = ?`, c.Path); err != nil {
		return fmt.Errorf("index: clear materials: %w", err)
	}
	if len(materials) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO course_materials (path, week, idx, kind, title, url) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare material insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range materials {
			if _, err := stmt.Exec(c.Path, m.Week, m.Index, m.Kind, m.Title, m.URL); err != nil {
				return fmt.Errorf("index: insert material: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteCourse removes a course, its FTS entry, and its material rows.
func (db *DB) DeleteCourse(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM course_materials WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM courses WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a course, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM courses WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const courseColumns = `path, title, description, level, checksum, kinds, weeks, materials, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(s scanner) (CourseRow, error) {
	var (
		r     CourseRow
		kinds string
	)
	if err := s.Scan(&r.Path, &r.Title, &r.Description, &r.Level, &r.Checksum, &kinds, &r.Weeks, &r.Materials, &r.UpdatedAt); err != nil {
		return CourseRow{}, err
	}
	if err := json.Unmarshal([]byte(kinds), &r.Kinds); err != nil || r.Kinds == nil {
		r.Kinds = []string{}
	}
	return r, nil
}

// GetCourse returns one indexed course. A missing row wraps apperr.ErrNotFound.
func (db *DB) GetCourse(path string) (*CourseRow, error) {
	r, err := scanCourse(db.conn.QueryRow(`SELECT `+courseColumns+` FROM courses WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: course %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get course: %w", err)
	}
	return &r, nil
}

var sortOrders = map[string]string{
	"":        "updated_at DESC, path",
	"updated": "updated_at DESC, path",
	"title":   "title COLLATE NOCASE, path",
	"path":    "path",
	"weeks":   "weeks DESC, path",
}

// ListCourses returns a page of courses and the total count. A non-empty
// kind keeps only courses holding at least one material of that kind.
func (db *DB) ListCourses(limit, offset int, kind, sort string) ([]CourseRow, int, error) {
	order, ok := sortOrders[strings.ToLower(sort)]
	if !ok {
		return nil, 0, fmt.Errorf("index: sort %q: %w", sort, apperr.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if kind != "" {
		where = ` WHERE path IN (SELECT path FROM course_materials WHERE kind = ?)`
		args = append(args, kind)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM courses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count courses: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+courseColumns+` FROM courses`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list courses: %w", err)
	}
	defer rows.Close()

	out := []CourseRow{}
	for rows.Next() {
		r, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Materials returns the material rows of a course ordered by week and position.
func (db *DB) Materials(path string) ([]MaterialRow, error) {
	rows, err := db.conn.Query(`SELECT path, week, idx, kind, title, url FROM course_materials WHERE path = ? ORDER BY week, idx`, path)
	if err != nil {
		return nil, fmt.Errorf("index: materials: %w", err)
	}
	defer rows.Close()

	out := []MaterialRow{}
	for rows.Next() {
		var m MaterialRow
		if err := rows.Scan(&m.Path, &m.Week, &m.Index, &m.Kind, &m.Title, &m.URL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed course path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed course.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
