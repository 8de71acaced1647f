package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/gloss/internal/curriculum"
)

// CachedCurriculum returns the loader result stored for a content checksum.
// Identical curriculum text always loads to the same weeks, so the cache
// never needs invalidation; PruneCurricula drops entries no course uses.
func (db *DB) CachedCurriculum(sum string) (curriculum.Result, bool, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT result FROM curricula WHERE checksum = ?`, sum).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return curriculum.Result{}, false, nil
	}
	if err != nil {
		return curriculum.Result{}, false, fmt.Errorf("index: cached curriculum: %w", err)
	}
	var r curriculum.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		// A row written by an older build; treat as a miss.
		return curriculum.Result{}, false, nil
	}
	return r, true, nil
}

// CacheCurriculum stores the loader result for a content checksum.
func (db *DB) CacheCurriculum(sum string, r curriculum.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("index: encode curriculum: %w", err)
	}
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO curricula (checksum, result) VALUES (?, ?)`, sum, string(raw))
	if err != nil {
		return fmt.Errorf("index: cache curriculum: %w", err)
	}
	return nil
}

// PruneCurricula removes cached results whose checksum no course carries.
func (db *DB) PruneCurricula() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM curricula WHERE checksum NOT IN (SELECT checksum FROM courses)`)
	if err != nil {
		return 0, fmt.Errorf("index: prune curricula: %w", err)
	}
	return res.RowsAffected()
}
