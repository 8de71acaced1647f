package index

import (
	"log/slog"
	"time"

	"github.com/starford/gloss/internal/checksum"
	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/models"
	"github.com/starford/gloss/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		c, err := IndexFile(db, m.Path, data)
		if err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logDegraded(logger, "sync", c)
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteCourse(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	if n, err := db.PruneCurricula(); err != nil {
		logger.Warn("sync: prune cache failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Debug("sync: pruned cache", slog.Int64("entries", n))
	}
	return nil
}

// LoadCourse parses a library file, reusing the cached loader result when
// the same content was loaded before.
func LoadCourse(db CourseIndex, path string, data []byte) models.Course {
	sum := checksum.Sum(data)
	c, text := models.SplitCourse(path, data)
	if r, ok, err := db.CachedCurriculum(sum); err == nil && ok {
		c.Apply(r)
	} else {
		r := curriculum.Parse(text)
		_ = db.CacheCurriculum(sum, r)
		c.Apply(r)
	}
	c.Checksum = sum
	return c
}

// IndexFile parses data and upserts it into the DB.
func IndexFile(db CourseIndex, path string, data []byte) (models.Course, error) {
	c := LoadCourse(db, path, data)
	c.UpdatedAt = time.Now()
	rows, kinds := materialRows(c)
	row := CourseRow{
		Path:        path,
		Title:       c.Title,
		Description: c.Description,
		Level:       c.Level,
		Checksum:    c.Checksum,
		Kinds:       kinds,
		Weeks:       len(c.Weeks),
		Materials:   len(rows),
		UpdatedAt:   c.UpdatedAt,
	}
	if err := db.UpsertCourse(row, searchBody(c), rows); err != nil {
		return models.Course{}, err
	}
	return c, nil
}

// logDegraded reports courses whose curriculum needed recovery.
func logDegraded(logger *slog.Logger, scope string, c models.Course) {
	if c.Repaired || c.Fallback || c.Legacy {
		logger.Warn(scope+": curriculum recovered",
			slog.String("path", c.Path),
			slog.Bool("repaired", c.Repaired),
			slog.Bool("fallback", c.Fallback),
			slog.Bool("legacy", c.Legacy))
	}
}
