package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/gloss/internal/checksum"
	"github.com/starford/gloss/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const (
	// settleDelay coalesces the bursts of write events an editor or an
	// atomic rename produces for a single save.
	settleDelay = 100 * time.Millisecond
	// reconcileDelay waits for the Create half of a rename to land.
	reconcileDelay = 200 * time.Millisecond
)

// watcher owns the state of one Watch call. It is only touched from the
// Watch loop goroutine.
type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	fsw *fsnotify.Watcher
	// known maps indexed paths to the checksum last reported, so a save
	// that leaves the bytes unchanged produces no event.
	known   map[string]string
	pending map[string]struct{}
}

// Watch starts an fsnotify watcher on the library root and keeps the
// index in step with the files until ctx is cancelled. cb, if non-nil,
// receives every create, update and delete that changed the index.
//
// Directories created at runtime are watched as well. A rename is handled
// as a delete of the old path plus a short reconciliation pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addDirsRecursive(fsw, root); err != nil {
		return err
	}

	known, err := db.AllChecksums()
	if err != nil {
		return err
	}

	w := &watcher{
		db:      db,
		store:   store,
		root:    root,
		logger:  logger,
		cb:      cb,
		fsw:     fsw,
		known:   known,
		pending: make(map[string]struct{}),
	}
	logger.Info("watcher: started", slog.String("root", root), slog.Int("courses", len(known)))

	settle := newIdleTimer()
	reconcile := newIdleTimer()
	defer settle.stop()
	defer reconcile.stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-settle.C():
			w.flush()

		case <-reconcile.C():
			w.reconcile()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch w.handle(ev) {
			case actionSettle:
				settle.arm(settleDelay)
			case actionReconcile:
				reconcile.arm(reconcileDelay)
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type action int

const (
	actionNone action = iota
	actionSettle
	actionReconcile
)

// handle applies one fsnotify event and reports which timer it needs.
func (w *watcher) handle(ev fsnotify.Event) action {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.watchDir(ev.Name)
			return actionSettle
		}
	}
	if !storage.IsCourseFile(filepath.Base(ev.Name)) {
		return actionNone
	}
	rel, ok := w.rel(ev.Name)
	if !ok {
		return actionNone
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.pending[rel] = struct{}{}
		return actionSettle
	case ev.Has(fsnotify.Remove):
		delete(w.pending, rel)
		w.remove(rel)
	case ev.Has(fsnotify.Rename):
		// The new name arrives as its own Create when it stays inside the
		// library; anything else is picked up by reconcile.
		delete(w.pending, rel)
		w.remove(rel)
		return actionReconcile
	}
	return actionNone
}

// watchDir adds a new directory tree and queues the course files already
// inside it.
func (w *watcher) watchDir(dir string) {
	if err := addDirsRecursive(w.fsw, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsCourseFile(d.Name()) {
			return nil
		}
		if rel, ok := w.rel(p); ok {
			w.pending[rel] = struct{}{}
		}
		return nil
	})
}

// flush indexes every path queued since the last quiet period.
func (w *watcher) flush() {
	for rel := range w.pending {
		delete(w.pending, rel)
		data, err := w.store.Read(rel)
		if err != nil {
			// Gone again before it settled; Remove handles the index.
			w.logger.Debug("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		w.upsert(rel, data)
	}
}

// upsert indexes data for rel unless the watcher already reported those
// exact bytes.
func (w *watcher) upsert(rel string, data []byte) {
	sum := checksum.Sum(data)
	prev, seen := w.known[rel]
	if seen && prev == sum {
		return
	}
	c, err := IndexFile(w.db, rel, data)
	if err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logDegraded(w.logger, "watcher", c)
	w.known[rel] = sum

	kind := EventUpdated
	if !seen {
		kind = EventCreated
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteCourse(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if _, seen := w.known[rel]; !seen {
		return
	}
	delete(w.known, rel)
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(EventDeleted, rel)
}

// reconcile compares the library listing with the index, dropping entries
// whose files are gone and indexing files the event stream missed.
func (w *watcher) reconcile() {
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		if indexed[m.Path] == m.Checksum && w.known[m.Path] == m.Checksum {
			continue
		}
		data, err := w.store.Read(m.Path)
		if err != nil {
			continue
		}
		w.upsert(m.Path, data)
	}
	for p := range indexed {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
	for p := range w.known {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// rel converts an absolute event path to a slash-separated library path.
func (w *watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// idleTimer is a lazily created timer whose channel is nil until armed, so
// it can sit in a select before first use.
type idleTimer struct {
	t *time.Timer
}

func newIdleTimer() *idleTimer { return &idleTimer{} }

func (it *idleTimer) arm(d time.Duration) {
	if it.t == nil {
		it.t = time.NewTimer(d)
		return
	}
	it.t.Reset(d)
}

func (it *idleTimer) C() <-chan time.Time {
	if it.t == nil {
		return nil
	}
	return it.t.C
}

func (it *idleTimer) stop() {
	if it.t != nil {
		it.t.Stop()
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
