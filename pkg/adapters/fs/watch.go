package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/tilth/pkg/core"
)

// Watch reports changes to documents whose ID matches pattern (doublestar
// syntax, empty matches everything). Writes made through this repository are
// not reported. The channel closes when ctx is done.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern: %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := r.addTree(watcher, r.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	_ = watcher.Add(filepath.Join(r.Path, ".git"))

	return r.startWatch(ctx, watcher, pattern), nil
}

// startWatch runs the event loop on watcher until ctx is done or the watcher
// closes, then closes the returned channel.
func (r *Repository) startWatch(ctx context.Context, watcher *fsnotify.Watcher, pattern string) <-chan core.Event {
	events := make(chan core.Event)
	d := newDebouncer(r.config.Debounce)
	r.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer r.setWatcherActive(false)
		defer watcher.Close()

		// Deliveries stop with the loop even when ctx is still live.
		loopCtx, cancel := context.WithCancel(ctx)
		err := r.watchLoop(loopCtx, watcher, pattern, d, events)
		cancel()
		d.stop()
		return err
	}, lifecycle.WithErrorHandler(r.reportError))

	return events
}

func (r *Repository) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, d *debouncer, out chan<- core.Event) error {
	emit := func(e core.Event) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}

	gitLocked := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			if isGitIndexLock(event.Name) {
				switch {
				case event.Has(fsnotify.Create):
					gitLocked = true
					r.config.Logger.Debug("git operation detected, pausing watcher")
				case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
					gitLocked = false
					r.config.Logger.Debug("git operation finished, reconciling")
					r.reconcileAsync(ctx, pattern, d, emit)
				}
				continue
			}
			if gitLocked {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := r.addTree(watcher, event.Name); err != nil {
						r.reportError(err)
					}
					continue
				}
			}

			if e, ok := r.translate(event, pattern); ok {
				d.add(e, emit)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			r.reportError(err)
		}
	}
}

// translate maps a filesystem event to a document event. It drops events for
// non-documents, temp files, system directories, self-writes and IDs outside
// pattern.
func (r *Repository) translate(event fsnotify.Event, pattern string) (core.Event, bool) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, TempFilePrefix) || filepath.Ext(name) != DocumentExt {
		return core.Event{}, false
	}

	relPath, err := filepath.Rel(r.Path, event.Name)
	if err != nil || !filepath.IsLocal(relPath) {
		return core.Event{}, false
	}
	rel := filepath.ToSlash(relPath)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return core.Event{}, false
		}
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return core.Event{}, false
	}

	id := idFor(rel)
	if !matches(pattern, id) {
		return core.Event{}, false
	}
	if r.ownWrite(rel, eType == core.EventDelete) {
		r.config.Logger.Debug("ignoring own write", "path", rel)
		return core.Event{}, false
	}
	return core.Event{Type: eType, ID: id, Timestamp: time.Now().Unix()}, true
}

func (r *Repository) reconcileAsync(ctx context.Context, pattern string, d *debouncer, emit func(core.Event)) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		events, err := r.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		for _, e := range events {
			if matches(pattern, e.ID) {
				d.add(e, emit)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(r.reportError))
}

// addTree watches dir and every non-hidden directory below it.
func (r *Repository) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("watcher error", "error", err)
}

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func isGitIndexLock(path string) bool {
	return filepath.Base(path) == "index.lock" && filepath.Base(filepath.Dir(path)) == ".git"
}

func matches(pattern, id string) bool {
	if pattern == "" {
		return true
	}
	ok, _ := doublestar.Match(pattern, id)
	return ok
}

// debouncer delivers only the last event per ID within a quiet period.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*time.Timer)}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if t, ok := d.pending[e.ID]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.pending[e.ID] == timer {
			delete(d.pending, e.ID)
		}
		stopped := d.stopped
		d.mu.Unlock()

		if !stopped {
			emit(e)
		}
	})
	d.pending[e.ID] = timer
}

// stop drops pending events and waits for in-flight deliveries.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.pending {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
