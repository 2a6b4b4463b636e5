// Package watcher monitors match directories and signals when the rule set
// should be rebuilt.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event signals that the match files have changed and settled.
type Event struct {
	Paths     []string
	Timestamp time.Time
}

// Watcher monitors match directories for changes to .yml/.yaml files.
// Edits are debounced so that a burst of writes (editor save, rsync of a
// whole directory) produces a single reload event.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dirs      []string
	debounce  time.Duration

	// Changed files since the last reload event.
	pending   map[string]struct{}
	lastEdit  time.Time
	pendingMu sync.Mutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over the given match directories.
func New(dirs []string, debounceMs int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounceMs <= 0 {
		debounceMs = 500
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		dirs:      dirs,
		debounce:  time.Duration(debounceMs) * time.Millisecond,
		pending:   make(map[string]struct{}),
		events:    make(chan Event, 8),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}

	return w, nil
}

// Events returns the channel of reload events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching all configured directories, including existing
// subdirectories. Missing directories are skipped; they are picked up on
// the next Start.
func (w *Watcher) Start() error {
	for _, dir := range w.dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return err
		}

		if _, err := os.Stat(absDir); err != nil {
			continue
		}

		err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return w.fsWatcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func isMatchFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// New subdirectories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsWatcher.Add(event.Name); err != nil {
						select {
						case w.errors <- err:
						default:
						}
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if !isMatchFile(event.Name) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = struct{}{}
			w.lastEdit = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// debounceLoop emits a reload event once the pending edits have settled.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	interval := w.debounce / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.flushIfSettled(now)
		}
	}
}

// flushIfSettled emits a single event covering all pending edits once no new
// edit has arrived for the debounce duration.
func (w *Watcher) flushIfSettled(now time.Time) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || now.Sub(w.lastEdit) < w.debounce {
		w.pendingMu.Unlock()
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	pending := w.pending
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	event := Event{Paths: paths, Timestamp: now}

	select {
	case w.events <- event:
	default:
		// Channel full; put the edits back and retry on the next tick.
		w.pendingMu.Lock()
		for p := range pending {
			w.pending[p] = struct{}{}
		}
		w.pendingMu.Unlock()
	}
}

// WatchedDirs returns the list of directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.dirs
}

// PendingEdits returns the number of changed files awaiting a reload event.
func (w *Watcher) PendingEdits() int {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return len(w.pending)
}
