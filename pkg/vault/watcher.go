package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a batch is delivered.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports note changes of a vault in debounced batches.
type Watcher struct {
	store *Store
	fw    *fsnotify.Watcher
	delay time.Duration

	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewWatcher creates a watcher for store. A non-positive delay uses DefaultDebounce.
func NewWatcher(store *Store, delay time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Watcher{
		store: store,
		fw:    fw,
		delay: delay,
		done:  make(chan struct{}),
	}, nil
}

// Watch starts monitoring the vault recursively.
//
// onChange receives the IDs of the notes created, written, removed or renamed
// during a burst of activity, sorted. A nil batch means a directory changed
// and the whole vault should be rescanned. onChange runs on the watcher
// goroutine; batches are never delivered concurrently.
func (w *Watcher) Watch(onChange func(ids []string)) error {
	if err := w.addTree(w.store.Root()); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop(onChange)
	return nil
}

// Stop ends monitoring and waits for the pending callback to return.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	w.mu.Unlock()

	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(onChange func(ids []string)) {
	defer w.wg.Done()

	timer := time.NewTimer(w.delay)
	timer.Stop()

	pending := make(map[string]struct{})
	rescan := false

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if w.handle(event, pending, &rescan) {
				timer.Reset(w.delay)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.store.log.Warn("watch error", "err", err)

		case <-timer.C:
			if rescan {
				onChange(nil)
			} else if len(pending) > 0 {
				ids := make([]string, 0, len(pending))
				for id := range pending {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				onChange(ids)
			}
			clear(pending)
			rescan = false

		case <-w.done:
			return
		}
	}
}

// handle records event and reports whether it is relevant.
func (w *Watcher) handle(event fsnotify.Event, pending map[string]struct{}, rescan *bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	id, err := w.store.ID(event.Name)
	if err != nil || ignoredPath(id) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.store.log.Warn("failed to watch directory", "path", event.Name, "err", err)
			}
			*rescan = true
			return true
		}
	}

	if !IsNote(id) {
		// A removed or renamed directory takes its notes with it.
		if filepath.Ext(id) == "" && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
			*rescan = true
			return true
		}
		return false
	}
	w.store.log.Debug("note changed", "id", id, "op", event.Op.String())
	pending[id] = struct{}{}
	return true
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.store.Root() && ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// ignoredPath reports whether a note ID lies inside an ignored directory.
func ignoredPath(id string) bool {
	for dir := filepath.Dir(filepath.FromSlash(id)); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if ignored(filepath.Base(dir)) {
			return true
		}
	}
	return ignored(filepath.Base(id)) && !IsNote(id)
}
