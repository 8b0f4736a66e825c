// Package watch notices when the vault container file changes on disk
// behind the running process, e.g. after a restore or an external sync.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const defaultDebounce = 200 * time.Millisecond

// Event signals that the container file was written or replaced.
type Event struct {
	Path string
	At   time.Time
}

// Watcher observes one container file. The parent directory is watched, not
// the file itself: atomic flushes replace the file by rename, which would
// silently detach a file-level watch.
type Watcher struct {
	path     string
	log      logging.Logger
	debounce time.Duration

	events chan Event
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New creates a watcher for the container at path. A non-positive debounce
// uses the default.
func New(path string, log logging.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs %s: %w", path, err)
	}
	return &Watcher{
		path:     abs,
		log:      log.With("component", "watch"),
		debounce: debounce,
		events:   make(chan Event, 1),
	}, nil
}

// Events delivers debounced change notifications. The channel is closed
// when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. It runs until Close is called or ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.events)
		w.run(runCtx)
	}()
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		if w.fsw != nil {
			err = w.fsw.Close()
		}
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug(ctx, "container changed on disk", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			select {
			case w.events <- Event{Path: w.path, At: time.Now()}:
			default:
				// A notification is already queued; one is enough.
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error(ctx, "watcher error", "error", err)
		}
	}
}
