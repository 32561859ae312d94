package feed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/loadboard/pkg/logger"
)

// Invalidator is implemented by Cache.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a cache when a feed file changes on disk. It watches
// the parent directory so editors that replace the file are still seen.
type Watcher struct {
	path     string
	target   Invalidator
	onChange func(ctx context.Context)
	log      logger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for path. onChange may be nil.
func NewWatcher(path string, target Invalidator, onChange func(ctx context.Context), log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Get().Named("feed.watcher")
	}
	return &Watcher{path: filepath.Clean(path), target: target, onChange: onChange, log: log}
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return
			case evt, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != w.path {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				w.log.Debug(ctx, "feed file changed", logger.String("path", w.path), logger.String("op", evt.Op.String()))
				w.target.Invalidate()
				if w.onChange != nil {
					w.onChange(ctx)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.log.Warn(ctx, "feed watcher error", logger.Error(err))
			}
		}
	}()
	return nil
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()
	if fw == nil {
		return
	}
	_ = fw.Close()
	<-done
}
