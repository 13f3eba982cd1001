package states

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "tripcard/internal/log"
)

// reloadDelay coalesces the burst of events an editor or an atomic
// write-then-rename produces into one reload.
const reloadDelay = 150 * time.Millisecond

// Watch reloads the store whenever its file is written, created or renamed
// into place, until ctx is cancelled. The parent directory is watched so
// replacement by rename is seen.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("states: create watcher: %w", err)
	}

	target := filepath.Clean(s.path)
	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("states: watch %s: %w", dir, err)
	}
	appLog.Info("watching states file", "path", target)

	go func() {
		defer watcher.Close()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		schedule := func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				if err := s.Reload(); err != nil {
					appLog.Warn("states reload failed", "path", target, "error", err)
				}
			})
		}
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				appLog.Warn("states watcher error", "error", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					schedule()
				}
			}
		}
	}()

	return nil
}
