// Package watch triggers regeneration when the workbook changes on disk
// or on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "rehearsalcal/internal/log"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange after the watched file settles.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error
}

// New watches path. Editors and office suites often replace files by
// rename, so the parent directory is watched and events are filtered by
// name.
func New(path string, debounce time.Duration, onChange func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, onChange: onChange}
}

// Run blocks until ctx is canceled. OnChange runs on the Run goroutine,
// so runs never overlap; its errors are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	appLog.Info("watching workbook", "path", w.path, "debounce", w.debounce.String())

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			appLog.Info("watcher stopped", "path", w.path)
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !relevant(ev.Op) {
				continue
			}
			appLog.Debug("workbook event", "path", ev.Name, "op", ev.Op.String())
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
			timerC = timer.C

		case <-timerC:
			timerC = nil
			appLog.Info("workbook changed, regenerating", "path", w.path)
			if err := w.onChange(ctx); err != nil {
				appLog.Error("regeneration failed", err, "path", w.path)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			appLog.Error("watcher error", err, "path", w.path)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
