package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"usd-scene-translator/internal/ctxlog"
)

// DefaultSettle is how long a watched file must stay quiet before it is
// translated again.
const DefaultSettle = 200 * time.Millisecond

// Watch re-translates an input each time it is written or recreated, until
// ctx is cancelled. Events are coalesced per file over settle so a burst of
// writes produces one translation. Every translation is passed to onResult
// from the watching goroutine.
func Watch(ctx context.Context, cfg Config, inputs []string, settle time.Duration, onResult func(Result)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("batch: watch: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so the parent directories are watched
	// rather than the files themselves.
	wanted := make(map[string]bool, len(inputs))
	dirs := make(map[string]bool)
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("batch: watch %s: %w", in, err)
		}
		wanted[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("batch: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	logger := ctxlog.FromContext(ctx)
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !wanted[name] {
				continue
			}
			pending[name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error.", "error", err)
		case now := <-ticker.C:
			for name, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, name)
				onResult(translateFile(ctx, cfg, name))
			}
		}
	}
}
