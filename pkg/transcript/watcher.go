package transcript

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is called after the watched file changes
type ChangeFunc func(ctx context.Context) error

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Path     string
	Debounce time.Duration
}

// Watcher reports changes to a single session file. Callbacks run on the
// goroutine calling Run, one at a time.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	debounce  time.Duration
	logger    zerolog.Logger
	closeOnce sync.Once
}

// NewWatcher creates a watcher for cfg.Path
func NewWatcher(logger zerolog.Logger, cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watch path cannot be empty")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the parent directory so editors that replace the file are seen too
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		watcher:  watcher,
		path:     path,
		debounce: cfg.Debounce,
		logger:   logger.With().Str("watch", path).Logger(),
	}, nil
}

// Run blocks until ctx is done, calling onChange once per settled burst
// of writes to the watched file. Errors from onChange are logged, not returned.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug().
					Str("op", event.Op.String()).
					Msg("Session file changed")
				timer.Reset(w.debounce)
				pending = timer.C
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("File watcher error")

		case <-pending:
			pending = nil
			if err := onChange(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to re-render transcript")
			}
		}
	}
}

// Close releases the underlying watcher
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
