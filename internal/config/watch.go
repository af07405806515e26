package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cmdgate/cmdgate/internal/logging"
)

// debounceDelay coalesces the burst of events editors emit on save.
const debounceDelay = 200 * time.Millisecond

// Watcher hot-reloads the configuration file layer. A file that fails
// to load or validate is logged and ignored; the live snapshot keeps
// serving.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	path    string
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher watches the store's config file. Returns (nil, nil) when
// no file layer is configured.
func NewWatcher(store *Store) (*Watcher, error) {
	path := store.WatchPath()
	if path == "" {
		return nil, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file, which
	// drops a watch held on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &Watcher{
		store:   store,
		watcher: fw,
		path:    path,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	log := logging.With("config")

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				fire = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}
		case <-fire:
			debounce, fire = nil, nil
			if err := w.store.Reload(); err != nil {
				log.Error().Err(err).Str("path", w.path).Msg("config reload failed, keeping current snapshot")
				continue
			}
			log.Info().Str("path", w.path).Uint64("version", w.store.Snapshot().Version).Msg("configuration reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
