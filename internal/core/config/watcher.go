package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/logging"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk. Invalid
// files are reported and the previous config stays in effect.
type Watcher struct {
	path     string
	dataDir  string
	onReload func(*Config)
	log      zerolog.Logger

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	debounce *time.Timer

	wg sync.WaitGroup
}

// Watch starts watching configPath. The parent directory is watched so
// editors that replace the file on save are picked up. onReload runs on a
// timer goroutine with the freshly loaded config. The watcher stops when
// ctx is done or Close is called.
func Watch(ctx context.Context, configPath, dataDir string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(configPath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(configPath), err)
	}

	w := &Watcher{
		path:     filepath.Clean(configPath),
		dataDir:  dataDir,
		onReload: onReload,
		log:      logging.Component("config"),
		watcher:  fw,
	}

	w.wg.Add(1)
	go w.run(ctx)

	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
	w.mu.Unlock()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path, w.dataDir)
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous config")
		return
	}
	w.log.Info().Str("path", w.path).Msg("config reloaded")
	w.onReload(cfg)
}
