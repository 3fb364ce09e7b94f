package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"caprun/internal/logging"
)

// Watcher hot-reloads a config file, pushing each successfully parsed
// version to the callback. Parse failures keep the previous config and are
// logged; the watcher keeps running.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching path. onChange runs on the watcher goroutine for
// every valid reload.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory: editors typically replace the file, which drops
	// a watch placed on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}

	w := &Watcher{path: path, fsw: fsw, done: make(chan struct{})}
	go w.loop(onChange)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(onChange func(Config)) {
	defer close(w.done)
	log := logging.Get(logging.CategoryConfig)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				log.Warnf("config reload failed, keeping previous: %v", err)
				continue
			}
			log.Infof("config reloaded from %s", w.path)
			onChange(cfg)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher: %v", err)
		}
	}
}
