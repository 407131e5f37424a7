package catalog

import (
	"errors"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher registers tool files dropped into a directory while the process is
// running. Registration stays append-only: a file redefining an existing tool
// name is logged and skipped, never applied as a mutation.
type Watcher struct {
	catalog *Catalog
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching dir for new or rewritten *.yaml tool files.
func (c *Catalog) Watch(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		catalog: c,
		dir:     dir,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if err := w.catalog.LoadFile(event.Name); err != nil {
				var dup *DuplicateToolError
				if errors.As(err, &dup) {
					w.catalog.debugLog("[catalog] watch: %s redefines %s, ignored", event.Name, dup.Name)
					continue
				}
				log.Printf("[catalog] watch: failed to load %s: %v", event.Name, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[catalog] watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
