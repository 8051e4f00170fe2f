/*
Copyright 2025 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package schema

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/druidplan/druidplan/go/log"
)

// Watcher reloads a catalog file into a Registry whenever it changes on
// disk. A file that fails to parse is logged and the previous snapshot
// stays current.
type Watcher struct {
	fs       afero.Fs
	path     string
	registry *Registry

	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	subscribers []chan<- struct{}
	wg          sync.WaitGroup
}

// NewWatcher returns a watcher for path. Call Start to begin watching.
func NewWatcher(fs afero.Fs, path string, registry *Registry) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{fs: fs, path: abs, registry: registry}, nil
}

// Notify registers ch to receive a value after every successful reload.
// Sends never block. Notify must be called before Start.
func (w *Watcher) Notify(ch chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		panic("cannot Notify after starting to watch a catalog")
	}
	w.subscribers = append(w.subscribers, ch)
}

// Start watches the directory holding the catalog file, so that editors
// replacing the file are noticed too.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return errors.New("duplicate watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(fsw)
	}()
	return nil
}

// Close stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warningf("catalog watcher for %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) reload() {
	snap, err := LoadFile(w.fs, w.path)
	if err != nil {
		log.Warningf("keeping previous catalog, reload of %s failed: %v", w.path, err)
		return
	}
	w.registry.Update(snap)
	log.InfoS("catalog reloaded", "path", w.path, "version", snap.Version)

	for _, ch := range w.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
