// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package watch calls functions when individual files are created, changed
// or removed.
package watch

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"go.astrophena.name/pctasks/logger"
)

// ErrClosed is returned by [Watcher.Watch] after [Watcher.Close].
var ErrClosed = errors.New("watcher is closed")

// Watcher watches files for changes.
//
// Files are watched through their parent directories, so a file that
// doesn't exist yet can be watched, and editors replacing a file by
// renaming over it are noticed.
type Watcher struct {
	log *logger.Logger
	fsw *fsnotify.Watcher

	mu        sync.Mutex
	closed    bool
	dirs      map[string]bool
	callbacks map[string][]func() // by cleaned file path

	done chan struct{}
}

// New starts a new Watcher.
func New(log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		log:       log,
		fsw:       fsw,
		dirs:      make(map[string]bool),
		callbacks: make(map[string][]func()),
		done:      make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch calls fn every time the file at path is created, written, removed
// or renamed. The parent directory of path must exist.
//
// fn is called from the Watcher's goroutine and must not block.
func (w *Watcher) Watch(path string, fn func()) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.callbacks[path] = append(w.callbacks[path], fn)
	w.log.Debug("watching file", "path", path)
	return nil
}

// Close stops the Watcher. No callbacks are called after Close returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "err", err)
		}
	}
}

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&relevantOps == 0 {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	fns := w.callbacks[path]
	w.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	w.log.Debug("watched file changed", "path", path, "op", ev.Op.String())
	for _, fn := range fns {
		fn()
	}
}
