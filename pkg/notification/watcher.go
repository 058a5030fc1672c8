// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package notification

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/local"
)

// Watcher emits notifications for files changing under a local backend
// root. The first path element below the root is the bucket and the rest is
// the key, matching the layout of the local object source.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan common.Notification
	logger  adapters.Logger

	mu       sync.Mutex
	watching map[string]bool
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherConfig contains configuration options for Watcher.
type WatcherConfig struct {
	Root        string
	Logger      adapters.Logger
	EventBuffer int // Default: 100
}

// NewWatcher watches cfg.Root and every directory below it.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, ErrRootNotSet
	}
	if cfg.Logger == nil {
		cfg.Logger = adapters.NewNoOpLogger()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 100
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatcherError{Op: "create", Path: cfg.Root, Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		root:     filepath.Clean(cfg.Root),
		watcher:  fw,
		events:   make(chan common.Notification, cfg.EventBuffer),
		logger:   cfg.Logger,
		watching: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}

	if _, err := w.addTree(w.root); err != nil {
		cancel()
		_ = fw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Events returns the notification channel. It is closed by Stop.
func (w *Watcher) Events() <-chan common.Notification {
	return w.events
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)

	w.logger.Info(w.ctx, "Filesystem watcher stopped",
		adapters.Field{Key: "root", Value: w.root})
	if err != nil {
		return &WatcherError{Op: "stop", Path: w.root, Err: err}
	}
	return nil
}

// addTree watches root and every directory below it. It returns the regular
// files found during the walk.
func (w *Watcher) addTree(root string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil, &WatcherError{Op: "watch", Path: root, Err: ErrWatcherStopped}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return &WatcherError{Op: "walk", Path: path, Err: err}
			}
			w.logger.Warn(w.ctx, "Error walking path",
				adapters.Field{Key: "path", Value: path},
				adapters.Field{Key: "error", Value: err.Error()})
			return nil
		}
		if !d.IsDir() {
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		}
		if w.watching[path] {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			if path == root {
				return &WatcherError{Op: "watch", Path: path, Err: err}
			}
			w.logger.Warn(w.ctx, "Failed to watch directory",
				adapters.Field{Key: "path", Value: path},
				adapters.Field{Key: "error", Value: err.Error()})
			return nil
		}
		w.watching[path] = true
		w.logger.Debug(w.ctx, "Started watching directory",
			adapters.Field{Key: "path", Value: path})
		return nil
	})
	return files, err
}

// addNewTree watches a directory created after startup and reports the
// files written into it before its watch was registered.
func (w *Watcher) addNewTree(root string) {
	files, err := w.addTree(root)
	if err != nil {
		w.logger.Warn(w.ctx, "Failed to watch new directory",
			adapters.Field{Key: "path", Value: root},
			adapters.Field{Key: "error", Value: err.Error()})
	}
	for _, path := range files {
		if shouldIgnore(path) {
			continue
		}
		if n, ok := w.created(path); ok {
			w.emit(n)
		}
	}
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(w.ctx, "Filesystem watcher error",
				adapters.Field{Key: "error", Value: err.Error()})

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if shouldIgnore(event.Name) {
		return
	}

	n, ok := w.convert(event)
	if !ok {
		return
	}
	w.emit(n)
}

func (w *Watcher) emit(n common.Notification) {
	select {
	case w.events <- n:
		w.logger.Debug(w.ctx, "Notification emitted",
			adapters.Field{Key: "bucket", Value: n.Bucket},
			adapters.Field{Key: "key", Value: n.Key},
			adapters.Field{Key: "type", Value: string(n.Type)})
	case <-w.ctx.Done():
	default:
		w.logger.Warn(w.ctx, "Event channel full, dropping notification",
			adapters.Field{Key: "bucket", Value: n.Bucket},
			adapters.Field{Key: "key", Value: n.Key})
	}
}

func (w *Watcher) convert(event fsnotify.Event) (common.Notification, bool) {
	bucket, key, ok := w.split(event.Name)

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return common.Notification{}, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				w.addNewTree(event.Name)
			}
			return common.Notification{}, false
		}
		return w.created(event.Name)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.mu.Lock()
		wasDir := w.watching[event.Name]
		delete(w.watching, event.Name)
		w.mu.Unlock()
		if wasDir || !ok {
			return common.Notification{}, false
		}
		return common.Notification{Type: common.ObjectRemoved, Bucket: bucket, Key: key}, true
	}

	return common.Notification{}, false
}

// created builds an ObjectCreated notification for the file at path.
func (w *Watcher) created(path string) (common.Notification, bool) {
	bucket, key, ok := w.split(path)
	if !ok {
		return common.Notification{}, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return common.Notification{}, false
	}
	size := info.Size()
	return common.Notification{Type: common.ObjectCreated, Bucket: bucket, Key: key, Size: &size}, true
}

// split maps a path below the root to its bucket and key.
func (w *Watcher) split(path string) (bucket, key string, ok bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", false
	}
	bucket, key, ok = strings.Cut(filepath.ToSlash(rel), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, local.TempSuffix) ||
		strings.HasSuffix(base, "~")
}
