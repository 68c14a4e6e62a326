// Package watcher monitors the media root and triggers a single-file scan
// when a new video lands in the library.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Writes settle for this long before the scan fires, since a file being
// copied in emits a stream of events until it is complete.
const settleDelay = 5 * time.Second

// OnNewFile is called once per settled file.
type OnNewFile func(path string)

// Watcher follows the media root recursively. Newly created directories are
// added to the watch on the fly.
type Watcher struct {
	root     string
	callback OnNewFile
	watcher  *fsnotify.Watcher
	log      *zap.SugaredLogger

	mu       sync.Mutex
	debounce map[string]*time.Timer
	stop     chan struct{}
}

func New(root string, cb OnNewFile, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		callback: cb,
		watcher:  fw,
		log:      log,
		debounce: make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.eventLoop()
	w.log.Infow("filesystem watcher started", "root", w.root)
	return nil
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				w.log.Warnw("cannot watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
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
			w.log.Warnw("watch error", "error", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	// New directories join the watch so files landing inside are seen.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) {
			w.addRecursive(event.Name)
		}
		return
	}

	if !isVideoExtension(strings.ToLower(filepath.Ext(event.Name))) {
		return
	}

	// Restart the settle timer on every event for the path; the callback
	// fires once the file has been quiet long enough.
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[event.Name]; ok {
		timer.Stop()
	}
	name := event.Name
	w.debounce[name] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.debounce, name)
		w.mu.Unlock()

		if _, err := os.Stat(name); err != nil {
			return // vanished before it settled
		}
		w.log.Infow("new media file detected", "path", name)
		w.callback(name)
	})
}

func isVideoExtension(ext string) bool {
	switch ext {
	case ".mkv", ".mp4", ".avi", ".m4v", ".mov", ".ts", ".m2ts", ".wmv", ".flv", ".webm":
		return true
	}
	return false
}
