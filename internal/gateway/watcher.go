package gateway

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fixter/internal/gateway/websocket"
	"fixter/pkg/logger"
)

const debounceDelay = 150 * time.Millisecond

// Publisher sends a message to websocket clients.
type Publisher interface {
	Publish(msg websocket.WSMessage)
}

// Watcher announces files written into the workspace directories, such as
// new extraction results, to every connected client.
type Watcher struct {
	watcher  *fsnotify.Watcher
	pub      Publisher
	paths    []string
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce map[string]*time.Timer
	mu       sync.Mutex
}

// NewWatcher creates a watcher over paths.
func NewWatcher(pub Publisher, paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		pub:      pub,
		paths:    paths,
		stopCh:   make(chan struct{}),
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start creates missing directories and begins watching.
func (w *Watcher) Start() error {
	for _, path := range w.paths {
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to create watched directory")
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleEvent(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

// handleEvent coalesces bursts of writes to one path into one message.
func (w *Watcher) handleEvent(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		w.pub.Publish(websocket.WSMessage{Type: websocket.TypeExtraction, Path: path})
		logger.Debug().Str("path", path).Msg("Announced workspace file")
	})
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		for _, timer := range w.debounce {
			timer.Stop()
		}
		w.mu.Unlock()

		_ = w.watcher.Close()
	})
}
