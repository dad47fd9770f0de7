package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileWatcher turns changes to scope files into TopicStorage events, the
// cross-process counterpart of a browser storage event. Publish is a no-op:
// the file write itself is the signal.
type FileWatcher struct {
	local   *Local
	watcher *fsnotify.Watcher
	files   map[string]string
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Notifier = (*FileWatcher)(nil)

// NewFileWatcher watches the given files; the map value is the Key reported in
// events for that file. Parent directories are watched so atomic renames are
// seen, and are created when missing.
func NewFileWatcher(files map[string]string, logger zerolog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &FileWatcher{
		local:   NewLocal(),
		watcher: watcher,
		files:   make(map[string]string, len(files)),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	dirs := make(map[string]struct{})
	for path, key := range files {
		clean := filepath.Clean(path)
		w.files[clean] = key
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			_ = watcher.Close()
			cancel()
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			cancel()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.watchLoop()

	logger.Debug().Int("watchedDirs", len(dirs)).Msg("started scope file watcher")
	return w, nil
}

func (w *FileWatcher) Subscribe(topic string, h Handler) func() {
	return w.local.Subscribe(topic, h)
}

func (w *FileWatcher) Publish(context.Context, Event) error {
	return nil
}

// Close stops the watch loop and releases the watcher.
func (w *FileWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *FileWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug().Msg("scope file watcher stopping")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *FileWatcher) handleFSEvent(event fsnotify.Event) {
	key, ok := w.files[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("scope file changed")
	_ = w.local.Publish(w.ctx, Event{Topic: TopicStorage, Key: key})
}
