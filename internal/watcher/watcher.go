package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagetools-go/internal/catalog"
	"imagetools-go/internal/imageio"
	"imagetools-go/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled image, given by its file name inside the watched directory.
type Handler func(ctx context.Context, name string)

// Watcher monitors a directory for new or rewritten images.
type Watcher struct {
	dir      string
	exts     map[string]struct{}
	handler  Handler
	debounce time.Duration
	log      *logrus.Logger
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	ready    chan string
	done     chan struct{}
}

// New creates a watcher on dir. Watching starts immediately; events are handled once Run is called.
func New(dir string, extensions []string, handler Handler, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, imageio.NewError(imageio.KindPathNotFound, dir, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch folder %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		exts:     catalog.ExtensionSet(extensions),
		handler:  handler,
		debounce: DefaultDebounce,
		log:      log,
		watcher:  fsWatcher,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string),
		done:     make(chan struct{}),
	}, nil
}

// WithDebounce overrides DefaultDebounce.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run dispatches settled images to the handler, one at a time, until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.watcher.Close()
	defer func() {
		for _, t := range w.timers {
			t.Stop()
		}
	}()

	logger.WithOperation(w.log, "watch").WithField("directory", w.dir).Info("Watching folder")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.schedule(ctx, event)

		case name := <-w.ready:
			delete(w.timers, name)
			if _, err := os.Stat(filepath.Join(w.dir, name)); err != nil {
				w.log.Debugf("Skipping %s: %v", name, err)
				continue
			}
			w.handler(ctx, name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !catalog.IsImage(name, w.exts) {
		return
	}

	if timer, exists := w.timers[name]; exists {
		timer.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		select {
		case w.ready <- name:
		case <-ctx.Done():
		case <-w.done:
		}
	})
}
