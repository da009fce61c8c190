package scheduler

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"manifestboard/internal/logging"
)

// hintWatcher turns filesystem events on the shared documents into poll
// hints. Events are coalesced: at most one hint is pending at a time.
type hintWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	names   map[string]struct{}
	hints   chan struct{}
	done    chan struct{}
}

// newHintWatcher watches the directories holding paths. Directories are
// watched instead of files because atomic writes replace the file.
func newHintWatcher(logger *slog.Logger, paths ...string) (*hintWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	hw := &hintWatcher{
		watcher: w,
		logger:  logger,
		names:   make(map[string]struct{}, len(paths)),
		hints:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]struct{})
	for _, path := range paths {
		clean := filepath.Clean(path)
		hw.names[clean] = struct{}{}
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	added := 0
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			logger.Warn("cannot watch shared directory; relying on polling",
				logging.String("dir", dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_add_failed"),
				logging.String(logging.FieldErrorHint, "disable sync.watch on network filesystems without inotify support"),
			)
			continue
		}
		added++
	}
	if added == 0 {
		_ = w.Close()
		return nil, errNothingWatched
	}
	go hw.loop()
	return hw, nil
}

func (hw *hintWatcher) loop() {
	defer close(hw.done)
	for {
		select {
		case event, ok := <-hw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if _, watched := hw.names[filepath.Clean(event.Name)]; !watched {
				continue
			}
			select {
			case hw.hints <- struct{}{}:
			default:
			}
		case err, ok := <-hw.watcher.Errors:
			if !ok {
				return
			}
			hw.logger.Debug("watch error", logging.Error(err))
		}
	}
}

// Hints delivers a value when a watched document may have changed. A nil
// watcher returns a nil channel, which never fires in a select.
func (hw *hintWatcher) Hints() <-chan struct{} {
	if hw == nil {
		return nil
	}
	return hw.hints
}

func (hw *hintWatcher) Close() {
	if hw == nil {
		return
	}
	_ = hw.watcher.Close()
	<-hw.done
}
