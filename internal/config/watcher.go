package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"servicehost/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor emits for one save.
const DefaultDebounce = 250 * time.Millisecond

// FileWatcher monitors a single file and invokes a callback once per burst of
// write or create events.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	clock    clock.Clock
	debounce time.Duration

	mu       sync.Mutex
	running  bool
	pending  *clock.Timer
	stopChan chan struct{}
	done     chan struct{}
}

// NewFileWatcher creates a file watcher that calls onChange when the file is modified.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		clock:    clock.New(),
		debounce: DefaultDebounce,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for file changes. The parent directory is watched so
// that atomic replace-on-save is seen as a create.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.running = true

	log := logger.WithComponent("file-watcher")
	log.Info().Str("path", fw.path).Msg("Started watching file")

	go fw.watch()
	return nil
}

// Stop stops watching and waits for the watch loop to exit. A pending
// callback that has not fired yet is dropped.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	if fw.pending != nil {
		fw.pending.Stop()
		fw.pending = nil
	}
	fw.mu.Unlock()

	close(fw.stopChan)
	err := fw.watcher.Close()
	<-fw.done
	return err
}

// IsRunning returns whether the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) watch() {
	defer close(fw.done)

	log := logger.WithComponent("file-watcher")
	filename := filepath.Base(fw.path)

	for {
		select {
		case <-fw.stopChan:
			log.Info().Str("path", fw.path).Msg("File watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			log.Debug().
				Str("path", fw.path).
				Str("event", event.Op.String()).
				Msg("File changed")
			fw.schedule()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("File watcher error")
		}
	}
}

// schedule (re)arms the debounce timer.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return
	}
	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.pending = fw.clock.AfterFunc(fw.debounce, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	running := fw.running
	fw.pending = nil
	fw.mu.Unlock()

	if !running || fw.onChange == nil {
		return
	}

	log := logger.WithComponent("file-watcher")
	log.Info().Str("path", fw.path).Msg("File changed, reloading")
	fw.onChange()
}

// NewLoggingWatcher creates a watcher that loads logger.Config on file change.
func NewLoggingWatcher(path string, callback func(*logger.Config)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		log := logger.WithComponent("logging-watcher")
		lc, err := LoadLogging(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to reload logging configuration")
			return
		}
		if callback != nil {
			callback(lc)
		}
	})
}
