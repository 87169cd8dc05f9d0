package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/codegraph/pkg/logging"
)

// ChangeEvent represents a batch of changes to knowledge base files
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// dataFiles are the files written when a knowledge base is saved, for both
// storage backends
var dataFiles = map[string]bool{
	"components.json":    true,
	"relationships.json": true,
	"config.json":        true,
	"graph.db":           true,
	"graph.db-wal":       true,
}

// Relevant reports whether a change to path means the knowledge base was saved
func Relevant(path string) bool {
	return dataFiles[filepath.Base(path)]
}

// FileWatcher watches a knowledge base directory for saves made by other
// processes, e.g. an analyze run while the graph is being served
type FileWatcher struct {
	watcher *fsnotify.Watcher
	dataDir string
	events  chan ChangeEvent
}

// NewFileWatcher creates a new file system watcher for a knowledge base
func NewFileWatcher(dataDir string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		dataDir: dataDir,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching the data directory and its kb and config
// subdirectories. Events stop and the channel is closed when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	watched := 0
	for _, dir := range []string{fw.dataDir, filepath.Join(fw.dataDir, "kb"), filepath.Join(fw.dataDir, "config")} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.watcher.Close()
		return fmt.Errorf("no knowledge base directories to watch in %s", fw.dataDir)
	}

	logging.Info("watching knowledge base", "path", fw.dataDir, "directories", watched)

	go fw.processEvents(ctx)
	return nil
}

// processEvents batches relevant file system events that arrive close together
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	var paths []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !Relevant(event.Name) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logging.Trace("knowledge base file changed", "path", event.Name, "op", event.Op.String())
			paths = append(paths, event.Name)
			flushTimer.Reset(100 * time.Millisecond)

		case <-flushTimer.C:
			if len(paths) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
			paths = nil

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
