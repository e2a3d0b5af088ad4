package server

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors often write a file in several steps; wait for them to settle.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the document each time its file changes, until ctx is done.
// Only local documents can be watched.
func (s *Server) Watch(ctx context.Context) error {
	path := s.cfg.Document.Path
	if strings.Contains(path, "://") {
		if !strings.HasPrefix(path, "file://") {
			return fmt.Errorf("cannot watch %s: not a local file", path)
		}
		path = strings.TrimPrefix(path, "file://")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// The directory, not the file: a rename-over replaces the watched inode.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	log.Printf("Watching %s for changes", abs)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload = time.After(watchDebounce)

		case <-reload:
			reload = nil
			if _, err := s.Reload(ctx); err != nil {
				log.Printf("Warning: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
