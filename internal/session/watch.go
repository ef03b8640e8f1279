package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch rereads the open alignment log whenever it is rewritten, as happens
// when the alignment is run again. It watches the log's directory so that
// editors and tools that replace the file are noticed. Watch blocks until
// ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	path := s.LogPath()
	if path == "" {
		return ErrNoLogFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	s.logger.Debug("watching alignment log", "log", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			s.logger.Debug("alignment log changed", "log", abs, "op", ev.Op.String())
			if err := s.Reread(); err != nil {
				s.logger.Warn("reread failed", "log", abs, "error", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("log watcher error", "log", abs, "error", err)
		}
	}
}
