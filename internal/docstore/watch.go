package docstore

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Watch reloads the cache whenever another process writes the workspace database.
// It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := s.st.Ensure(); err != nil {
		return err
	}
	if err := w.Add(filepath.Clean(s.st.Dir)); err != nil {
		return err
	}

	dbName := filepath.Base(s.st.DBPath())
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// The main file and its WAL change on commit; -shm also changes on reads.
			name := filepath.Base(event.Name)
			if name != dbName && name != dbName+"-wal" {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.logger.Printf("docstore: reload after change: %v", err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Printf("docstore: watch: %v", err)
		}
	}
}
