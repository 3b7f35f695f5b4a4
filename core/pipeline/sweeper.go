package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/iyedlimem/Flenci-server-side/logger"

	"github.com/fsnotify/fsnotify"
)

// Sweeper reaps staging files that outlive their jobs. Jobs delete their own
// temporary files on every terminal state; the sweeper is the safety net for
// files orphaned by a crash or an unclean shutdown.
type Sweeper struct {
	dir     string
	ttl     time.Duration
	watcher *fsnotify.Watcher
}

// NewSweeper creates a sweeper over the staging directory. The directory is
// created when missing so the watcher has something to attach to.
func NewSweeper(dir string, ttl time.Duration) (*Sweeper, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	return &Sweeper{dir: dir, ttl: ttl, watcher: watcher}, nil
}

// Run watches the staging directory and periodically deletes files older
// than the TTL. Blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	defer s.watcher.Close()

	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	logger.Info("staging sweeper started",
		logger.String("dir", s.dir),
		logger.Duration("ttl", s.ttl))

	for {
		select {
		case <-ctx.Done():
			logger.Info("staging sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			// New files only mark activity; age is what decides deletion.
			if event.Op&fsnotify.Create != 0 {
				logger.Debug("staging file created", logger.String("path", event.Name))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("staging watcher error", logger.ErrorField(err))
		}
	}
}

func (s *Sweeper) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Warn("staging sweep failed", logger.ErrorField(err))
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to reap staging file",
				logger.String("path", path),
				logger.ErrorField(err))
			continue
		}
		logger.Info("reaped orphaned staging file", logger.String("path", path))
	}
}
