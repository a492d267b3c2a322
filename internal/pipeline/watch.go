package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/euforicio/blogmd/internal/config"
)

// rebuildDelay coalesces bursts of filesystem events (editors write
// several times per save) into a single rebuild.
const rebuildDelay = 250 * time.Millisecond

// watch rebuilds the site whenever the content store changes while the
// preview server is running. A failing rebuild is logged and leaves the
// previous artifact tree in place; the run's exit status was already
// determined before serving started.
func (r *Runner) watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Error("create watcher failed", slog.Any("err", err))
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			r.logger.Warn("close watcher failed", slog.Any("err", err))
		}
	}()

	for _, dir := range r.watchRoots() {
		if err := watchRecursive(watcher, dir); err != nil {
			r.logger.Warn("failed to watch directory", slog.String("dir", dir), slog.Any("err", err))
		}
	}

	r.logger.Info("watching content store", slog.String("root", r.cfg.SiteDir))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name == "" {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchRecursive(watcher, event.Name)
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			r.logger.Debug("fsnotify event",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(rebuildDelay)
			} else {
				timer.Reset(rebuildDelay)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("watcher error", slog.Any("err", err))

		case <-pending:
			pending = nil
			r.rebuild(ctx)

		case <-ctx.Done():
			return
		}
	}
}

// watchRoots returns the content directories a rebuild depends on.
func (r *Runner) watchRoots() []string {
	roots := []string{filepath.Join(r.cfg.SiteDir, config.PostsDirName)}
	if r.cfg.IncludeDrafts {
		roots = append(roots, filepath.Join(r.cfg.SiteDir, config.DraftsDirName))
	}
	if info, err := os.Stat(filepath.Join(r.cfg.SiteDir, "images")); err == nil && info.IsDir() {
		roots = append(roots, filepath.Join(r.cfg.SiteDir, "images"))
	}
	return roots
}

func (r *Runner) rebuild(ctx context.Context) {
	start := time.Now()
	if err := r.render(ctx); err != nil {
		r.logger.Error("rebuild failed", slog.Any("err", err))
		return
	}
	if err := r.Validate(ctx); err != nil {
		r.logger.Warn("rebuilt site has defects", slog.Any("err", err))
		return
	}
	r.logger.Info("site rebuilt", slog.Duration("elapsed", time.Since(start)))
}

func watchRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
