package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/multidraw"
)

// Watch calls fn with the reloaded settings each time the file at path is
// written or recreated, until ctx is done. Edits that do not load are
// logged and skipped. The directory is watched so that editors replacing
// the file by rename keep being followed.
//
// Strategy changes take effect only for Emulators created afterwards;
// bound entry points keep their strategy.
func Watch(ctx context.Context, path string, fn func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs || !(e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Create)) {
				continue
			}
			s, err := Load(abs)
			if err != nil {
				multidraw.Logger().Warn("config: ignoring settings edit", "path", abs, "err", err)
				continue
			}
			fn(s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			multidraw.Logger().Error("config: watcher error", "path", abs, "err", err)
		}
	}
}
