package emu

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"cm3mpu/emu/log"
)

// WatchLayout loads the layout at path and calls fn with it, then again each
// time the file is written or replaced, until ctx is done. Invalid layouts
// are passed to onErr and otherwise ignored; the previous layout stays in
// effect. fn errors stop the watch.
func WatchLayout(ctx context.Context, path string, fn func(*Layout) error, onErr func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory rather than the file, editors often replace the
	// file instead of writing it in place.
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload := func() error {
		l, err := LoadLayout(path)
		if err != nil {
			onErr(err)
			return nil
		}
		return fn(l)
	}

	if err := reload(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.ModLayout.DebugZ("layout changed").
				String("path", path).
				String("op", ev.Op.String()).
				End()
			if err := reload(); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onErr(err)
		}
	}
}
