package emu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.toml")
	require.NoError(t, os.WriteFile(path, []byte(testLayout), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	layouts := make(chan *Layout, 4)
	errs := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchLayout(ctx, path,
			func(l *Layout) error { layouts <- l; return nil },
			func(err error) { errs <- err },
		)
	}()

	next := func() *Layout {
		t.Helper()
		select {
		case l := <-layouts:
			return l
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for layout")
		}
		return nil
	}

	// Initial load.
	require.Len(t, next().Resolved(), 3)

	// An invalid layout is reported and skipped.
	require.NoError(t, os.WriteFile(path, []byte("format = \"9.0\"\n"), 0644))
	for {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrFormatVersion) {
				continue
			}
		case l := <-layouts:
			t.Fatalf("invalid layout passed on: %+v", l)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for error")
		}
		break
	}

	const single = "format = \"1.0\"\n[[region]]\nindex = 4\nstart = 0\nsize = 64\n"
	require.NoError(t, os.WriteFile(path, []byte(single), 0644))
	for {
		// Writes may be split in several events, some reading a partial
		// file: skip them.
		select {
		case <-errs:
			continue
		case l := <-layouts:
			if len(l.Resolved()) != 1 {
				continue
			}
			require.EqualValues(t, 4, l.Resolved()[0].Index)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for reload")
		}
		break
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher didn't stop")
	}
}

func TestWatchLayoutMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodir", "layout.toml")
	err := WatchLayout(context.Background(), path,
		func(*Layout) error { return nil },
		func(error) {},
	)
	require.Error(t, err)
}
