// Package streamdir resolves and watches the on-disk directory holding
// stream files (spec.md §3/§4.A).
package streamdir

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// EnvOverride is the environment variable that overrides the compiled
// default streams directory (spec.md §10 "Environment").
const EnvOverride = "LIBNETCONF_STREAMS"

// DefaultDir is used when EnvOverride is unset.
const DefaultDir = "/var/lib/libnetconf/streams"

const dirMode = 0o777

// Resolve returns the configured streams directory, creating it with mode
// 0777 if it does not yet exist. It fails if the path exists but is not a
// directory, or is not both readable and writable.
func Resolve() (string, error) {
	dir := os.Getenv(EnvOverride)
	if dir == "" {
		dir = DefaultDir
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, dirMode); mkErr != nil {
			return "", nseerrors.NewIOError("streamdir.mkdir", false, mkErr)
		}
		return dir, nil
	}
	if err != nil {
		return "", nseerrors.NewIOError("streamdir.stat", false, err)
	}
	if !info.IsDir() {
		return "", nseerrors.NewIOError("streamdir.resolve", false, fmt.Errorf("%s exists and is not a directory", dir))
	}
	if probeErr := probeAccess(dir); probeErr != nil {
		return "", nseerrors.NewIOError("streamdir.access", false, probeErr)
	}
	return dir, nil
}

// probeAccess confirms dir is both readable and writable by the current
// process, by creating and removing a throwaway file.
func probeAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".nse-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Watch watches dir for newly created stream files and emits their
// basenames (without extension) on the returned channel. Grounded on
// linkerd's FsCredsWatcher: an fsnotify.Watcher driven from a
// context-cancellable goroutine, with the watcher closed on exit.
func Watch(ctx context.Context, dir string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nseerrors.NewIOError("streamdir.watch.new", false, err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, nseerrors.NewIOError("streamdir.watch.add", false, err)
	}

	out := make(chan string, 16)
	go func() {
		defer w.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) {
					continue
				}
				if name, ok := eventsBasename(ev.Name); ok {
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// eventsBasename reports whether path names a "<name>.events" file and, if
// so, returns its stream name.
func eventsBasename(path string) (string, bool) {
	const suffix = ".events"
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if !strings.HasSuffix(base, suffix) || len(base) == len(suffix) {
		return "", false
	}
	return strings.TrimSuffix(base, suffix), true
}
