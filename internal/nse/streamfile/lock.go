package streamfile

import (
	"os"

	"golang.org/x/sys/unix"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// WithLock acquires the whole-file advisory range lock on f, runs fn, and
// releases the lock on every exit path via defer — the scoped-acquisition
// wrapper called for in the §9 design note ("keep as-is for cross-process
// correctness; wrap in a scoped acquisition that guarantees release").
func WithLock(f *os.File, fn func() error) error {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return nseerrors.NewLockError("streamfile.lock", err)
	}
	defer unix.Flock(fd, unix.LOCK_UN)
	return fn()
}
