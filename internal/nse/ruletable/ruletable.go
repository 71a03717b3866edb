// Package ruletable implements the memory-mapped event-name allowlist of
// spec.md §3/§4.C: a fixed-size region treated as newline-delimited tokens,
// grown once at creation and only ever appended to afterward.
//
// This package takes no lock of its own, unlike internal/nse/streamfile,
// which takes a file lock per record: callers, not this package, serialize
// concurrent appends (the registry holds its mutex across Allow).
package ruletable

import (
	"bytes"
	"errors"
	"os"

	"golang.org/x/sys/unix"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// RulesBytes is the fixed size of a stream's rule table region (spec.md §3).
const RulesBytes = 1 << 20 // 1 MiB

const fileMode = 0o777

// ErrCapacityExceeded is returned by Allow when the append would cross the
// region boundary (spec.md §9 Open Question: surfaced rather than dropped).
var ErrCapacityExceeded = errors.New("ruletable: capacity exceeded")

// Table is a memory-mapped newline-delimited allowlist for one stream.
type Table struct {
	f    *os.File
	data []byte
}

// Open opens (creating if absent) path, grows it to RulesBytes, and maps it
// read+write, shared.
func Open(path string) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		return nil, nseerrors.NewIOError("ruletable.open", false, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nseerrors.NewIOError("ruletable.stat", false, err)
	}
	if info.Size() < RulesBytes {
		if _, err := f.WriteAt([]byte{0}, RulesBytes-1); err != nil {
			f.Close()
			return nil, nseerrors.NewIOError("ruletable.grow", false, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, RulesBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nseerrors.NewMapError("ruletable.mmap", err)
	}

	return &Table{f: f, data: data}, nil
}

// Close unmaps the region and closes the backing file descriptor.
func (t *Table) Close() error {
	var err error
	if uerr := unix.Munmap(t.data); uerr != nil {
		err = nseerrors.NewMapError("ruletable.munmap", uerr)
	}
	if cerr := t.f.Close(); cerr != nil && err == nil {
		err = nseerrors.NewIOError("ruletable.close", false, cerr)
	}
	return err
}

// Contains reports whether name appears as an exact newline-delimited token.
func (t *Table) Contains(name string) bool {
	tok := []byte(name)
	region := t.data
	start := 0
	for start < len(region) {
		end := bytes.IndexByte(region[start:], '\n')
		if end < 0 {
			// Remainder is unwritten (zero) padding; no more tokens.
			return false
		}
		line := region[start : start+end]
		if len(line) == 0 {
			// An empty line (two adjacent newlines) ends the scan;
			// tokens after it are not searched.
			return false
		}
		if bytes.Equal(line, tok) {
			return true
		}
		start += end + 1
	}
	return false
}

// Allow appends name followed by a newline at the first byte after the last
// written newline, unless name is already present, in which case it leaves
// the table untouched (allow is idempotent). Callers MUST serialize
// concurrent Allow calls on the same Table themselves (spec.md §4.C:
// "callers MUST hold the registry mutex across allow").
func (t *Table) Allow(name string) error {
	if t.Contains(name) {
		return nil
	}
	offset := t.appendOffset()
	entry := append([]byte(name), '\n')
	if offset+len(entry) > len(t.data) {
		return ErrCapacityExceeded
	}
	copy(t.data[offset:], entry)
	return nil
}

// appendOffset finds the first byte after the last newline, or 0 if the
// region is empty.
func (t *Table) appendOffset() int {
	return bytes.LastIndexByte(t.data, '\n') + 1
}
