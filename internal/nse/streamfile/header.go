// Package streamfile implements the on-disk stream file codec of spec.md
// §3/§4.B: a fixed header followed by length-prefixed event records,
// written directly through file descriptors with advisory range locking so
// independent server processes can append concurrently.
//
// Framing mirrors the teacher's FLV recorder (internal/rtmp/media.Recorder):
// a fixed header written once, then repeated tag-style records, each
// acquiring the whole-file advisory lock for the duration of the operation.
package streamfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// Magic identifies a stream file. Version's high byte fixes the producer's
// byte order; this implementation only accepts the matching (little-endian)
// order, per the §9 design note — a foreign order is reported as NotAStream
// rather than attempting a byte-swap.
const (
	Magic        = "NCSTREAM"
	Version      = uint16(0xFF01)
	fileMode     = 0o777
	headerFixed  = len(Magic) + 2 /*version*/ + 2 /*name_len*/
	descLenBytes = 2
	replayBytes  = 1
	createdBytes = 8
)

// Header is the fixed-layout preamble of a stream file (spec.md §3).
type Header struct {
	Name    string
	Desc    string
	Replay  bool
	Created int64 // epoch seconds
}

// WriteHeader truncates f to zero and writes the header, returning the byte
// offset at which the data region begins. Mirrors Recorder.writeHeader's
// "one fixed header, written once, via explicit field writes" shape.
func WriteHeader(f *os.File, h Header) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, nseerrors.NewIOError("streamfile.writeHeader.seek", false, err)
	}
	if err := f.Truncate(0); err != nil {
		return 0, nseerrors.NewIOError("streamfile.writeHeader.truncate", false, err)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	writeU16(&buf, Version)

	nameBytes := append([]byte(h.Name), 0)
	writeU16(&buf, uint16(len(nameBytes)))
	buf.Write(nameBytes)

	descBytes := append([]byte(h.Desc), 0)
	writeU16(&buf, uint16(len(descBytes)))
	buf.Write(descBytes)

	if h.Replay {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	var createdBuf [8]byte
	binary.LittleEndian.PutUint64(createdBuf[:], uint64(h.Created))
	buf.Write(createdBuf[:])

	if _, err := f.Write(buf.Bytes()); err != nil {
		return 0, nseerrors.NewIOError("streamfile.writeHeader.write", false, err)
	}
	if err := f.Sync(); err != nil {
		return 0, nseerrors.NewIOError("streamfile.writeHeader.sync", false, err)
	}
	return int64(buf.Len()), nil
}

// ReadHeader opens path read+write, validates the magic, and parses the
// header. A magic mismatch returns NotAStreamError — benign, not a hard
// error — per spec.md §4.B/§7. On success the returned *os.File's cursor is
// positioned at the start of the data region.
func ReadHeader(path string) (*Header, *os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, fileMode)
	if err != nil {
		return nil, nil, 0, nseerrors.NewIOError("streamfile.readHeader.open", false, err)
	}

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}
	if string(magic) != Magic {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, fmt.Errorf("bad magic %q", magic))
	}

	version, err := readU16(f)
	if err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}
	if version != Version {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, fmt.Errorf("unsupported version/byte-order 0x%04x", version))
	}

	name, err := readNulString(f)
	if err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}
	desc, err := readNulString(f)
	if err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}

	var replayByte [1]byte
	if _, err := io.ReadFull(f, replayByte[:]); err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}

	var createdBuf [8]byte
	if _, err := io.ReadFull(f, createdBuf[:]); err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewNotAStreamError(path, err)
	}

	dataOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, nil, 0, nseerrors.NewIOError("streamfile.readHeader.tell", false, err)
	}

	h := &Header{
		Name:    name,
		Desc:    desc,
		Replay:  replayByte[0] == 1,
		Created: int64(binary.LittleEndian.Uint64(createdBuf[:])),
	}
	return h, f, dataOffset, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// readNulString reads a u16 length (including the trailing NUL) followed by
// that many bytes, and strips the NUL terminator.
func readNulString(r io.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("zero-length string field")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf, "\x00")), nil
}
