package streamfile

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
	"github.com/955Gmy/libnetconf/internal/bufpool"
)

// Record is one decoded event record (spec.md §3): record_len is implicit
// in len(XML)+1 (the trailing NUL byte is not reproduced here).
type Record struct {
	EventTime int64
	XML       string
}

const recordHeaderBytes = 4 /*record_len*/ + 8 /*event_time*/

// AppendRecord acquires the whole-file lock, seeks to EOF, and writes
// record_len, event_time and the NUL-terminated XML body. On any partial
// write it truncates back to the pre-write offset and returns an IOError —
// mirroring Recorder.writeTagLocked's "disable on write failure" discipline,
// generalized to "unwind" instead of "disable" since a stream outlives any
// one failed append.
func AppendRecord(f *os.File, eventTime int64, xml string) error {
	return WithLock(f, func() error {
		pos, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return nseerrors.NewIOError("streamfile.append.seek", false, err)
		}

		payload := append([]byte(xml), 0)
		recordLen := uint32(len(payload))

		buf := bufpool.Get(recordHeaderBytes)
		binary.LittleEndian.PutUint32(buf[0:4], recordLen)
		binary.LittleEndian.PutUint64(buf[4:12], uint64(eventTime))

		if _, err := f.Write(buf); err != nil {
			bufpool.Put(buf)
			_ = f.Truncate(pos)
			return nseerrors.NewIOError("streamfile.append.header", false, err)
		}
		bufpool.Put(buf)

		if _, err := f.Write(payload); err != nil {
			_ = f.Truncate(pos)
			return nseerrors.NewIOError("streamfile.append.body", false, err)
		}
		return nil
	})
}

// NextRecord reads the next length-prefixed record from f's current cursor
// position, holding the whole-file lock for the duration of the read and
// releasing it before returning. io.EOF indicates the file is exhausted.
func NextRecord(f *os.File) (*Record, error) {
	var rec *Record
	err := WithLock(f, func() error {
		header := bufpool.Get(recordHeaderBytes)
		defer bufpool.Put(header)

		if _, err := io.ReadFull(f, header); err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return nseerrors.NewIOError("streamfile.next.header", false, err)
		}
		recordLen := binary.LittleEndian.Uint32(header[0:4])
		eventTime := int64(binary.LittleEndian.Uint64(header[4:12]))

		if recordLen == 0 {
			rec = &Record{EventTime: eventTime, XML: ""}
			return nil
		}

		payload := bufpool.Get(int(recordLen))
		defer bufpool.Put(payload)
		if _, err := io.ReadFull(f, payload); err != nil {
			return nseerrors.NewIOError("streamfile.next.body", false, err)
		}
		// Trim the trailing NUL recorded on disk.
		if payload[len(payload)-1] == 0 {
			payload = payload[:len(payload)-1]
		}
		rec = &Record{EventTime: eventTime, XML: string(payload)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
