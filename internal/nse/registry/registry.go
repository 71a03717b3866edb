// Package registry implements the process-wide Stream Registry of spec.md
// §3/§4.D: a mutex-protected table of open streams, each backed by
// a streamfile.Header/file pair and a ruletable.Table.
//
// Go's sync.Mutex is not reentrant, so every public method that needs the
// lock takes it once and delegates to an internal "*Locked" helper; Locked
// helpers never re-acquire the mutex, and the call graph is arranged so no
// Locked path ever calls back into a public method. This mirrors the
// teacher's Registry (internal/rtmp/server/registry.go) in spirit — a single
// mutex guarding a name-keyed map, double-checked before insert — extended
// with the reentrancy discipline spec.md §5 requires.
package registry

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
	"github.com/955Gmy/libnetconf/internal/nse/ruletable"
	"github.com/955Gmy/libnetconf/internal/nse/streamfile"
)

// DefaultStreamName is created automatically on Init if absent (spec.md §4.D).
const DefaultStreamName = "NETCONF"

// BaseEventNames are pre-allowed on DefaultStreamName when it is created by
// Init (spec.md §4.D).
var BaseEventNames = []string{
	"netconf-config-change",
	"netconf-capability-change",
	"netconf-session-start",
	"netconf-session-end",
	"netconf-confirmed-commit",
}

// ErrAlreadyExists is returned by New when the stream name is already
// registered.
var ErrAlreadyExists = fmt.Errorf("registry: stream already exists")

// Stream is one open, registered stream.
type Stream struct {
	Name          string
	Desc          string
	ReplayEnabled bool
	Created       int64

	File       *os.File
	DataOffset int64
	Rules      *ruletable.Table
}

// eventsPath and rulesPath are the two files the registry names derive from.
func eventsPath(dir, name string) string { return filepath.Join(dir, name+".events") }
func rulesPath(dir, name string) string  { return filepath.Join(dir, name+".rules") }

// Registry is the process-wide table of open streams.
type Registry struct {
	mu      sync.Mutex
	dir     string
	streams map[string]*Stream
}

// New creates an empty, unopened Registry rooted at dir.
func New(dir string) *Registry {
	return &Registry{dir: dir, streams: make(map[string]*Stream)}
}

// Init enumerates the streams directory, opens every file that decodes as a
// valid stream, and ensures DefaultStreamName exists (spec.md §4.D).
// Re-initialization is a close-then-init sequence under the same mutex.
func (r *Registry) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initLocked()
}

func (r *Registry) initLocked() error {
	r.closeLocked()
	r.streams = make(map[string]*Stream)

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nseerrors.NewIOError("registry.init.readdir", false, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		const suffix = ".events"
		if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		streamName := name[:len(name)-len(suffix)]
		if s, err := r.openLocked(streamName); err == nil {
			r.streams[streamName] = s
		}
		// NotAStream and similarly benign failures are skipped (spec.md §7).
	}

	if _, ok := r.streams[DefaultStreamName]; !ok {
		s, err := r.newLocked(DefaultStreamName, "default NETCONF notification stream", true)
		if err != nil {
			return err
		}
		for _, evt := range BaseEventNames {
			if err := s.Rules.Allow(evt); err != nil {
				return err
			}
		}
	}
	return nil
}

// openLocked opens an existing stream's header and rule table.
func (r *Registry) openLocked(name string) (*Stream, error) {
	h, f, dataOff, err := streamfile.ReadHeader(eventsPath(r.dir, name))
	if err != nil {
		return nil, err
	}
	rt, err := ruletable.Open(rulesPath(r.dir, name))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Stream{
		Name:          h.Name,
		Desc:          h.Desc,
		ReplayEnabled: h.Replay,
		Created:       h.Created,
		File:          f,
		DataOffset:    dataOff,
		Rules:         rt,
	}, nil
}

// Get looks up name; on miss it lazily attempts to open "<name>.events" so
// that one process can discover a stream created by a peer.
func (r *Registry) Get(name string) (*Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(name)
}

func (r *Registry) getLocked(name string) (*Stream, error) {
	if s, ok := r.streams[name]; ok {
		return s, nil
	}
	s, err := r.openLocked(name)
	if err != nil {
		return nil, err
	}
	r.streams[name] = s
	return s, nil
}

// New registers a brand-new stream, writing its header and opening its rule
// table. It rejects names already present.
func (r *Registry) New(name, desc string, replay bool) (*Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newLocked(name, desc, replay)
}

func (r *Registry) newLocked(name, desc string, replay bool) (*Stream, error) {
	if _, ok := r.streams[name]; ok {
		return nil, ErrAlreadyExists
	}

	f, err := os.OpenFile(eventsPath(r.dir, name), os.O_RDWR|os.O_CREATE, 0o777)
	if err != nil {
		return nil, nseerrors.NewIOError("registry.new.open", false, err)
	}

	created := time.Now().Unix()
	dataOff, err := streamfile.WriteHeader(f, streamfile.Header{
		Name: name, Desc: desc, Replay: replay, Created: created,
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	rt, err := ruletable.Open(rulesPath(r.dir, name))
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Stream{
		Name: name, Desc: desc, ReplayEnabled: replay, Created: created,
		File: f, DataOffset: dataOff, Rules: rt,
	}
	r.streams[name] = s
	return s, nil
}

// Close releases every open stream's handles and clears the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Registry) closeLocked() error {
	var first error
	for name, s := range r.streams {
		if s.Rules != nil {
			if err := s.Rules.Close(); err != nil && first == nil {
				first = err
			}
		}
		if s.File != nil {
			if err := s.File.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(r.streams, name)
	}
	return first
}

// Streams returns a snapshot slice of all currently registered streams,
// taken under the registry mutex and safe to range over without holding it.
func (r *Registry) Streams() []*Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		out = append(out, s)
	}
	return out
}

type statusDoc struct {
	XMLName xml.Name      `xml:"urn:ietf:params:xml:ns:netmod:notification netconf"`
	Streams statusStreams `xml:"streams"`
}

type statusStreams struct {
	Stream []statusStream `xml:"stream"`
}

type statusStream struct {
	Name                  string `xml:"name"`
	Description           string `xml:"description"`
	ReplaySupport         bool   `xml:"replaySupport"`
	ReplayLogCreationTime string `xml:"replayLogCreationTime,omitempty"`
}

// Status serializes the stream-status document of spec.md §6.
func (r *Registry) Status() ([]byte, error) {
	streams := r.Streams()
	doc := statusDoc{}
	for _, s := range streams {
		entry := statusStream{
			Name:          s.Name,
			Description:   s.Desc,
			ReplaySupport: s.ReplayEnabled,
		}
		if s.ReplayEnabled {
			entry.ReplayLogCreationTime = time.Unix(s.Created, 0).UTC().Format(time.RFC3339)
		}
		doc.Streams.Stream = append(doc.Streams.Stream, entry)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, nseerrors.NewParseError("registry.status.encode", err)
	}
	return buf.Bytes(), nil
}
