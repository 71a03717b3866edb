// Package bus implements the Bus Adapter of spec.md §4.F: host-local pub/sub
// fan-out of live events across processes.
//
// The reference system used the host's D-Bus broker; nothing in this
// corpus touches D-Bus, so this adapter is grounded instead on NATS core
// pub/sub (the wiring style of the retrieved natspubsub example) for
// transport, and on the teacher's DestinationManager
// (internal/rtmp/relay/manager.go) for the mutex-guarded
// subscribe/unsubscribe/status shape. Subject naming mirrors the object
// path spec.md §6 assigns to bus signals.
package bus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// SubjectPrefix mirrors the D-Bus object path
// "/libnetconf/notifications/stream/<stream-name>" of spec.md §6, adapted
// to NATS subject syntax.
const SubjectPrefix = "libnetconf.notifications.stream."

// DefaultURL is the local-broker NATS URL used when no bus URL is configured.
const DefaultURL = nats.DefaultURL

func subject(stream string) string { return SubjectPrefix + stream }

// Signal is the wire payload of one bus message: (event_time, xml) per
// spec.md §6.
type Signal struct {
	EventTime uint64 `json:"event_time"`
	XML       string `json:"xml"`
}

type delivery struct {
	Stream string
	Signal Signal
}

// Adapter is a host-local pub/sub connection shared by a process's
// publisher and its subscribers. Publishing (Send) goes straight through
// the NATS connection; receiving requires a dedicated Subscriber, since two
// unrelated Cursors in the same process must never see each other's signals
// (spec.md §5 permits any number of simultaneous subscriptions).
type Adapter struct {
	mu     sync.Mutex
	nc     *nats.Conn
	subs   []*Subscriber
	closed bool
}

// Connect dials url (nats.DefaultURL for a local broker) and returns a ready
// Adapter.
func Connect(url string) (*Adapter, error) {
	nc, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, nseerrors.NewIOError("bus.connect", false, err)
	}
	return &Adapter{nc: nc}, nil
}

// Send is a non-blocking, best-effort broadcast to stream's subject.
func (a *Adapter) Send(stream string, eventTime uint64, xml string) error {
	data, err := json.Marshal(Signal{EventTime: eventTime, XML: xml})
	if err != nil {
		return nseerrors.NewParseError("bus.send.marshal", err)
	}
	if err := a.nc.Publish(subject(stream), data); err != nil {
		return nseerrors.NewIOError("bus.send", true, err)
	}
	return nil
}

// Subscriber creates a new, independent receive-side view of the bus with
// its own delivery channel (spec.md §4.F). Each subscribe.Cursor should own
// exactly one Subscriber, the same way the reference D-Bus implementation
// gives each subscribing session its own connection filter rather than
// sharing one receive queue across sessions.
func (a *Adapter) Subscriber() *Subscriber {
	s := &Subscriber{
		nc:    a.nc,
		subs:  make(map[string]*nats.Subscription),
		msgCh: make(chan delivery, 256),
	}
	a.mu.Lock()
	a.subs = append(a.subs, s)
	a.mu.Unlock()
	return s
}

// Close closes every outstanding Subscriber and the underlying connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.subs {
		s.close()
	}
	a.subs = nil
	a.closed = true
	a.nc.Close()
	return nil
}

// Subscriber is one subscription connection's view of the bus: Subscribe,
// Unsubscribe, and Recv operate only on the streams this Subscriber itself
// subscribed to, via its own delivery channel. It implements
// subscribe.Receiver.
type Subscriber struct {
	mu     sync.Mutex
	nc     *nats.Conn
	subs   map[string]*nats.Subscription
	msgCh  chan delivery
	closed bool
}

// Subscribe registers interest in signals for stream.
func (s *Subscriber) Subscribe(stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[stream]; ok {
		return nil
	}

	sub, err := s.nc.Subscribe(subject(stream), func(m *nats.Msg) {
		var sig Signal
		if err := json.Unmarshal(m.Data, &sig); err != nil {
			return
		}
		select {
		case s.msgCh <- delivery{Stream: stream, Signal: sig}:
		default:
			// Drop under sustained backpressure rather than block the
			// NATS client's delivery goroutine.
		}
	})
	if err != nil {
		return nseerrors.NewIOError("bus.subscribe", false, err)
	}
	s.subs[stream] = sub
	return nil
}

// Unsubscribe is the inverse of Subscribe.
func (s *Subscriber) Unsubscribe(stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[stream]
	if !ok {
		return nil
	}
	delete(s.subs, stream)
	if err := sub.Unsubscribe(); err != nil {
		return nseerrors.NewIOError("bus.unsubscribe", false, err)
	}
	return nil
}

// Recv returns the next pending signal for any stream this Subscriber
// subscribed to, or ok=false if timeout elapses first. A closed connection
// is terminal and returns a BusClosedError (spec.md §4.F).
func (s *Subscriber) Recv(timeout time.Duration) (stream string, eventTime uint64, xml string, ok bool, err error) {
	s.mu.Lock()
	closed := s.closed || s.nc.IsClosed()
	s.mu.Unlock()
	if closed {
		return "", 0, "", false, nseerrors.NewBusClosedError(stream, nil)
	}

	select {
	case d := <-s.msgCh:
		return d.Stream, d.Signal.EventTime, d.Signal.XML, true, nil
	case <-time.After(timeout):
		return "", 0, "", false, nil
	}
}

// close unsubscribes from everything. Called by Adapter.Close while holding
// the adapter's lock; does not touch the shared *nats.Conn beyond
// Unsubscribe, which the caller closes separately.
func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = make(map[string]*nats.Subscription)
	s.closed = true
}
