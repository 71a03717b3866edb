// Package subscribe implements the Subscription Iterator of spec.md §3/§4.G:
// a per-subscriber cursor that delivers replay records from a stream's log,
// emits a replayComplete sentinel, and then delivers live records from the
// bus until a stop condition is reached.
//
// spec.md §9 replaces the reference implementation's thread-local
// "replay_done" flag with iterator-owned state: the Cursor's phase lives on
// the struct itself, not in any thread-specific storage, the same way the
// teacher models connection lifecycle as explicit fields on *Session
// (internal/rtmp/conn/session.go) rather than ambient goroutine-local state.
package subscribe

import (
	"context"
	"errors"
	"io"
	"time"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
	"github.com/955Gmy/libnetconf/internal/nse/registry"
	"github.com/955Gmy/libnetconf/internal/nse/streamfile"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

// Phase is the Cursor's position in the state machine of spec.md §4.G.
type Phase uint8

const (
	PhaseReplay Phase = iota
	PhaseReplayComplete
	PhaseLive
	PhaseDone
)

// liveRecvTimeout bounds each bus poll in the Live phase so the cursor stays
// responsive to context cancellation (spec.md §4.G step 4).
const liveRecvTimeout = 10 * time.Millisecond

// Receiver is the narrow view of the Bus Adapter (§4.F) a Cursor needs. Each
// Cursor must be given its own Receiver (a *bus.Subscriber obtained from
// Adapter.Subscriber, never the shared *bus.Adapter itself): Recv's "next
// pending signal for any currently-subscribed stream" contract only makes
// sense scoped to one subscriber's own delivery channel, mirroring how the
// reference D-Bus implementation gives each subscribing session its own bus
// filter rather than sharing one connection's receive queue across sessions.
type Receiver interface {
	Subscribe(stream string) error
	Unsubscribe(stream string) error
	Recv(timeout time.Duration) (stream string, eventTime uint64, xml string, ok bool, err error)
}

// Cursor is one subscriber's position within a stream's replay log and live
// bus feed.
type Cursor struct {
	stream *registry.Stream
	bus    Receiver
	start  *int64
	stop   *int64
	phase  Phase
}

// New creates a Cursor over stream and subscribes to the bus immediately, so
// no event published while replay is still draining the stream file is
// missed. If start is nil, the replay flag is already satisfied and the
// cursor moves straight to the Live phase (spec.md §4.G step 1); otherwise
// it begins in the Replay phase with the live subscription already active in
// the background.
func New(stream *registry.Stream, bus Receiver, start, stop *int64) (*Cursor, error) {
	c := &Cursor{stream: stream, bus: bus, start: start, stop: stop}
	if err := bus.Subscribe(stream.Name); err != nil {
		return nil, err
	}
	if start == nil {
		c.phase = PhaseLive
	} else {
		c.phase = PhaseReplay
	}
	return c, nil
}

// Phase reports the cursor's current state.
func (c *Cursor) Phase() Phase { return c.phase }

// Next returns the next (event_time, xml body) pair, or done=true once the
// cursor has reached a terminal condition (stop reached, bus closed, or
// context cancellation). The two synthesized sentinels
// (xmlnotif.ReplayCompleteBody, xmlnotif.NtfCompleteBody — the latter is the
// caller's responsibility, emitted by the Send Dispatcher, not here) are
// returned as plain bodies for the caller to envelope.
func (c *Cursor) Next(ctx context.Context) (eventTime int64, body string, done bool, err error) {
	for {
		select {
		case <-ctx.Done():
			c.phase = PhaseDone
			return 0, "", true, nil
		default:
		}

		switch c.phase {
		case PhaseDone:
			return 0, "", true, nil

		case PhaseReplay:
			t, b, found, rerr := c.advanceReplay()
			if rerr != nil {
				c.phase = PhaseDone
				return 0, "", true, rerr
			}
			if found {
				return t, b, false, nil
			}
			if c.phase == PhaseDone {
				return 0, "", true, nil
			}
			c.phase = PhaseReplayComplete
			return time.Now().Unix(), xmlnotif.ReplayCompleteBody, false, nil

		case PhaseReplayComplete:
			// Already subscribed in New, before replay began draining the
			// stream file, so nothing published in the meantime was missed.
			c.phase = PhaseLive
			continue

		case PhaseLive:
			_, t, xml, ok, rerr := c.bus.Recv(liveRecvTimeout)
			if rerr != nil {
				c.phase = PhaseDone
				if nseerrors.IsBusClosed(rerr) {
					return 0, "", true, nil
				}
				return 0, "", true, rerr
			}
			if !ok {
				continue
			}
			et := int64(t)
			if c.start != nil && et < *c.start {
				continue
			}
			if c.stop != nil && et > *c.stop {
				c.phase = PhaseDone
				return 0, "", true, nil
			}
			return et, xml, false, nil
		}
	}
}

// advanceReplay reads the next in-window record from the stream file,
// skipping records before start and transitioning to Done if a record
// crosses stop (spec.md §4.G step 2). found=false with phase still Replay
// means the file is exhausted or replay is disabled; found=false with phase
// Done means stop was crossed.
func (c *Cursor) advanceReplay() (eventTime int64, body string, found bool, err error) {
	if !c.stream.ReplayEnabled {
		return 0, "", false, nil
	}
	for {
		rec, rerr := streamfile.NextRecord(c.stream.File)
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return 0, "", false, nil
			}
			return 0, "", false, rerr
		}
		if c.start != nil && rec.EventTime < *c.start {
			continue
		}
		if c.stop != nil && rec.EventTime > *c.stop {
			c.phase = PhaseDone
			return 0, "", false, nil
		}
		return rec.EventTime, rec.XML, true, nil
	}
}

// Close unsubscribes from the bus and marks the cursor Done.
func (c *Cursor) Close() error {
	c.phase = PhaseDone
	return c.bus.Unsubscribe(c.stream.Name)
}
