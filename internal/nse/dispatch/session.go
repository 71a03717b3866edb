// Package dispatch implements the Send Dispatcher and Receive Dispatcher of
// spec.md §4.I/§4.J: the per-session drivers that sit between a
// subscribe.Cursor and a NETCONF session's transport.
//
// Session is the narrow collaborator boundary spec.md §1 calls out as
// external (transport, working-state query, notification capability) — NSE
// depends only on this interface, never a concrete transport, mirroring the
// teacher's tiny `sender` interface in publish_handler.go/play_handler.go.
package dispatch

import "sync/atomic"

// Session is the minimal view of a NETCONF session a dispatcher needs.
type Session interface {
	// Working reports whether the session is still in the working state
	// (spec.md §4.I: a dispatcher must not run on a session that has left it).
	Working() bool
	// HasNotificationCapability reports whether the peer advertised the
	// notification capability at session setup.
	HasNotificationCapability() bool
	// Send hands one fully-framed notification to the session's transport.
	Send(frame string) error
	// Recv blocks for the next frame the peer sent, or returns ok=false once
	// the transport has nothing more to deliver (session ended).
	Recv() (frame string, ok bool, err error)
	// NotificationFlag returns the session's ntf_active flag (spec.md §5):
	// at most one dispatcher may ever drive a given session at a time.
	NotificationFlag() *ActiveFlag
}

// ActiveFlag is ntf_active (spec.md §4.I/§5): a per-session flag, claimed
// atomically so at most one dispatcher ever drives a given session. It
// generalizes conn.Session's explicit state-field-plus-transition idiom to
// a single atomic bool rather than adding a new enum state.
type ActiveFlag struct {
	v atomic.Bool
}

// Claim sets the flag if unset, reporting whether this call won the claim.
func (f *ActiveFlag) Claim() bool { return f.v.CompareAndSwap(false, true) }

// Clear releases the flag.
func (f *ActiveFlag) Clear() { f.v.Store(false) }
