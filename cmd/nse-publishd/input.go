package main

import (
	"encoding/json"
	"fmt"

	"github.com/955Gmy/libnetconf/internal/nse/publish"
)

// inputEvent is one line of the daemon's control surface: a JSON object
// naming which publish.EventPayload to build and publish. This stands in
// for the real system's local publisher API (spec.md's "Publisher" is
// driven by other NETCONF server processes on the same host, out of scope
// here); a line-delimited JSON control surface gives this daemon something
// concrete to exercise end to end.
type inputEvent struct {
	Kind            string   `json:"kind"`
	EventTime       int64    `json:"event_time"`
	XML             string   `json:"xml"`
	Datastore       string   `json:"datastore"`
	ServerInitiated bool     `json:"server_initiated"`
	Username        string   `json:"username"`
	SessionID       string   `json:"session_id"`
	SourceHost      string   `json:"source_host"`
	Before          []string `json:"before"`
	After           []string `json:"after"`
	Reason          string   `json:"reason"`
	KilledBy        string   `json:"killed_by"`
}

// payload builds the sealed publish.EventPayload named by Kind.
func (e *inputEvent) payload() (publish.EventPayload, error) {
	switch e.Kind {
	case "generic":
		return publish.Generic{XML: e.XML}, nil
	case "config-change":
		return publish.ConfigChange{
			Datastore:       e.Datastore,
			ServerInitiated: e.ServerInitiated,
			Username:        e.Username,
			SessionID:       e.SessionID,
			SourceHost:      e.SourceHost,
		}, nil
	case "capability-change":
		return publish.CapabilityChange{Before: e.Before, After: e.After}, nil
	case "session-start":
		return publish.SessionStart{Username: e.Username, SessionID: e.SessionID, SourceHost: e.SourceHost}, nil
	case "session-end":
		return publish.SessionEnd{
			Username:   e.Username,
			SessionID:  e.SessionID,
			SourceHost: e.SourceHost,
			Reason:     publish.TerminationReason(e.Reason),
			KilledBy:   e.KilledBy,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func parseInputLine(line []byte) (publish.EventPayload, int64, error) {
	var e inputEvent
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, 0, err
	}
	p, err := e.payload()
	if err != nil {
		return nil, 0, err
	}
	return p, e.EventTime, nil
}
