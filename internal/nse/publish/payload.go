// Package publish implements the Publisher of spec.md §4.E.
//
// The reference implementation's publish entry point was a variadic C
// function; spec.md §9 calls for replacing it with a tagged union of event
// payloads instead. EventPayload is that union: an unexported marker method
// seals it to the kinds enumerated here, the same sealed-interface idiom the
// teacher uses for its session state enum (internal/rtmp/conn/session.go),
// generalized from an int enum to a payload-carrying one.
package publish

import (
	"sort"
	"strings"

	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

// EventPayload is the sealed union of publishable event kinds (spec.md §4.E).
type EventPayload interface {
	isEventPayload()
	body() string
}

// Generic carries a caller-supplied XML body, wrapped as-is.
type Generic struct {
	XML string
}

func (Generic) isEventPayload() {}
func (g Generic) body() string  { return g.XML }

// ConfigChange is RFC 6470's netconf-config-change event. When
// ServerInitiated is true, <server/> replaces the username/session-id/
// source-host triple (spec.md §4.E).
type ConfigChange struct {
	Datastore       string
	ServerInitiated bool
	Username        string
	SessionID       string
	SourceHost      string
}

func (ConfigChange) isEventPayload() {}

func (c ConfigChange) body() string {
	var b strings.Builder
	b.WriteString("<netconf-config-change><datastore>")
	b.WriteString(xmlnotif.EscapeText(c.Datastore))
	b.WriteString("</datastore>")
	if c.ServerInitiated {
		b.WriteString("<server/>")
	} else {
		b.WriteString("<username>")
		b.WriteString(xmlnotif.EscapeText(c.Username))
		b.WriteString("</username><session-id>")
		b.WriteString(xmlnotif.EscapeText(c.SessionID))
		b.WriteString("</session-id><source-host>")
		b.WriteString(xmlnotif.EscapeText(c.SourceHost))
		b.WriteString("</source-host>")
	}
	b.WriteString("</netconf-config-change>")
	return b.String()
}

// CapabilityChange diffs Before against After and renders the RFC 6470
// added/deleted/modified-capability elements (spec.md §4.E). Capability
// identity is the URI up to the first '?'; same identity with a different
// full string is a modification, not an add+delete pair.
type CapabilityChange struct {
	Before []string
	After  []string
}

func (CapabilityChange) isEventPayload() {}

func (c CapabilityChange) body() string {
	added, deleted, modified := diffCapabilities(c.Before, c.After)

	var b strings.Builder
	b.WriteString("<netconf-capability-change>")
	for _, uri := range added {
		b.WriteString("<added-capability>")
		b.WriteString(xmlnotif.EscapeText(uri))
		b.WriteString("</added-capability>")
	}
	for _, uri := range deleted {
		b.WriteString("<deleted-capability>")
		b.WriteString(xmlnotif.EscapeText(uri))
		b.WriteString("</deleted-capability>")
	}
	for _, uri := range modified {
		b.WriteString("<modified-capability>")
		b.WriteString(xmlnotif.EscapeText(uri))
		b.WriteString("</modified-capability>")
	}
	b.WriteString("</netconf-capability-change>")
	return b.String()
}

func capabilityIdentity(uri string) string {
	if idx := strings.IndexByte(uri, '?'); idx >= 0 {
		return uri[:idx]
	}
	return uri
}

func diffCapabilities(before, after []string) (added, deleted, modified []string) {
	beforeByIdentity := make(map[string]string, len(before))
	for _, uri := range before {
		beforeByIdentity[capabilityIdentity(uri)] = uri
	}
	afterByIdentity := make(map[string]string, len(after))
	for _, uri := range after {
		afterByIdentity[capabilityIdentity(uri)] = uri
	}

	for id, afterURI := range afterByIdentity {
		if beforeURI, ok := beforeByIdentity[id]; ok {
			if beforeURI != afterURI {
				modified = append(modified, afterURI)
			}
			continue
		}
		added = append(added, afterURI)
	}
	for id, beforeURI := range beforeByIdentity {
		if _, ok := afterByIdentity[id]; !ok {
			deleted = append(deleted, beforeURI)
		}
	}

	sort.Strings(added)
	sort.Strings(deleted)
	sort.Strings(modified)
	return added, deleted, modified
}

// SessionStart is RFC 6470's netconf-session-start event.
type SessionStart struct {
	SessionID  string
	Username   string
	SourceHost string
}

func (SessionStart) isEventPayload() {}

func (s SessionStart) body() string {
	var b strings.Builder
	b.WriteString("<netconf-session-start><username>")
	b.WriteString(xmlnotif.EscapeText(s.Username))
	b.WriteString("</username><session-id>")
	b.WriteString(xmlnotif.EscapeText(s.SessionID))
	b.WriteString("</session-id><source-host>")
	b.WriteString(xmlnotif.EscapeText(s.SourceHost))
	b.WriteString("</source-host></netconf-session-start>")
	return b.String()
}

// TerminationReason enumerates RFC 6470's session termination reasons.
type TerminationReason string

const (
	TerminationClosed  TerminationReason = "closed"
	TerminationKilled  TerminationReason = "killed"
	TerminationDropped TerminationReason = "dropped"
	TerminationTimeout TerminationReason = "timeout"
	TerminationOther   TerminationReason = "other"
)

// SessionEnd is RFC 6470's netconf-session-end event. KilledBy is only
// rendered when Reason is TerminationKilled (spec.md §4.E).
type SessionEnd struct {
	SessionID  string
	Username   string
	SourceHost string
	Reason     TerminationReason
	KilledBy   string
}

func (SessionEnd) isEventPayload() {}

func (s SessionEnd) body() string {
	var b strings.Builder
	b.WriteString("<netconf-session-end><username>")
	b.WriteString(xmlnotif.EscapeText(s.Username))
	b.WriteString("</username><session-id>")
	b.WriteString(xmlnotif.EscapeText(s.SessionID))
	b.WriteString("</session-id><source-host>")
	b.WriteString(xmlnotif.EscapeText(s.SourceHost))
	b.WriteString("</source-host><termination-reason>")
	b.WriteString(xmlnotif.EscapeText(string(s.Reason)))
	b.WriteString("</termination-reason>")
	if s.Reason == TerminationKilled {
		b.WriteString("<killed-by>")
		b.WriteString(xmlnotif.EscapeText(s.KilledBy))
		b.WriteString("</killed-by>")
	}
	b.WriteString("</netconf-session-end>")
	return b.String()
}
