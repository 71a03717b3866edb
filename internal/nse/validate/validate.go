// Package validate implements the Request Validator of spec.md §4.H:
// parsing and checking a <create-subscription> request against stream
// existence and the time-window rules.
package validate

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// parsedRPC is the raw field bundle extracted from the RPC body before
// time-window and filter validation.
type parsedRPC struct {
	Stream    string
	StartTime string
	StopTime  string
	HasFilter bool
	Filter    string
}

// Kind enumerates the validator's outcomes (spec.md §4.H).
type Kind int

const (
	KindSuccess Kind = iota
	KindInvalidRpc
	KindInvalidFilter
	KindUnknownStream
	KindMissingStartTime
	KindStopBeforeStart
	KindStartInFuture
)

// Error is the sealed validation failure type; RPCError maps it to the
// protocol error taxonomy surfaced to the RPC layer (spec.md §6/§7).
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// RPCError returns the (error-tag, message) pair the RPC layer should emit.
func (e *Error) RPCError() (tag, message string) {
	switch e.Kind {
	case KindInvalidFilter:
		return "bad-element", "filter"
	case KindUnknownStream:
		return "invalid-value", e.Message
	case KindMissingStartTime:
		return "missing-element", "startTime"
	case KindStopBeforeStart:
		return "bad-element", "stopTime"
	case KindStartInFuture:
		return "bad-element", "startTime"
	default:
		return "operation-failed", e.Message
	}
}

// Request is the validated, decoded form of a <create-subscription> RPC.
type Request struct {
	Stream    string
	StartTime *int64
	StopTime  *int64
	Filter    string // raw inner XML of <filter>, "" if absent
}

// StreamExists reports whether name is a currently-registered stream.
type StreamExists func(name string) bool

// Validate parses rawXML as a <create-subscription> RPC and checks it
// against exists and now (spec.md §4.H).
func Validate(rawXML string, exists StreamExists, now int64) (*Request, error) {
	rpc, err := parseCreateSubscription(rawXML)
	if err != nil {
		return nil, err
	}

	stream := rpc.Stream
	if stream == "" {
		stream = "NETCONF"
	}
	if exists != nil && !exists(stream) {
		return nil, &Error{Kind: KindUnknownStream, Message: fmt.Sprintf("unknown stream %q", stream)}
	}

	var startTime, stopTime *int64
	if rpc.StartTime != "" {
		t, err := time.Parse(time.RFC3339, rpc.StartTime)
		if err != nil {
			return nil, &Error{Kind: KindInvalidRpc, Message: "malformed startTime"}
		}
		v := t.Unix()
		startTime = &v
	}
	if rpc.StopTime != "" {
		t, err := time.Parse(time.RFC3339, rpc.StopTime)
		if err != nil {
			return nil, &Error{Kind: KindInvalidRpc, Message: "malformed stopTime"}
		}
		v := t.Unix()
		stopTime = &v
	}

	if stopTime != nil && startTime == nil {
		return nil, &Error{Kind: KindMissingStartTime, Message: "stopTime given without startTime"}
	}
	if startTime != nil && stopTime != nil && *stopTime < *startTime {
		return nil, &Error{Kind: KindStopBeforeStart, Message: "stopTime precedes startTime"}
	}
	if startTime != nil && *startTime > now {
		return nil, &Error{Kind: KindStartInFuture, Message: "startTime is in the future"}
	}

	return &Request{Stream: stream, StartTime: startTime, StopTime: stopTime, Filter: rpc.Filter}, nil
}

// parseCreateSubscription walks the RPC body one element at a time so a
// malformed <filter> subtree is attributed to the filter specifically
// (KindInvalidFilter) rather than collapsed into a generic parse failure —
// xml.Unmarshal on the whole document can't make that distinction once the
// overall document is well-formed but one nested element isn't internally
// consistent with its own closing tag.
func parseCreateSubscription(rawXML string) (*parsedRPC, error) {
	dec := xml.NewDecoder(strings.NewReader(rawXML))

	var root *xml.StartElement
	for root == nil {
		tok, err := dec.Token()
		if err != nil {
			return nil, &Error{Kind: KindInvalidRpc, Message: "malformed XML"}
		}
		if se, ok := tok.(xml.StartElement); ok {
			rootCopy := se.Copy()
			root = &rootCopy
		}
	}
	if root.Name.Local != "create-subscription" {
		return nil, &Error{Kind: KindInvalidRpc, Message: "not a create-subscription request"}
	}

	result := &parsedRPC{}
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return result, nil
			}
			return nil, &Error{Kind: KindInvalidRpc, Message: "malformed XML"}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "stream":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return nil, &Error{Kind: KindInvalidRpc, Message: "malformed stream element"}
			}
			result.Stream = v
		case "startTime":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return nil, &Error{Kind: KindInvalidRpc, Message: "malformed startTime element"}
			}
			result.StartTime = v
		case "stopTime":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return nil, &Error{Kind: KindInvalidRpc, Message: "malformed stopTime element"}
			}
			result.StopTime = v
		case "filter":
			var v struct {
				Inner []byte `xml:",innerxml"`
			}
			if err := dec.DecodeElement(&v, &se); err != nil {
				return nil, &Error{Kind: KindInvalidFilter, Message: "malformed filter"}
			}
			result.HasFilter = true
			result.Filter = string(v.Inner)
		default:
			if err := dec.Skip(); err != nil {
				return nil, &Error{Kind: KindInvalidRpc, Message: "malformed XML"}
			}
		}
	}
}
