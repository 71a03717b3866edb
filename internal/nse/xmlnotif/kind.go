package xmlnotif

import (
	"encoding/xml"
	"strings"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// Kind enumerates the notification body kinds the receive dispatcher and
// publisher both need to recognize (spec.md §4.E, §4.J).
type Kind int

const (
	KindUnknown Kind = iota
	KindGeneric
	KindConfigChange
	KindCapabilityChange
	KindSessionStart
	KindSessionEnd
	KindConfirmedCommit
	KindReplayComplete
	KindNtfComplete
)

// kindByName maps the local name of a notification body's first child
// element to its Kind. "netconf-configrmed-commit" is the historical typo
// from the reference implementation's kind classifier (spec.md §9): it is
// recognized on decode so legacy publishers are still understood, but no
// publish.EventPayload kind emits the typo.
var kindByName = map[string]Kind{
	"netconf-config-change":     KindConfigChange,
	"netconf-capability-change": KindCapabilityChange,
	"netconf-session-start":     KindSessionStart,
	"netconf-session-end":       KindSessionEnd,
	"netconf-confirmed-commit":  KindConfirmedCommit,
	"netconf-configrmed-commit": KindConfirmedCommit,
	"replayComplete":            KindReplayComplete,
	"notificationComplete":      KindNtfComplete,
}

// ReplayCompleteBody and NtfCompleteBody are the two sentinels the engine
// synthesizes (spec.md §6).
const (
	ReplayCompleteBody = "<replayComplete/>"
	NtfCompleteBody    = "<notificationComplete/>"
)

// ClassifyBody inspects the first element in body and returns its local
// name and classified Kind. Unrecognized names classify as KindGeneric
// rather than an error, since a caller-supplied generic payload is valid.
func ClassifyBody(body string) (name string, kind Kind, err error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, derr := dec.Token()
		if derr != nil {
			return "", KindUnknown, nseerrors.NewParseError("xmlnotif.classify", derr)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name = se.Name.Local
		if k, known := kindByName[name]; known {
			return name, k, nil
		}
		return name, KindGeneric, nil
	}
}
