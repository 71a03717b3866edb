// Package xmlnotif implements the notification envelope and event-kind
// classification of spec.md §6/§9: the wire wrapper around a notification
// body, and the first-child-element classifier used by both the publisher
// and the receive dispatcher.
//
// Decoding follows the pattern in the NSO stream subscriber example: a
// stdlib xml.Decoder reads the outer envelope only, keeping the inner
// content as raw bytes for a second, cheaper classification pass.
package xmlnotif

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
)

// EnvelopeNS is the XML namespace of the notification envelope (spec.md §6).
const EnvelopeNS = "urn:ietf:params:xml:ns:netconf:notification:1.0"

// Encode wraps body in the standard notification envelope with eventTime
// rendered as ISO-8601 / RFC 3339.
func Encode(eventTime int64, body string) string {
	ts := time.Unix(eventTime, 0).UTC().Format(time.RFC3339)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<notification xmlns=%q><eventTime>%s</eventTime>`, EnvelopeNS, ts)
	buf.WriteString(body)
	buf.WriteString(`</notification>`)
	return buf.String()
}

// Decode parses a notification envelope, returning the event time and the
// raw body (everything between </eventTime> and </notification>).
//
// This walks tokens explicitly rather than unmarshalling into a struct with
// an ",innerxml" field: innerxml captures the *entire* raw child content of
// an element, including eventTime itself, which would leak eventTime into
// body and defeat ClassifyBody's first-child-element check.
func Decode(data string) (eventTime time.Time, body string, err error) {
	dec := xml.NewDecoder(strings.NewReader(data))

	tok, terr := dec.Token()
	if terr != nil {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode", terr)
	}
	root, ok := tok.(xml.StartElement)
	if !ok || root.Name.Local != "notification" {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode", fmt.Errorf("expected notification root element"))
	}

	tok, terr = dec.Token()
	if terr != nil {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode", terr)
	}
	etStart, ok := tok.(xml.StartElement)
	if !ok || etStart.Name.Local != "eventTime" {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode", fmt.Errorf("expected eventTime as first child"))
	}
	var timeStr string
	if err := dec.DecodeElement(&timeStr, &etStart); err != nil {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode.time", err)
	}
	bodyStart := dec.InputOffset()

	bodyEnd := bodyStart
	depth := 0
	for {
		offset := dec.InputOffset()
		tok, terr := dec.Token()
		if terr != nil {
			if terr == io.EOF {
				break
			}
			return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode", terr)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				bodyEnd = offset
			} else {
				depth--
			}
		}
	}

	t, terr := time.Parse(time.RFC3339, strings.TrimSpace(timeStr))
	if terr != nil {
		return time.Time{}, "", nseerrors.NewParseError("xmlnotif.decode.time", terr)
	}
	return t, data[bodyStart:bodyEnd], nil
}

// EscapeText XML-escapes s for embedding as element content.
func EscapeText(s string) string {
	var buf bytes.Buffer
	// xml.EscapeText never fails on a bytes.Buffer target.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
