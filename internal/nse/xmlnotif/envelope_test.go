package xmlnotif

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body := "<netconf-session-start><username>alice</username></netconf-session-start>"
	wire := Encode(1700000000, body)
	if !strings.Contains(wire, EnvelopeNS) {
		t.Fatalf("expected envelope namespace in wire form: %s", wire)
	}

	evtTime, inner, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evtTime.Unix() != 1700000000 {
		t.Fatalf("got event time %v want unix 1700000000", evtTime)
	}
	if inner != body {
		t.Fatalf("got inner %q want %q", inner, body)
	}
}

func TestClassifyBodyRecognizesBaseKinds(t *testing.T) {
	cases := map[string]Kind{
		"<netconf-config-change/>":     KindConfigChange,
		"<netconf-capability-change/>": KindCapabilityChange,
		"<netconf-session-start/>":     KindSessionStart,
		"<netconf-session-end/>":       KindSessionEnd,
		"<netconf-confirmed-commit/>":  KindConfirmedCommit,
		"<netconf-configrmed-commit/>": KindConfirmedCommit,
		ReplayCompleteBody:             KindReplayComplete,
		NtfCompleteBody:                KindNtfComplete,
		"<some-custom-event/>":         KindGeneric,
	}
	for body, want := range cases {
		name, kind, err := ClassifyBody(body)
		if err != nil {
			t.Fatalf("ClassifyBody(%s): %v", body, err)
		}
		if kind != want {
			t.Fatalf("ClassifyBody(%s) = (%s, %v), want kind %v", body, name, kind, want)
		}
	}
}
