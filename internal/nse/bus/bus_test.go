package bus

import (
	"encoding/json"
	"testing"
)

func TestSubjectNaming(t *testing.T) {
	got := subject("NETCONF")
	want := "libnetconf.notifications.stream.NETCONF"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSignalJSONRoundTrip(t *testing.T) {
	sig := Signal{EventTime: 1700000000, XML: "<netconf-session-start/>"}
	data, err := json.Marshal(sig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Signal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != sig {
		t.Fatalf("got %+v want %+v", got, sig)
	}
}
