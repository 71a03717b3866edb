package validate

import (
	"strings"
	"testing"
)

func alwaysExists(string) bool { return true }

func TestValidateSuccess(t *testing.T) {
	rpc := `<create-subscription><stream>NETCONF</stream><startTime>2023-11-14T22:13:20Z</startTime></create-subscription>`
	req, err := Validate(rpc, alwaysExists, 1700000100)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Stream != "NETCONF" || req.StartTime == nil || *req.StartTime != 1700000000 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestValidateMissingStartTime(t *testing.T) {
	rpc := `<create-subscription><stopTime>2023-11-14T22:13:20Z</stopTime></create-subscription>`
	_, err := Validate(rpc, alwaysExists, 1700000100)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindMissingStartTime {
		t.Fatalf("expected KindMissingStartTime, got %v", err)
	}
}

func TestValidateStopBeforeStart(t *testing.T) {
	rpc := `<create-subscription><startTime>2023-11-14T22:13:20Z</startTime><stopTime>2023-11-14T22:00:00Z</stopTime></create-subscription>`
	_, err := Validate(rpc, alwaysExists, 1700000100)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindStopBeforeStart {
		t.Fatalf("expected KindStopBeforeStart, got %v", err)
	}
}

func TestValidateStartInFuture(t *testing.T) {
	rpc := `<create-subscription><startTime>2025-01-01T00:00:00Z</startTime></create-subscription>`
	_, err := Validate(rpc, alwaysExists, 1700000000)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindStartInFuture {
		t.Fatalf("expected KindStartInFuture, got %v", err)
	}
}

func TestValidateUnknownStream(t *testing.T) {
	rpc := `<create-subscription><stream>noSuch</stream></create-subscription>`
	_, err := Validate(rpc, func(string) bool { return false }, 1700000000)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindUnknownStream {
		t.Fatalf("expected KindUnknownStream, got %v", err)
	}
	tag, msg := ve.RPCError()
	if tag != "invalid-value" || !strings.Contains(msg, "noSuch") {
		t.Fatalf("expected invalid-value naming noSuch, got tag=%s msg=%s", tag, msg)
	}
}

func TestValidateInvalidFilter(t *testing.T) {
	rpc := `<create-subscription><filter><unclosed></filter></create-subscription>`
	_, err := Validate(rpc, alwaysExists, 1700000000)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindInvalidFilter {
		t.Fatalf("expected KindInvalidFilter, got %v", err)
	}
}

func TestValidateInvalidRpc(t *testing.T) {
	rpc := `<get-config/>`
	_, err := Validate(rpc, alwaysExists, 1700000000)
	ve, ok := err.(*Error)
	if !ok || ve.Kind != KindInvalidRpc {
		t.Fatalf("expected KindInvalidRpc, got %v", err)
	}
}
