package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
	"github.com/955Gmy/libnetconf/internal/nse/registry"
	"github.com/955Gmy/libnetconf/internal/nse/streamfile"
	"github.com/955Gmy/libnetconf/internal/nse/subscribe"
	"github.com/955Gmy/libnetconf/internal/nse/validate"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

type fakeSession struct {
	working    bool
	capable    bool
	flag       ActiveFlag
	sent       []string
	recvQueue  []string
	recvCursor int
}

func (s *fakeSession) Working() bool                    { return s.working }
func (s *fakeSession) HasNotificationCapability() bool   { return s.capable }
func (s *fakeSession) NotificationFlag() *ActiveFlag     { return &s.flag }
func (s *fakeSession) Send(frame string) error {
	s.sent = append(s.sent, frame)
	return nil
}
func (s *fakeSession) Recv() (string, bool, error) {
	if s.recvCursor >= len(s.recvQueue) {
		return "", false, nil
	}
	f := s.recvQueue[s.recvCursor]
	s.recvCursor++
	return f, true, nil
}

// fakeReceiver reports the bus as closed, so a cursor that has finished
// replay ends its Live phase on the first poll.
type fakeReceiver struct{}

func (fakeReceiver) Subscribe(string) error   { return nil }
func (fakeReceiver) Unsubscribe(string) error { return nil }
func (fakeReceiver) Recv(time.Duration) (string, uint64, string, bool, error) {
	return "", 0, "", false, nseerrors.NewBusClosedError("test", nil)
}

func newTestCursor(t *testing.T, events []int64) *subscribe.Cursor {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(dir)
	if err := reg.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	s, err := reg.New("test", "test", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, et := range events {
		if err := streamfile.AppendRecord(s.File, et, "<netconf-session-start/>"); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}
	if _, err := s.File.Seek(s.DataOffset, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	start := int64(0)
	cur, err := subscribe.New(s, fakeReceiver{}, &start, nil)
	if err != nil {
		t.Fatalf("subscribe.New: %v", err)
	}
	return cur
}

func TestSendDispatcherRejectsNotWorking(t *testing.T) {
	sess := &fakeSession{working: false, capable: true}
	d := &SendDispatcher{}
	req := &validate.Request{Stream: "test"}
	cur := newTestCursor(t, nil)
	if err := d.Run(context.Background(), sess, req, cur); err != ErrNotWorking {
		t.Fatalf("expected ErrNotWorking, got %v", err)
	}
}

func TestSendDispatcherRejectsNoCapability(t *testing.T) {
	sess := &fakeSession{working: true, capable: false}
	d := &SendDispatcher{}
	req := &validate.Request{Stream: "test"}
	cur := newTestCursor(t, nil)
	if err := d.Run(context.Background(), sess, req, cur); err != ErrNoCapability {
		t.Fatalf("expected ErrNoCapability, got %v", err)
	}
}

func TestSendDispatcherRejectsAlreadyActive(t *testing.T) {
	sess := &fakeSession{working: true, capable: true}
	sess.flag.Claim()
	d := &SendDispatcher{}
	req := &validate.Request{Stream: "test"}
	cur := newTestCursor(t, nil)
	if err := d.Run(context.Background(), sess, req, cur); err != ErrAlreadyActive {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestSendDispatcherFramesRecordsAndSendsComplete(t *testing.T) {
	sess := &fakeSession{working: true, capable: true}
	d := &SendDispatcher{}
	req := &validate.Request{Stream: "test"}
	cur := newTestCursor(t, []int64{1, 2})

	if err := d.Run(context.Background(), sess, req, cur); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sess.sent) != 4 {
		t.Fatalf("expected 2 records + replayComplete + notificationComplete, got %d: %v", len(sess.sent), sess.sent)
	}
	if !strings.Contains(sess.sent[3], xmlnotif.NtfCompleteBody) {
		t.Fatalf("expected final frame to carry notificationComplete, got %q", sess.sent[3])
	}
	if sess.flag.Claim() == false {
		t.Fatalf("expected ntf_active cleared after Run, but it was still set")
	}
}

func TestSendDispatcherFilterSkipsNonMatching(t *testing.T) {
	sess := &fakeSession{working: true, capable: true}
	d := &SendDispatcher{Filter: func(filterXML string, child []byte) bool { return false }}
	req := &validate.Request{Stream: "test", Filter: "<session-start/>"}
	cur := newTestCursor(t, []int64{1, 2})

	if err := d.Run(context.Background(), sess, req, cur); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sess.sent) != 1 {
		t.Fatalf("expected only notificationComplete sent, got %d: %v", len(sess.sent), sess.sent)
	}
}

func TestReceiveDispatcherInvokesOnEventUntilComplete(t *testing.T) {
	f1 := xmlnotif.Encode(100, "<netconf-session-start/>")
	f2 := xmlnotif.Encode(200, "<netconf-session-end/>")
	f3 := xmlnotif.Encode(300, xmlnotif.NtfCompleteBody)
	sess := &fakeSession{working: true, recvQueue: []string{f1, f2, f3}}

	var got []string
	d := &ReceiveDispatcher{OnEvent: func(eventTime time.Time, body string) {
		got = append(got, body)
	}}
	if err := d.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events before notificationComplete, got %d: %v", len(got), got)
	}
}

func TestReceiveDispatcherStopsWhenSessionLeavesWorking(t *testing.T) {
	sess := &fakeSession{working: false}
	d := &ReceiveDispatcher{OnEvent: func(time.Time, string) {}}
	if err := d.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
