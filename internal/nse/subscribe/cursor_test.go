package subscribe

import (
	"context"
	"testing"
	"time"

	"github.com/955Gmy/libnetconf/internal/nse/registry"
	"github.com/955Gmy/libnetconf/internal/nse/streamfile"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

type fakeReceiver struct {
	subscribed map[string]bool
	queue      []fakeSignal
}

type fakeSignal struct {
	stream    string
	eventTime uint64
	xml       string
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{subscribed: make(map[string]bool)}
}

func (f *fakeReceiver) Subscribe(stream string) error {
	f.subscribed[stream] = true
	return nil
}

func (f *fakeReceiver) Unsubscribe(stream string) error {
	delete(f.subscribed, stream)
	return nil
}

func (f *fakeReceiver) Recv(timeout time.Duration) (string, uint64, string, bool, error) {
	if len(f.queue) == 0 {
		time.Sleep(time.Millisecond)
		return "", 0, "", false, nil
	}
	sig := f.queue[0]
	f.queue = f.queue[1:]
	return sig.stream, sig.eventTime, sig.xml, true, nil
}

func newTestStream(t *testing.T, replay bool) *registry.Stream {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(dir)
	if err := reg.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	s, err := reg.New("test", "test stream", replay)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestReplayThenLiveBoundary(t *testing.T) {
	s := newTestStream(t, true)

	for i, et := range []int64{1, 2, 3, 4, 5} {
		if err := streamfile.AppendRecord(s.File, et, "<e/>"); err != nil {
			t.Fatalf("AppendRecord[%d]: %v", i, err)
		}
	}
	if _, err := s.File.Seek(s.DataOffset, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}

	recv := newFakeReceiver()
	recv.queue = []fakeSignal{
		{stream: "test", eventTime: 6, xml: "<e/>"},
		{stream: "test", eventTime: 7, xml: "<e/>"},
	}

	start := int64(1)
	cur, err := New(s, recv, &start, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	var replayTimes []int64
	for i := 0; i < 5; i++ {
		et, body, done, err := cur.Next(ctx)
		if err != nil || done {
			t.Fatalf("Next[%d]: et=%d body=%q done=%v err=%v", i, et, body, done, err)
		}
		replayTimes = append(replayTimes, et)
	}
	if len(replayTimes) != 5 {
		t.Fatalf("expected 5 replay records, got %d", len(replayTimes))
	}

	_, body, done, err := cur.Next(ctx)
	if err != nil || done || body != xmlnotif.ReplayCompleteBody {
		t.Fatalf("expected replayComplete sentinel, got body=%q done=%v err=%v", body, done, err)
	}

	var liveTimes []int64
	for i := 0; i < 2; i++ {
		et, _, done, err := cur.Next(ctx)
		if err != nil || done {
			t.Fatalf("live Next[%d]: done=%v err=%v", i, done, err)
		}
		liveTimes = append(liveTimes, et)
	}
	if liveTimes[0] != 6 || liveTimes[1] != 7 {
		t.Fatalf("unexpected live event times: %v", liveTimes)
	}
}

func TestStopExceededDuringReplayEndsCursor(t *testing.T) {
	s := newTestStream(t, true)
	for _, et := range []int64{1, 2, 10} {
		if err := streamfile.AppendRecord(s.File, et, "<e/>"); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}
	if _, err := s.File.Seek(s.DataOffset, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}

	start := int64(1)
	stop := int64(5)
	recv := newFakeReceiver()
	cur, err := New(s, recv, &start, &stop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	et1, _, done1, err := cur.Next(ctx)
	if err != nil || done1 || et1 != 1 {
		t.Fatalf("Next[0]: et=%d done=%v err=%v", et1, done1, err)
	}
	et2, _, done2, err := cur.Next(ctx)
	if err != nil || done2 || et2 != 2 {
		t.Fatalf("Next[1]: et=%d done=%v err=%v", et2, done2, err)
	}
	_, _, done3, err := cur.Next(ctx)
	if err != nil || !done3 {
		t.Fatalf("expected Done after stop exceeded, got done=%v err=%v", done3, err)
	}
}

func TestUnsetStartSkipsStraightToLive(t *testing.T) {
	s := newTestStream(t, true)
	recv := newFakeReceiver()
	recv.queue = []fakeSignal{{stream: "test", eventTime: 100, xml: "<e/>"}}

	cur, err := New(s, recv, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cur.Phase() != PhaseLive {
		t.Fatalf("expected immediate Live phase, got %v", cur.Phase())
	}
	if !recv.subscribed["test"] {
		t.Fatalf("expected bus subscription on New with unset start")
	}
}
