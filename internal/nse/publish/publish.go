package publish

import (
	"log/slog"
	"time"

	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/registry"
	"github.com/955Gmy/libnetconf/internal/nse/streamfile"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

// Broadcaster is the narrow view of the Bus Adapter (§4.F) the publisher
// needs: a best-effort, non-blocking send of one signal per allowed stream.
type Broadcaster interface {
	Send(stream string, eventTime uint64, xml string) error
}

// Publish builds the canonical XML payload for payload, then — for every
// registered stream with replay enabled whose rule table allows the
// resulting event name — appends it to that stream's log and broadcasts it
// on the bus (spec.md §4.E). Disk and bus failures are logged, never
// returned: publish is advisory, not transactional, as long as the XML
// payload itself was constructed successfully.
func Publish(reg *registry.Registry, bus Broadcaster, eventTime int64, payload EventPayload) error {
	body := payload.body()
	name, _, err := xmlnotif.ClassifyBody(body)
	if err != nil {
		return err
	}
	if eventTime == 0 {
		eventTime = time.Now().Unix()
	}

	log := logger.WithEvent(logger.Logger(), name, eventTime)

	for _, s := range reg.Streams() {
		if !s.ReplayEnabled {
			continue
		}
		if s.Rules == nil || !s.Rules.Contains(name) {
			continue
		}
		appendAndBroadcast(log, s, bus, eventTime, name, body)
	}
	return nil
}

func appendAndBroadcast(log *slog.Logger, s *registry.Stream, bus Broadcaster, eventTime int64, name, body string) {
	if err := streamfile.AppendRecord(s.File, eventTime, body); err != nil {
		log.Warn("append failed", "stream", s.Name, "err", err)
	}
	if bus == nil {
		return
	}
	if err := bus.Send(s.Name, uint64(eventTime), body); err != nil {
		log.Warn("broadcast failed", "stream", s.Name, "err", err)
	}
}
