package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

// OnEvent is invoked once per decoded notification body. If the dispatcher's
// OnEvent field is nil, PrintEvent is used instead (spec.md §4.J's default:
// plain stdout text in the style of the teacher's media_logger).
type OnEvent func(eventTime time.Time, body string)

// ReceiveDispatcher decodes notifications arriving on a Session and invokes
// OnEvent per record, terminating on the notificationComplete sentinel or
// once the session leaves the working state (spec.md §4.J).
type ReceiveDispatcher struct {
	OnEvent OnEvent
}

// Run pulls frames from sess.Recv, decodes the notification envelope, and
// dispatches each one until termination. It shares ntf_active with the Send
// Dispatcher so a session is never driven by two dispatchers at once.
func (d *ReceiveDispatcher) Run(ctx context.Context, sess Session) error {
	flag := sess.NotificationFlag()
	if !flag.Claim() {
		return ErrAlreadyActive
	}
	defer flag.Clear()

	onEvent := d.OnEvent
	if onEvent == nil {
		onEvent = PrintEvent
	}

	log := logger.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !sess.Working() {
			return nil
		}

		frame, ok, err := sess.Recv()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		eventTime, body, err := xmlnotif.Decode(frame)
		if err != nil {
			log.Warn("receive dispatcher: malformed notification, skipping", "err", err)
			continue
		}

		_, kind, err := xmlnotif.ClassifyBody(body)
		if err != nil {
			log.Warn("receive dispatcher: malformed notification body, skipping", "err", err)
			continue
		}
		if kind == xmlnotif.KindNtfComplete {
			return nil
		}

		onEvent(eventTime, body)
	}
}

// PrintEvent is the default OnEvent: it writes "eventTime: <RFC 3339 time>"
// and then the body, each on its own line, to stdout.
func PrintEvent(eventTime time.Time, body string) {
	fmt.Printf("eventTime: %s\n%s\n", eventTime.Format(time.RFC3339), body)
}
