package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/subscribe"
	"github.com/955Gmy/libnetconf/internal/nse/validate"
	"github.com/955Gmy/libnetconf/internal/nse/xmlnotif"
)

// ErrNotWorking, ErrNoCapability and ErrAlreadyActive are the per-session
// preconditions spec.md §4.I requires before a dispatcher may run.
var (
	ErrNotWorking    = fmt.Errorf("dispatch: session is not in the working state")
	ErrNoCapability  = fmt.Errorf("dispatch: session did not advertise the notification capability")
	ErrAlreadyActive = fmt.Errorf("dispatch: a dispatcher is already active on this session")
)

// SendDispatcher drives a subscribe.Cursor over a Session, applying an
// optional filter per record (spec.md §4.I).
type SendDispatcher struct {
	// Filter, if non-nil, is applied to every record's body excluding the
	// eventTime element (walked via xmlnotif.TopLevelElements). A record with
	// every child filtered out is skipped rather than sent.
	Filter xmlnotif.Filter
}

// Run drives cur to completion against sess, framing each surviving record
// and handing it to sess.Send, then sends the notificationComplete sentinel
// and clears ntf_active.
func (d *SendDispatcher) Run(ctx context.Context, sess Session, req *validate.Request, cur *subscribe.Cursor) error {
	if !sess.Working() {
		return ErrNotWorking
	}
	if !sess.HasNotificationCapability() {
		return ErrNoCapability
	}
	flag := sess.NotificationFlag()
	if !flag.Claim() {
		return ErrAlreadyActive
	}
	defer flag.Clear()

	log := logger.WithStream(logger.Logger(), req.Stream)
	for {
		eventTime, body, done, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if done {
			break
		}
		if err := d.sendIfSurvives(sess, req.Filter, eventTime, body); err != nil {
			log.Error("send dispatcher: send failed", "err", err)
			return err
		}
	}

	frame := xmlnotif.Encode(time.Now().Unix(), xmlnotif.NtfCompleteBody)
	return sess.Send(frame)
}

// sendIfSurvives applies filterXML (if any) to body's top-level children
// excluding eventTime, skipping the record if none survive.
func (d *SendDispatcher) sendIfSurvives(sess Session, filterXML string, eventTime int64, body string) error {
	if filterXML != "" && d.Filter != nil {
		children, err := xmlnotif.TopLevelElements(body)
		if err != nil {
			// A body that fails to parse here is an internal consistency
			// failure (dispatch doesn't write record bodies), not a
			// caller-facing filter error; skip rather than abort the feed.
			return nil
		}
		survived := false
		for _, child := range children {
			if d.Filter(filterXML, child) {
				survived = true
				break
			}
		}
		if !survived {
			return nil
		}
	}
	return sess.Send(xmlnotif.Encode(eventTime, body))
}
