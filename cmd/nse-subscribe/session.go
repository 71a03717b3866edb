package main

import "github.com/955Gmy/libnetconf/internal/nse/dispatch"

// pipeSession is a loopback dispatch.Session: nse-subscribe has no real
// NETCONF transport to a peer, so the Send Dispatcher and Receive
// Dispatcher are wired back to back over an in-process channel, the same
// role a real transport would otherwise play. Each side of the pipe gets
// its own ntf_active flag, matching how a real sender session and a real
// receiver session are independent objects even when they are endpoints of
// the same subscription.
type pipeSession struct {
	capable bool
	flag    dispatch.ActiveFlag
	frames  chan string
	closed  bool
}

func newPipe(capacity int) (send *pipeSession, recv *pipeSession) {
	ch := make(chan string, capacity)
	send = &pipeSession{capable: true, frames: ch}
	recv = &pipeSession{capable: true, frames: ch}
	return send, recv
}

func (p *pipeSession) Working() bool                  { return !p.closed }
func (p *pipeSession) HasNotificationCapability() bool { return p.capable }
func (p *pipeSession) NotificationFlag() *dispatch.ActiveFlag { return &p.flag }

func (p *pipeSession) Send(frame string) error {
	p.frames <- frame
	return nil
}

func (p *pipeSession) Recv() (string, bool, error) {
	frame, ok := <-p.frames
	return frame, ok, nil
}

func (p *pipeSession) closeSend() {
	p.closed = true
	close(p.frames)
}
