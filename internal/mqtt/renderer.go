package mqtt

import (
	"log"
	"time"

	"github.com/sweeney/port-monitor/internal/ports"
)

// Renderer publishes redrawn channels as port events. A touched channel is
// only published when its configured flag or value differs from the last
// published state, so accessed blinks alone produce no message. Channels
// that were never configured are not published.
type Renderer struct {
	pub  Publisher
	now  func() time.Time
	last map[ports.Channel]ports.View
}

// NewRenderer creates a Renderer. now is injectable for tests.
func NewRenderer(pub Publisher, now func() time.Time) *Renderer {
	return &Renderer{
		pub:  pub,
		now:  now,
		last: make(map[ports.Channel]ports.View),
	}
}

// DrawPort implements poll.Renderer. It runs on the run-loop goroutine and
// each publish may block for up to the publisher's timeout
// (Options.PublishTimeout for the real client).
func (r *Renderer) DrawPort(ch ports.Channel, view ports.View) {
	prev, seen := r.last[ch]
	if !seen && !view.Configured {
		// nothing has used the port yet
		return
	}
	if seen && prev.Configured == view.Configured && prev.Value == view.Value {
		return
	}

	event := PortEvent{Timestamp: r.now(), Channel: ch, View: view}
	if err := r.pub.Publish(event); err != nil {
		log.Printf("publish %s error: %v", ch, err)
		// Don't record: retry on the next redraw
		return
	}
	r.last[ch] = view
}

// Forget drops the published state so every channel is published again on
// its next redraw (e.g. after a store reset).
func (r *Renderer) Forget() {
	r.last = make(map[ports.Channel]ports.View)
}
