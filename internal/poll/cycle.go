// Package poll implements the per-tick refresh protocol: offer every touched
// channel to a renderer, then clear all touched flags.
package poll

import "github.com/sweeney/port-monitor/internal/ports"

// Renderer draws one channel. It must treat the store as read-only.
type Renderer interface {
	DrawPort(ch ports.Channel, view ports.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ch ports.Channel, view ports.View)

// DrawPort calls f.
func (f RendererFunc) DrawPort(ch ports.Channel, view ports.View) { f(ch, view) }

// Cycle runs the refresh protocol against one store. The caller owns the
// tick; Cycle never schedules anything itself.
type Cycle struct {
	store     *ports.Store
	renderers []Renderer
}

// NewCycle creates a Cycle drawing to the given renderers in order.
func NewCycle(store *ports.Store, renderers ...Renderer) *Cycle {
	return &Cycle{store: store, renderers: renderers}
}

// Tick performs one refresh when foreground is true and returns the number
// of channels drawn. Touched channels are drawn digital 0..53 then analog
// 0..15, after which every touched flag is cleared whether it was set or not.
// In the background Tick does nothing and flags keep accumulating.
func (c *Cycle) Tick(foreground bool) int {
	if !foreground {
		return 0
	}

	drawn := 0
	for _, ch := range ports.All() {
		if !c.store.IsTouched(ch.Class, ch.Index) {
			continue
		}
		view := c.store.View(ch.Class, ch.Index)
		for _, r := range c.renderers {
			r.DrawPort(ch, view)
		}
		drawn++
	}

	for i := 0; i < ports.DigitalCount; i++ {
		c.store.SetTouched(ports.Digital, i, false)
	}
	for i := 0; i < ports.AnalogCount; i++ {
		c.store.SetTouched(ports.Analog, i, false)
	}
	return drawn
}

// Invalidate marks every channel touched so the next Tick redraws all of
// them, e.g. when a renderer first attaches.
func (c *Cycle) Invalidate() {
	for _, ch := range ports.All() {
		c.store.SetTouched(ch.Class, ch.Index, true)
	}
}
