// Package progress carries status updates from a running download to the
// parties observing it.
package progress

import (
	"sync"

	"github.com/jmagar/prodl/internal/model"
)

// Reporter receives progress events from a download strategy.
type Reporter interface {
	Report(ev model.ProgressEvent)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(model.ProgressEvent)

// Report calls f(ev).
func (f ReporterFunc) Report(ev model.ProgressEvent) { f(ev) }

// Discard is a Reporter that drops every event.
var Discard Reporter = ReporterFunc(func(model.ProgressEvent) {})

// Status builds a non-terminal event.
func Status(percent int, msg string) model.ProgressEvent {
	return model.ProgressEvent{Percent: percent, Message: msg}
}

// Succeeded builds a terminal success event at 100%.
func Succeeded(msg string) model.ProgressEvent {
	return model.ProgressEvent{Percent: 100, Message: msg, Success: true}
}

// Failed builds a terminal error event. Percent is left at whatever the
// channel last reported.
func Failed(msg string) model.ProgressEvent {
	return model.ProgressEvent{Message: msg, Failed: true}
}

// Channel is the status sink of one request. One goroutine reports; any
// number of subscribers read.
//
// Percent never moves backwards: a lower value is raised to the last one
// seen. Once a terminal event has been reported, later reports are dropped.
// Non-terminal events are skipped for subscribers whose buffer is full.
// A terminal event evicts the oldest buffered event instead, so it is
// always delivered and Report never blocks.
type Channel struct {
	mu     sync.Mutex
	sendMu sync.Mutex
	last   model.ProgressEvent
	subs   []chan model.ProgressEvent
	done   bool
	closed bool
}

// NewChannel returns an empty Channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Subscribe returns a receive channel with the given buffer size. The
// latest event, if any, is replayed first. The channel is closed by Close.
func (c *Channel) Subscribe(buffer int) <-chan model.ProgressEvent {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.ProgressEvent, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last != (model.ProgressEvent{}) {
		ch <- c.last
	}
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Report publishes ev to every subscriber.
func (c *Channel) Report(ev model.ProgressEvent) {
	c.mu.Lock()
	if c.done || c.closed {
		c.mu.Unlock()
		return
	}
	if ev.Percent < c.last.Percent {
		ev.Percent = c.last.Percent
	}
	if ev.Percent > 100 {
		ev.Percent = 100
	}
	c.last = ev
	terminal := ev.Terminal()
	if terminal {
		c.done = true
	}
	subs := append([]chan model.ProgressEvent(nil), c.subs...)
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.mu.Unlock()

	for _, ch := range subs {
		if terminal {
			deliver(ch, ev)
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func deliver(ch chan model.ProgressEvent, ev model.ProgressEvent) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Last returns the most recent event.
func (c *Channel) Last() model.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Close closes every subscriber channel. Safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}
