// Package ratewindow remembers when an oracle was last rate limited so that
// "rate limited in the last N seconds" can be answered without I/O.
package ratewindow

import (
	"sync/atomic"
	"time"
)

// DefaultWindow is used when a caller passes a non-positive window.
const DefaultWindow = 10 * time.Minute

// Tracker records the most recent rate-limit event. Safe for concurrent use.
type Tracker struct {
	lastUnixNano  atomic.Int64
	defaultWindow time.Duration
	now           func() time.Time
}

// NewTracker creates a Tracker. A non-positive defaultWindow selects DefaultWindow;
// a nil now selects time.Now.
func NewTracker(defaultWindow time.Duration, now func() time.Time) *Tracker {
	if defaultWindow <= 0 {
		defaultWindow = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{defaultWindow: defaultWindow, now: now}
}

// Mark records a rate-limit event at the current time.
func (t *Tracker) Mark() {
	at := t.now().UnixNano()
	for {
		prev := t.lastUnixNano.Load()
		if at <= prev || t.lastUnixNano.CompareAndSwap(prev, at) {
			return
		}
	}
}

// LastLimited returns when the last event was recorded, or ok=false if never.
func (t *Tracker) LastLimited() (at time.Time, ok bool) {
	n := t.lastUnixNano.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// LimitedInLast reports whether an event was recorded within window of now.
func (t *Tracker) LimitedInLast(window time.Duration) bool {
	last, ok := t.LastLimited()
	if !ok {
		return false
	}
	if window <= 0 {
		window = t.defaultWindow
	}
	return t.now().Sub(last) <= window
}
