package ratewindow

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTracker_NeverLimited(t *testing.T) {
	tr := NewTracker(0, nil)
	if tr.LimitedInLast(time.Hour) {
		t.Error("fresh tracker reported rate limiting")
	}
	if _, ok := tr.LastLimited(); ok {
		t.Error("fresh tracker reported a last event")
	}
}

func TestTracker_Window(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(5*time.Minute, clock.Now)

	tr.Mark()
	clock.Advance(2 * time.Minute)

	tests := []struct {
		name   string
		window time.Duration
		want   bool
	}{
		{name: "inside window", window: 3 * time.Minute, want: true},
		{name: "exact boundary", window: 2 * time.Minute, want: true},
		{name: "outside window", window: time.Minute, want: false},
		{name: "default window", window: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.LimitedInLast(tt.window); got != tt.want {
				t.Errorf("LimitedInLast(%v) = %v, want %v", tt.window, got, tt.want)
			}
		})
	}

	clock.Advance(4 * time.Minute)
	if tr.LimitedInLast(0) {
		t.Error("default window of 5m should have elapsed")
	}
}

func TestTracker_MarkNeverMovesBackwards(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(0, clock.Now)

	tr.Mark()
	first, _ := tr.LastLimited()

	clock.Advance(-time.Hour)
	tr.Mark()

	last, _ := tr.LastLimited()
	if !last.Equal(first) {
		t.Errorf("LastLimited moved backwards: %v -> %v", first, last)
	}
}

func TestTracker_ConcurrentMark(t *testing.T) {
	tr := NewTracker(0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Mark()
			_ = tr.LimitedInLast(time.Second)
		}()
	}
	wg.Wait()

	if !tr.LimitedInLast(time.Minute) {
		t.Error("expected tracker to report recent rate limiting")
	}
}
