// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// NewFake returns a FakeClock frozen at start. Time moves only when
// Advance is called; every timer and ticker registered through the
// Clock interface fires when the clock crosses its deadline.
//
// FakeClock is safe for concurrent use.
func NewFake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.registered = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a deterministic Clock for tests. AfterFunc callbacks
// run synchronously inside Advance, in deadline order. Do not call
// Advance from inside a callback.
type FakeClock struct {
	mu         sync.Mutex
	now        time.Time
	pending    []*pendingTimer
	registered *sync.Cond
}

type pendingTimer struct {
	deadline time.Time

	// Exactly one of ch and fn is set: ch for After and tickers,
	// fn for AfterFunc callbacks.
	ch chan time.Time
	fn func()

	// period is non-zero for tickers; the entry is rescheduled at
	// deadline+period after each fire.
	period time.Duration

	cancelled bool
	fired     bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives when the clock advances past d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.pending = append(c.pending, &pendingTimer{deadline: c.now.Add(d), ch: ch})
	c.registered.Broadcast()
	return ch
}

// AfterFunc schedules f to run when the clock advances past d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &pendingTimer{deadline: c.now.Add(d), fn: f}
	c.pending = append(c.pending, entry)
	c.registered.Broadcast()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if entry.cancelled || entry.fired {
			return false
		}
		entry.cancelled = true
		return true
	}}
}

// NewTicker returns a Ticker that fires once per interval crossed by
// Advance. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	entry := &pendingTimer{deadline: c.now.Add(d), ch: ch, period: d}
	c.pending = append(c.pending, entry)
	c.registered.Broadcast()

	return &Ticker{
		C: ch,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.cancelled = true
		},
	}
}

// Advance moves the clock forward by d and fires everything whose
// deadline falls within the new time, in deadline order. Channel sends
// are non-blocking (a full ticker channel drops the tick, matching
// time.Ticker).
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
		for _, entry := range due {
			if entry.fn != nil {
				entry.fn()
				continue
			}
			select {
			case entry.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes expired entries, reschedules tickers, and returns
// what should fire.
func (c *FakeClock) takeDue(target time.Time) []*pendingTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*pendingTimer
	for _, entry := range c.pending {
		switch {
		case entry.cancelled:
		case !entry.deadline.After(target):
			due = append(due, entry)
		default:
			keep = append(keep, entry)
		}
	}
	for _, entry := range due {
		if entry.period > 0 {
			entry.deadline = entry.deadline.Add(entry.period)
			keep = append(keep, entry)
		} else {
			entry.fired = true
		}
	}
	c.pending = keep
	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Use it to close the race between a goroutine registering a timer and
// the test advancing the clock.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.registered.Wait()
	}
}

// PendingTimers returns the number of active pending timers and
// tickers. Useful in assertions about timer cleanup.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	count := 0
	for _, entry := range c.pending {
		if !entry.cancelled {
			count++
		}
	}
	return count
}
