// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"math/rand/v2"
	"time"
)

// backoff computes reconnect delays: exponential doubling from one
// second, capped at maxDelay, with ±25% jitter so a fleet of clients
// does not reconnect in lockstep. The jittered delay never drops below
// one second.
type backoff struct {
	maxDelay time.Duration

	// random returns a value in [0, 1). Tests substitute a fixed
	// function to pin the jitter.
	random func() float64
}

func newBackoff(maxDelay time.Duration) backoff {
	return backoff{maxDelay: maxDelay, random: rand.Float64}
}

// delay returns the wait before retry number attempt (zero-based).
func (b backoff) delay(attempt int) time.Duration {
	base := b.maxDelay
	if attempt < 30 {
		if d := time.Second << attempt; d < base {
			base = d
		}
	}

	// Scale by a factor in [0.75, 1.25).
	factor := 0.75 + b.random()/2
	jittered := time.Duration(float64(base) * factor)
	if jittered < time.Second {
		jittered = time.Second
	}
	return jittered
}
