// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts timer creation so the connection manager and
// lock tracker can be tested without real delays. Production code
// injects Real(); tests inject a FakeClock and advance it explicitly.
package clock
