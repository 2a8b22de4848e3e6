// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package client maintains the WebSocket connection to the VoiceCode
// backend: dialing, the keepalive ping, automatic reconnection with
// exponential backoff, and routing of inbound protocol messages to
// typed handlers.
//
// The Client owns exactly one logical connection at a time. Each call
// to Connect supersedes the previous connection; timer callbacks from a
// superseded connection detect this through an epoch counter and do
// nothing. All timers come from an injected clock so tests can drive
// reconnection and keepalive deterministically.
package client
