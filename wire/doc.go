// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the JSON codec for the backend WebSocket
// protocol. The wire uses snake_case field names; everything inside
// the client uses camelCase. Encode and Decode convert between the two
// conventions recursively, touching only map keys — values, including
// strings that happen to contain underscores, pass through untouched.
//
// A decode failure is reported as a *DecodeError. Connection code
// treats that as "drop the frame and keep reading": one malformed
// frame must never take the connection down.
package wire
