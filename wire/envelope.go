// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is a protocol message in its internal form: a type
// discriminator plus a field map whose keys use the camelCase
// convention. Fields holds whatever the message carries — the protocol
// is forward compatible, so unknown fields ride along untouched.
type Envelope struct {
	Type   string
	Fields map[string]any
}

// NewEnvelope builds an envelope from a type and optional fields.
func NewEnvelope(messageType string, fields map[string]any) Envelope {
	if fields == nil {
		fields = map[string]any{}
	}
	return Envelope{Type: messageType, Fields: fields}
}

// DecodeError reports a frame that could not be parsed as a protocol
// message. Callers drop the frame and keep the connection open.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
	}
	return "wire: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes the envelope to a wire frame, converting every
// field key from camelCase to snake_case. The type discriminator is
// emitted as the "type" field.
func Encode(envelope Envelope) ([]byte, error) {
	frame := make(map[string]any, len(envelope.Fields)+1)
	for key, value := range envelope.Fields {
		frame[snakeCase(key)] = transformKeys(value, snakeCase)
	}
	frame["type"] = envelope.Type

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %s message: %w", envelope.Type, err)
	}
	return data, nil
}

// Decode parses a wire frame into an envelope, converting every field
// key from snake_case to camelCase. Malformed input yields a
// *DecodeError.
func Decode(data []byte) (Envelope, error) {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return Envelope{}, &DecodeError{Reason: "malformed frame", Err: err}
	}

	messageType, _ := frame["type"].(string)
	delete(frame, "type")

	fields := make(map[string]any, len(frame))
	for key, value := range frame {
		fields[camelCase(key)] = transformKeys(value, camelCase)
	}
	return Envelope{Type: messageType, Fields: fields}, nil
}

// String returns the named field as a string, or "" when absent or of
// another type.
func (e Envelope) String(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}

// Int returns the named field as an int. JSON numbers decode as
// float64; the value is truncated.
func (e Envelope) Int(key string) int {
	switch n := e.Fields[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// Float returns the named field as a float64, or 0 when absent.
func (e Envelope) Float(key string) float64 {
	n, _ := e.Fields[key].(float64)
	return n
}

// Bool returns the named field as a bool, or false when absent.
func (e Envelope) Bool(key string) bool {
	b, _ := e.Fields[key].(bool)
	return b
}

// timestampLayouts are the accepted forms of backend timestamps:
// RFC 3339 with or without fractional seconds, and the zone-less
// ISO-8601 variant the backend emits for last_modified (interpreted
// as UTC).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Time parses the named field as a backend timestamp. Returns the zero
// time when the field is absent or unparsable.
func (e Envelope) Time(key string) time.Time {
	raw, ok := e.Fields[key].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Map returns the named field as a nested object, or nil.
func (e Envelope) Map(key string) map[string]any {
	m, _ := e.Fields[key].(map[string]any)
	return m
}

// Maps returns the named field as a list of nested objects, skipping
// any element that is not an object.
func (e Envelope) Maps(key string) []map[string]any {
	list, ok := e.Fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, element := range list {
		if m, ok := element.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// FormatTimestamp renders a time in the wire timestamp form (RFC 3339
// with fractional seconds, UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
