// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by tests: bounded channel
// receives and sends, and condition polling, so individual tests never
// hang forever on a missed signal.
package testutil
