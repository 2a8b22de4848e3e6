// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package persist stores sessions, transcripts, settings, and
// credentials in a local SQLite database so the client has history
// while offline.
//
// The session store writes through this package on every mutation and
// hydrates from it at startup. Reads and writes go through a small
// connection pool with WAL mode enabled, so a slow disk write never
// blocks a concurrent read.
package persist
