// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads client configuration from a single YAML file,
// located via the VOICECODE_CONFIG environment variable or a --config
// flag. There is no search path and no environment-variable override
// of individual values: the file is the one source of truth, which
// keeps a misbehaving client auditable.
package config
