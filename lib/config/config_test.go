// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicecode.yaml")
	content := `
server:
  host: assistant.example.net
  port: 9090
reconnect:
  max_attempts: 5
  max_delay: 10s
locks:
  timeout: 90s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.URL() != "ws://assistant.example.net:9090/ws" {
		t.Errorf("URL = %s", cfg.Server.URL())
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Reconnect.MaxDelay.Std() != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", cfg.Reconnect.MaxDelay)
	}
	if cfg.Locks.Timeout.Std() != 90*time.Second {
		t.Errorf("Locks.Timeout = %v, want 90s", cfg.Locks.Timeout)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Keepalive.Interval.Std() != 30*time.Second {
		t.Errorf("Keepalive.Interval = %v, want default 30s", cfg.Keepalive.Interval)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicecode.yaml")
	if err := os.WriteFile(path, []byte("server:\n  host: \"\"\n  port: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "server.host") {
		t.Errorf("error missing host complaint: %v", err)
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("error missing port complaint: %v", err)
	}
}

func TestLoadMissingEnvUsesDefaults(t *testing.T) {
	t.Setenv("VOICECODE_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Host = %s, want localhost", cfg.Server.Host)
	}
}
