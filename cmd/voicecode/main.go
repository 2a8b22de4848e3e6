// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// voicecode is the interactive terminal client for the VoiceCode
// backend. It keeps a WebSocket connection to the backend, mirrors
// sessions and transcripts into a local SQLite database, and renders
// them in a TUI with optimistic prompt submission.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/voicecode-project/voicecode/client"
	"github.com/voicecode-project/voicecode/lib/config"
	"github.com/voicecode-project/voicecode/persist"
	"github.com/voicecode-project/voicecode/session"
	"github.com/voicecode-project/voicecode/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		host       string
		port       int
		dbPath     string
		workingDir string
		logOutput  string
	)

	flagSet := pflag.NewFlagSet("voicecode", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $VOICECODE_CONFIG)")
	flagSet.StringVar(&host, "host", "", "backend host (overrides config)")
	flagSet.IntVar(&port, "port", 0, "backend port (overrides config)")
	flagSet.StringVar(&dbPath, "db", "", "local database path (overrides config)")
	flagSet.StringVar(&workingDir, "working-dir", "", "project directory for new sessions (default: cwd)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if workingDir == "" {
		workingDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}

	// Stderr belongs to the TUI renderer; logs go to a file or nowhere.
	logger, closeLog, err := newLogger(logOutput)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := persist.Open(persist.Config{Path: cfg.Storage.Path, Logger: logger})
	if err != nil {
		return err
	}
	defer db.Close()

	store := session.NewStore(session.StoreConfig{Logger: logger, Persistence: db})
	if err := store.Hydrate(); err != nil {
		return err
	}

	// The program variable is captured by callbacks that only fire
	// after everything is wired and Connect has been called.
	var program *tea.Program

	locks := session.NewLockTracker(session.LockTrackerConfig{
		Timeout: cfg.Locks.Timeout.Std(),
		Logger:  logger,
		OnAutoUnlock: func(sessionID string) {
			program.Send(tui.LockChangedMsg{SessionID: sessionID})
		},
	})

	router := &client.Router{Logger: logger}
	conn, err := client.New(client.Config{
		URL:          cfg.Server.URL(),
		Router:       router,
		Logger:       logger,
		PingInterval: cfg.Keepalive.Interval.Std(),
		MaxAttempts:  cfg.Reconnect.MaxAttempts,
		MaxDelay:     cfg.Reconnect.MaxDelay.Std(),
		OnState: func(s client.State) {
			program.Send(tui.ConnStateMsg{State: s})
		},
	})
	if err != nil {
		return err
	}

	model := tui.NewModel(tui.Config{
		Store:            store,
		Locks:            locks,
		Conn:             conn,
		WorkingDirectory: workingDir,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	wireRouter(router, store, locks, program, logger)
	store.Subscribe(func() {
		program.Send(tui.StoreChangedMsg{})
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		if err := conn.Connect(ctx); err != nil {
			// The client keeps retrying on its own; the TUI shows the
			// connection state.
			logger.Warn("initial connection failed", "error", err)
		}
		<-ctx.Done()
		conn.Disconnect()
		program.Quit()
		return nil
	})
	return g.Wait()
}

// wireRouter binds inbound protocol messages to store and lock
// mutations. Every mutation triggers a store notification, which the
// subscription above converts into a TUI refresh.
func wireRouter(router *client.Router, store *session.Store, locks *session.LockTracker, program *tea.Program, logger *slog.Logger) {
	router.SessionList = func(sessions []client.SessionSummary) {
		for _, s := range sessions {
			store.UpsertSession(summaryToSession(s))
		}
	}
	router.SessionCreated = func(s client.SessionSummary) {
		store.UpsertSession(summaryToSession(s))
	}
	router.SessionDeleted = func(sessionID string) {
		store.DeleteSession(sessionID)
	}
	router.Message = func(m client.MessageEvent) {
		store.Reconcile(m.SessionID, session.Message{
			ID:            m.ID,
			CorrelationID: m.CorrelationID,
			Role:          session.Role(m.Role),
			Text:          m.Text,
			Timestamp:     m.Timestamp,
		})
	}
	router.CommandOutput = func(e client.CommandOutputEvent) {
		store.Reconcile(e.SessionID, session.Message{
			ID:        uuid.NewString(),
			Role:      session.RoleSystem,
			Text:      e.Output,
			Timestamp: e.Timestamp,
		})
	}
	router.CommandComplete = func(e client.CommandCompleteEvent) {
		store.Reconcile(e.SessionID, session.Message{
			ID:        uuid.NewString(),
			Role:      session.RoleSystem,
			Text:      fmt.Sprintf("command exited with code %d", e.ExitCode),
			Timestamp: e.Timestamp,
		})
	}
	router.TurnComplete = func(sessionID string) {
		locks.Unlock(sessionID)
		program.Send(tui.LockChangedMsg{SessionID: sessionID})
	}
	router.SessionLocked = func(sessionID string) {
		locks.Lock(sessionID)
		program.Send(tui.LockChangedMsg{SessionID: sessionID})
	}
	router.SessionUnlocked = func(sessionID string) {
		locks.Unlock(sessionID)
		program.Send(tui.LockChangedMsg{SessionID: sessionID})
	}
	router.AuthError = func(code, message string) {
		logger.Error("authentication rejected", "code", code, "message", message)
		program.Send(tui.AuthErrorMsg{Code: code, Message: message})
	}
	router.ServerError = func(message string) {
		logger.Warn("server error", "message", message)
	}
}

func summaryToSession(s client.SessionSummary) session.Session {
	return session.Session{
		ID:               s.ID,
		Name:             s.Name,
		WorkingDirectory: s.WorkingDirectory,
		LastModified:     s.LastModified,
		MessageCount:     s.MessageCount,
		Preview:          s.Preview,
		QueuePosition:    s.QueuePosition,
		QueuePriority:    s.QueuePriority,
		PriorityOrder:    s.PriorityOrder,
		QueuedAt:         s.QueuedAt,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { file.Close() }, nil
}
