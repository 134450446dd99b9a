// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tui is the interactive terminal shell of the term tree: keyboard
// navigation, search and mouse drag-and-drop over a reconcile.Controller.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bcm/internal/config"
	"bcm/internal/dragdrop"
	"bcm/internal/reconcile"
)

// Options wires the shell to a loaded controller.
type Options struct {
	Controller *reconcile.Controller

	// Inbox must be the controller's Notifier for notifications to reach
	// the status line.
	Inbox *Inbox

	Geometry dragdrop.Config
	Cell     config.CellSize

	// ConfigPath is watched for geometry changes when set.
	ConfigPath string

	// Context bounds the store calls made by the shell.
	Context context.Context

	// Now is the clock used for the drag start delay.
	Now func() time.Time
}

// Run shows the tree until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts.Context = ctx

	p := tea.NewProgram(New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if opts.ConfigPath != "" {
		err := config.WatchClientConfig(ctx, opts.ConfigPath, func(cfg config.ClientConfig) {
			p.Send(configMsg{geometry: cfg.Geometry, cell: cfg.Cell})
		})
		if err != nil {
			slog.Warn("client config will not be reloaded", "error", err)
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Note is one notification of the controller.
type Note struct {
	Level   reconcile.Level
	Message string
}

// Inbox collects controller notifications until the shell shows them.
// Notifications arrive on the goroutine running the store call.
type Inbox struct {
	mu    sync.Mutex
	notes []Note
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify implements reconcile.Notifier.
func (in *Inbox) Notify(level reconcile.Level, message string) {
	in.mu.Lock()
	in.notes = append(in.notes, Note{Level: level, Message: message})
	in.mu.Unlock()
}

// Drain returns and clears the pending notifications.
func (in *Inbox) Drain() []Note {
	if in == nil {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.notes
	in.notes = nil
	return out
}
