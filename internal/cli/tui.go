// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bcm/internal/reconcile"
	"bcm/internal/tui"
)

func (a *app) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and rearrange the term tree interactively",
		Long: "Browse and rearrange the term tree interactively. Drag a term with the mouse,\n" +
			"or mark it with m and press p on its new parent. Logs go to $BCM_LOG when set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := tuiLogging()
			if err != nil {
				return err
			}
			defer closeLog()

			inbox := tui.NewInbox()
			ctrl, err := a.controller(cmd, reconcile.Options{Notifier: inbox})
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.Options{
				Controller: ctrl,
				Inbox:      inbox,
				Geometry:   a.cfg.Geometry,
				Cell:       a.cfg.Cell,
				ConfigPath: a.configPath,
			})
		},
	}
}

// tuiLogging keeps log output off the screen: to $BCM_LOG, or nowhere.
func tuiLogging() (func(), error) {
	path := os.Getenv("BCM_LOG")
	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { f.Close() }, nil
}
