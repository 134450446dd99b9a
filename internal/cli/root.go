// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cli implements the bcmctl commands. Every command drives a
// reconcile.Controller against the term store of a running server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bcm/internal/config"
	"bcm/internal/expansion"
	"bcm/internal/reconcile"
	"bcm/internal/termstore"
)

// errReported marks a failure the user has already been told about.
var errReported = errors.New("command failed")

// StoreFactory opens the term store described by cfg.
type StoreFactory func(cfg config.ClientConfig) (termstore.Store, error)

// HTTPStore is the StoreFactory of a real server.
func HTTPStore(cfg config.ClientConfig) (termstore.Store, error) {
	return termstore.NewClient(termstore.ClientConfig{BaseURL: cfg.URL, Timeout: cfg.Timeout})
}

type app struct {
	newStore StoreFactory

	configPath string
	url        string
	taxonomy   string
	noState    bool

	cfg config.ClientConfig
}

// NewRootCommand builds the bcmctl command tree. newStore is called once
// per command; nil means HTTPStore.
func NewRootCommand(newStore StoreFactory) *cobra.Command {
	if newStore == nil {
		newStore = HTTPStore
	}
	a := &app{newStore: newStore}

	root := &cobra.Command{
		Use:           "bcmctl",
		Short:         "Manage the category tree of a site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultClientConfigPath(), "client config file")
	flags.StringVar(&a.url, "url", "", "site URL (overrides config and BCM_URL)")
	flags.StringVarP(&a.taxonomy, "taxonomy", "t", "", "taxonomy to manage (default from config)")
	flags.BoolVar(&a.noState, "no-state", false, "do not read or write the saved expansion state")

	root.AddCommand(
		a.treeCommand(),
		a.searchCommand(),
		a.moveCommand(),
		a.deleteCommand(),
		a.saveCommand(),
		a.editCommand(),
		a.parentsCommand(),
		a.tuiCommand(),
	)
	return root
}

// Execute runs bcmctl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(nil)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadClientConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("url") {
		cfg.URL = a.url
	}
	if a.taxonomy != "" {
		cfg.Taxonomy = a.taxonomy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// printNotifier writes each notification as one line: successes to out,
// errors to errOut.
func printNotifier(out, errOut io.Writer) reconcile.Notifier {
	return reconcile.NotifierFunc(func(level reconcile.Level, msg string) {
		if level == reconcile.LevelError {
			fmt.Fprintln(errOut, "error:", msg)
			return
		}
		fmt.Fprintln(out, msg)
	})
}

// controller opens the store and loads the configured taxonomy.
func (a *app) controller(cmd *cobra.Command, opts reconcile.Options) (*reconcile.Controller, error) {
	store, err := a.newStore(a.cfg)
	if err != nil {
		return nil, err
	}
	opts.Store = store
	opts.Taxonomy = a.cfg.Taxonomy
	if opts.Notifier == nil {
		opts.Notifier = printNotifier(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
	if opts.Expansion == nil && !a.noState && a.cfg.StateFile != "" {
		opts.Expansion = expansion.NewFileStore(a.cfg.StateFile)
	}

	ctrl, err := reconcile.New(opts)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(cmd.Context()); err != nil {
		return nil, describe(err)
	}
	return ctrl, nil
}

// describe turns store errors into messages fit for a terminal.
func describe(err error) error {
	var rej *termstore.RejectionError
	if errors.As(err, &rej) {
		return errors.New(rej.Message)
	}
	var reqErr *termstore.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("cannot reach the term store: %w", reqErr)
	}
	return err
}

// outcome maps the error of a controller command to the command result.
// The controller has notified the user of everything except its own
// refusals.
func outcome(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reconcile.ErrBusy),
		errors.Is(err, reconcile.ErrNotHierarchical),
		errors.Is(err, reconcile.ErrNotLoaded):
		return err
	}
	return errReported
}
