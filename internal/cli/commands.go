// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bcm/internal/models"
	"bcm/internal/reconcile"
	"bcm/internal/treeview"
)

func (a *app) treeCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the term tree",
		Long:  "Print the term tree. Collapsed terms hide their children unless --all is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			if all {
				printAll(cmd.OutOrStdout(), ctrl)
				return nil
			}
			printRows(cmd.OutOrStdout(), ctrl.Render().Rows())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every term regardless of expansion")
	return cmd
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Show the terms whose name contains query, with their ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			ctrl.OnSearch(args[0])
			rows := ctrl.Render().Rows()
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No terms match %q.\n", args[0])
				return nil
			}
			printRows(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

func (a *app) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <term-id> <parent-id>",
		Short: "Move a term under another term (0 for the top level)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, err := parseID(args[0], false)
			if err != nil {
				return err
			}
			parentID, err := parseID(args[1], true)
			if err != nil {
				return err
			}
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			if !ctrl.Tree().Has(termID) {
				return fmt.Errorf("term %d not found", termID)
			}
			if ctrl.Tree().ParentOf(termID) == parentID {
				fmt.Fprintln(cmd.OutOrStdout(), "Term is already there.")
				return nil
			}
			return outcome(ctrl.OnDragDrop(cmd.Context(), termID, parentID))
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <term-id>",
		Short: "Delete a term; its children move up one level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, err := parseID(args[0], false)
			if err != nil {
				return err
			}
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			_, err = ctrl.OnDelete(cmd.Context(), termID)
			return outcome(err)
		},
	}
}

func (a *app) saveCommand() *cobra.Command {
	var form models.TermForm
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a term, or update it when --id is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			if !form.IsNew() && !cmd.Flags().Changed("parent") {
				// Keep the current parent unless asked to move.
				if ctrl.Tree().Has(form.TermID) {
					form.Parent = ctrl.Tree().ParentOf(form.TermID)
				}
			}
			res, err := ctrl.OnSave(cmd.Context(), form)
			if err != nil {
				return outcome(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, slug %s)\n", res.Term.Name, res.Term.ID, res.Term.Slug)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&form.TermID, "id", 0, "term to update")
	f.StringVar(&form.Name, "name", "", "term name")
	f.StringVar(&form.Slug, "slug", "", "term slug (derived from the name when empty)")
	f.StringVar(&form.Description, "description", "", "term description (Markdown)")
	f.Int64Var(&form.Parent, "parent", 0, "parent term (0 for the top level)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <term-id>",
		Short: "Show a term with the parents it may take",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			termID, err := parseID(args[0], false)
			if err != nil {
				return err
			}
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			data, err := ctrl.EditData(cmd.Context(), termID)
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			t := data.Term
			fmt.Fprintf(out, "ID:          %d\nName:        %s\nSlug:        %s\nParent:      %d\nCount:       %d\n",
				t.ID, t.Name, t.Slug, t.Parent, t.Count)
			if t.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", t.Description)
			}
			if data.Hierarchical {
				fmt.Fprintln(out, "\nPossible parents:")
				printOptions(out, data.ParentOptions, t.Parent)
			}
			return nil
		},
	}
}

func (a *app) parentsCommand() *cobra.Command {
	var markup bool
	cmd := &cobra.Command{
		Use:   "parents",
		Short: "List every term that can be chosen as a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.controller(cmd, reconcile.Options{})
			if err != nil {
				return err
			}
			res, err := ctrl.ParentOptions(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if markup {
				fmt.Fprintln(cmd.OutOrStdout(), res.Markup)
				return nil
			}
			printOptions(cmd.OutOrStdout(), res.Options, -1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&markup, "markup", false, "print the dropdown HTML instead")
	return cmd
}

func parseID(s string, allowZero bool) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 || (id == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid term ID %q", s)
	}
	return id, nil
}

// printRows prints rendered rows, indented by depth. Collapsed terms show
// "+", expanded ones "-", and search matches are starred.
func printRows(w io.Writer, rows []treeview.Row) {
	for _, r := range rows {
		marker := " "
		if r.ShowToggle {
			marker = "+"
			if r.Expanded {
				marker = "-"
			}
		}
		match := ""
		if r.Match {
			match = " *"
		}
		fmt.Fprintf(w, "%s%s %s [%d] (%d)%s\n", strings.Repeat("  ", r.Depth), marker, r.Name, r.TermID, r.Count, match)
	}
}

func printAll(w io.Writer, ctrl *reconcile.Controller) {
	tree := ctrl.Tree()
	for _, t := range tree.Flatten() {
		fmt.Fprintf(w, "%s%s [%d] (%d)\n", strings.Repeat("  ", tree.Depth(t.ID)), t.Name, t.ID, t.Count)
	}
}

// printOptions prints parent choices; current is marked.
func printOptions(w io.Writer, options []models.ParentOption, current int64) {
	mark := func(id int64) string {
		if id == current {
			return " <"
		}
		return ""
	}
	fmt.Fprintf(w, "  None [0]%s\n", mark(0))
	for _, o := range options {
		fmt.Fprintf(w, "  %s%s [%d]%s\n", strings.Repeat("  ", o.Depth), o.Name, o.ID, mark(o.ID))
	}
}
