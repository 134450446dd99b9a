// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bcm/internal/reconcile"
	"bcm/internal/treeview"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#4527a0", Dark: "#b39ddb"})
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"})
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#4527a0", Dark: "#b39ddb"})
	parentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1e1e1e")).Background(lipgloss.Color("#ffb74d"))
	draggedStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	markedStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"})
	matchStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	contextStyle = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#81c784"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"})
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Terms: " + m.ctrl.Taxonomy()))
	b.WriteString("  ")
	b.WriteString(hintStyle.Render(m.hints()))
	b.WriteByte('\n')
	b.WriteString(m.searchLine())
	b.WriteByte('\n')

	lines := 0
	if len(m.rows) == 0 {
		if m.query != "" {
			b.WriteString(hintStyle.Render("  No terms match the search."))
		} else {
			b.WriteString(hintStyle.Render("  No terms yet."))
		}
		b.WriteByte('\n')
		lines++
	}
	end := min(m.offset+m.visibleRows(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteByte('\n')
		lines++
	}
	// Keep the status on the last line.
	for ; m.height > 0 && lines < m.visibleRows(); lines++ {
		b.WriteByte('\n')
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) hints() string {
	if !m.ctrl.Hierarchical() {
		return "↑/↓ select  / search  e rename  d delete  r reload  q quit"
	}
	return "↑/↓ select  enter toggle  E/C expand/collapse all  / search  drag or m,p move  e rename  d delete  q quit"
}

func (m Model) searchLine() string {
	switch {
	case m.renaming != 0:
		return "Rename: " + m.rename + "█"
	case m.searching:
		return "/" + m.query + "█"
	case m.query != "":
		return hintStyle.Render(fmt.Sprintf("Search: %s  (esc to clear)", m.query))
	}
	return ""
}

func (m Model) renderRow(i int) string {
	r := m.rows[i]

	cursor := strings.Repeat(" ", gutter)
	if i == m.cursor {
		cursor = cursorStyle.Render(">") + strings.Repeat(" ", gutter-1)
	}

	marker := " "
	if r.ShowToggle {
		marker = "▸"
		if r.Expanded {
			marker = "▾"
		}
	}

	return cursor +
		strings.Repeat(" ", m.indentCells(r.Indent)) +
		marker + " " +
		rowStyle(r, m.marked).Render(r.Name) + " " +
		hintStyle.Render(fmt.Sprintf("(%d)", r.Count))
}

func rowStyle(r treeview.Row, marked int64) lipgloss.Style {
	switch {
	case r.PotentialParent:
		return parentStyle
	case r.Dragged:
		return draggedStyle
	case r.TermID == marked:
		return markedStyle
	case r.Match:
		return matchStyle
	case r.Context:
		return contextStyle
	}
	return lipgloss.NewStyle()
}

func (m Model) statusLine() string {
	if m.ctrl.Busy() {
		return hintStyle.Render("Saving…")
	}
	if m.status == "" {
		return ""
	}
	if m.statusLevel == reconcile.LevelError {
		return errorStyle.Render(m.status)
	}
	return successStyle.Render(m.status)
}
