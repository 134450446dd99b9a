// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bcm/internal/config"
	"bcm/internal/dragdrop"
	"bcm/internal/models"
	"bcm/internal/reconcile"
	"bcm/internal/termstore"
	"bcm/internal/treeview"
)

const (
	// headerLines is the title and search line above the tree.
	headerLines = 2
	// gutter is the cursor column left of every row.
	gutter = 2

	searchDebounce = 300 * time.Millisecond
)

var defaultCell = config.CellSize{Width: 10, Height: 20}

type (
	searchMsg struct {
		seq   int
		query string
	}
	doneMsg   struct{ err error }
	loadedMsg struct{ err error }
	configMsg struct {
		geometry dragdrop.Config
		cell     config.CellSize
	}
)

// press is a held left button that may turn into a drag.
type press struct {
	termID int64
	at     time.Time
	x, y   int
}

// Model is the bubbletea model of the term tree.
type Model struct {
	ctx    context.Context
	ctrl   *reconcile.Controller
	inbox  *Inbox
	engine *dragdrop.Engine
	cell   config.CellSize
	now    func() time.Time

	rows     []treeview.Row
	selected int64
	cursor   int
	offset   int
	width    int
	height   int

	searching bool
	query     string
	searchSeq int

	press    *press
	dragRows []dragdrop.Row
	preview  *treeview.DragPreview

	// marked is the term picked with "m" for a keyboard move.
	marked        int64
	confirmDelete int64

	// renaming is the term whose name is being edited.
	renaming int64
	rename   string

	status      string
	statusLevel reconcile.Level
}

// New returns the model for a controller. The controller is normally
// loaded already; otherwise Init loads it.
func New(opts Options) Model {
	m := Model{
		ctx:    opts.Context,
		ctrl:   opts.Controller,
		inbox:  opts.Inbox,
		engine: dragdrop.NewEngine(opts.Geometry),
		cell:   opts.Cell,
		now:    opts.Now,
		query:  opts.Controller.Query(),
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.cell.Width <= 0 || m.cell.Height <= 0 {
		m.cell = defaultCell
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.ctrl.Tree() == nil {
		return m.load()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.renaming != 0 {
			return m.updateRename(msg)
		}
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case searchMsg:
		// Only the last keystroke of a burst searches.
		if msg.seq == m.searchSeq {
			m.ctrl.OnSearch(msg.query)
			m.refresh()
		}
		return m, nil

	case doneMsg:
		m.finish(msg.err)
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.setStatus(reconcile.LevelError, message(msg.err))
		} else {
			m.setStatus(reconcile.LevelSuccess, "Terms reloaded.")
		}
		m.refresh()
		return m, nil

	case configMsg:
		m.engine.SetConfig(msg.geometry)
		if msg.cell.Width > 0 && msg.cell.Height > 0 {
			m.cell = msg.cell
		}
		m.setStatus(reconcile.LevelSuccess, "Configuration reloaded.")
		return m, nil
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if id := m.confirmDelete; id != 0 {
		m.confirmDelete = 0
		if msg.String() != "y" {
			m.setStatus(reconcile.LevelSuccess, "Delete cancelled.")
			return m, nil
		}
		m.status = ""
		return m, m.mutate(func(ctx context.Context, ctrl *reconcile.Controller) error {
			_, err := ctrl.OnDelete(ctx, id)
			return err
		})
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.visibleRows())
	case "pgdown":
		m.moveCursor(m.visibleRows())
	case "home", "g":
		m.moveCursor(-len(m.rows))
	case "end", "G":
		m.moveCursor(len(m.rows))
	case "enter", " ":
		m.toggle(m.cursor)
	case "right", "l":
		if row, ok := m.current(); ok && row.ShowToggle && !row.Expanded {
			m.toggle(m.cursor)
		}
	case "left", "h":
		if row, ok := m.current(); ok && row.ShowToggle && row.Expanded {
			m.toggle(m.cursor)
		} else {
			m.selectParent()
		}
	case "E":
		m.ctrl.OnExpandAll()
		m.refresh()
	case "C":
		m.ctrl.OnCollapseAll()
		m.refresh()
	case "/":
		m.searching = true
	case "esc":
		m.cancel()
	case "m":
		m.mark()
	case "p":
		if row, ok := m.current(); ok {
			return m.moveMarked(row.TermID)
		}
	case "P":
		return m.moveMarked(0)
	case "e":
		m.startRename()
	case "d":
		m.askDelete()
	case "r":
		if m.ctrl.Busy() {
			m.setStatus(reconcile.LevelError, message(reconcile.ErrBusy))
			return m, nil
		}
		return m, m.load()
	}
	return m, nil
}

// updateSearch edits the query. The search runs once typing pauses.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
		m.applySearch()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.query = ""
		m.applySearch()
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	default:
		return m, nil
	}

	m.searchSeq++
	seq, query := m.searchSeq, m.query
	return m, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchMsg{seq: seq, query: query}
	})
}

func (m *Model) startRename() {
	row, ok := m.current()
	if !ok || !row.Editable {
		return
	}
	m.renaming = row.TermID
	m.rename = row.Name
	m.status = ""
}

// updateRename edits the new name of a term. Enter saves it with the
// term's other fields unchanged.
func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.renaming = 0
		m.setStatus(reconcile.LevelSuccess, "Rename cancelled.")
	case tea.KeyEnter:
		id, name := m.renaming, m.rename
		m.renaming = 0
		return m, m.mutate(func(ctx context.Context, ctrl *reconcile.Controller) error {
			data, err := ctrl.EditData(ctx, id)
			if err != nil {
				return err
			}
			_, err = ctrl.OnSave(ctx, models.TermForm{
				TermID:      id,
				Taxonomy:    ctrl.Taxonomy(),
				Name:        name,
				Slug:        data.Term.Slug,
				Description: data.Term.Description,
				Parent:      data.Term.Parent,
			})
			return err
		})
	case tea.KeyBackspace:
		if r := []rune(m.rename); len(r) > 0 {
			m.rename = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.rename += " "
	case tea.KeyRunes:
		m.rename += string(msg.Runes)
	}
	return m, nil
}

// applySearch searches now, dropping any pending debounced search.
func (m *Model) applySearch() {
	m.searchSeq++
	m.ctrl.OnSearch(m.query)
	m.refresh()
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			m.moveCursor(1)
		case tea.MouseButtonLeft:
			m.pressAt(msg.X, msg.Y)
		}
		return m, nil
	case tea.MouseActionMotion:
		m.dragTo(msg.X, msg.Y)
		return m, nil
	case tea.MouseActionRelease:
		return m.release(msg.X, msg.Y)
	}
	return m, nil
}

// pressAt selects the row under the pointer. A click on the expand marker
// toggles; anything else may become a drag.
func (m *Model) pressAt(x, y int) {
	m.press = nil
	idx, ok := m.rowAt(y)
	if !ok {
		return
	}
	m.cursor = idx
	m.selected = m.rows[idx].TermID

	row := m.rows[idx]
	if row.ShowToggle && x == m.toggleColumn(row) {
		m.toggle(idx)
		return
	}
	m.press = &press{termID: row.TermID, at: m.now(), x: x, y: y}
}

func (m *Model) dragTo(x, y int) {
	if m.press == nil {
		return
	}
	if m.engine.State() != dragdrop.Dragging {
		if !m.engine.Config().ShouldStart(m.press.at, m.now()) {
			return
		}
		if err := m.beginDrag(); err != nil {
			m.press = nil
			m.setStatus(reconcile.LevelError, message(err))
			return
		}
	}

	pointer := m.point(x, y)
	intent := m.engine.Move(dragdrop.Sample{Pointer: pointer, PlaceholderX: m.placeholderX(pointer.Y)})
	m.preview = &treeview.DragPreview{ItemID: m.press.termID, ParentID: intent.ParentID, Nest: intent.Nest}
	m.refresh()
}

func (m *Model) beginDrag() error {
	if m.ctrl.Busy() {
		return reconcile.ErrBusy
	}
	m.engine.Use(m.ctrl.Tree(), m.ctrl.Hierarchical())
	m.dragRows = m.geometry()
	return m.engine.Begin(m.press.termID, m.point(m.press.x, m.press.y), m.dragRows)
}

func (m Model) release(x, y int) (tea.Model, tea.Cmd) {
	m.press = nil
	if m.engine.State() != dragdrop.Dragging {
		return m, nil
	}

	pointer := m.point(x, y)
	proposal, err := m.engine.Drop(m.engine.StructuralParent(pointer.Y))
	m.preview = nil
	m.dragRows = nil
	m.refresh()
	if err != nil {
		return m, nil
	}

	slog.Debug("term dropped", "term", proposal.ItemID, "parent", proposal.ParentID, "nested", proposal.Nested)
	return m, m.mutate(func(ctx context.Context, ctrl *reconcile.Controller) error {
		return ctrl.OnDragDrop(ctx, proposal.ItemID, proposal.ParentID)
	})
}

// cancel drops the running drag, the keyboard mark, or the search, in that
// order.
func (m *Model) cancel() {
	switch {
	case m.engine.State() == dragdrop.Dragging:
		m.engine.Cancel()
		m.press = nil
		m.preview = nil
		m.dragRows = nil
		m.refresh()
	case m.marked != 0:
		m.marked = 0
		m.status = ""
	case m.query != "":
		m.query = ""
		m.applySearch()
	}
}

func (m *Model) mark() {
	row, ok := m.current()
	if !ok {
		return
	}
	if !m.ctrl.Hierarchical() {
		m.setStatus(reconcile.LevelError, message(reconcile.ErrNotHierarchical))
		return
	}
	m.marked = row.TermID
	m.setStatus(reconcile.LevelSuccess, fmt.Sprintf("Moving %q: select the new parent and press p, or P for the top level.", row.Name))
}

func (m Model) moveMarked(parentID int64) (tea.Model, tea.Cmd) {
	if m.marked == 0 {
		m.setStatus(reconcile.LevelError, "Mark a term with m first.")
		return m, nil
	}
	itemID := m.marked
	m.marked = 0
	m.status = ""
	return m, m.mutate(func(ctx context.Context, ctrl *reconcile.Controller) error {
		return ctrl.OnDragDrop(ctx, itemID, parentID)
	})
}

func (m *Model) askDelete() {
	row, ok := m.current()
	if !ok {
		return
	}
	if !row.Deletable {
		m.setStatus(reconcile.LevelError, "The default category cannot be deleted.")
		return
	}
	m.confirmDelete = row.TermID
	m.setStatus(reconcile.LevelSuccess, fmt.Sprintf("Delete %q? Its children move up one level. (y/n)", row.Name))
}

// mutate runs a controller command off the event loop.
func (m Model) mutate(fn func(context.Context, *reconcile.Controller) error) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return doneMsg{err: fn(ctx, ctrl)}
	}
}

func (m Model) load() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return loadedMsg{err: ctrl.Load(ctx)}
	}
}

// finish shows the outcome of a command: the controller's notification
// when it sent one, the error otherwise.
func (m *Model) finish(err error) {
	if notes := m.inbox.Drain(); len(notes) > 0 {
		last := notes[len(notes)-1]
		m.setStatus(last.Level, last.Message)
	} else if err != nil {
		m.setStatus(reconcile.LevelError, message(err))
	}
	m.refresh()
}

func (m *Model) setStatus(level reconcile.Level, text string) {
	m.status = text
	m.statusLevel = level
}

// refresh re-renders the rows and keeps the selection on the same term.
func (m *Model) refresh() {
	m.rows = m.ctrl.RenderDrag(m.preview).Rows()
	for i, r := range m.rows {
		if r.TermID == m.selected {
			m.cursor = i
			break
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.selected = 0
	if len(m.rows) > 0 {
		m.selected = m.rows[m.cursor].TermID
	}
	m.ensureVisible()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) toggle(idx int) {
	if idx < 0 || idx >= len(m.rows) || !m.rows[idx].ShowToggle {
		return
	}
	m.ctrl.OnToggle(m.rows[idx].TermID)
	m.refresh()
}

func (m *Model) selectParent() {
	tree := m.ctrl.Tree()
	if tree == nil || m.selected == 0 {
		return
	}
	parent := tree.ParentOf(m.selected)
	for i, r := range m.rows {
		if r.TermID == parent {
			m.cursor = i
			m.clampCursor()
			return
		}
	}
}

func (m Model) current() (treeview.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return treeview.Row{}, false
	}
	return m.rows[m.cursor], true
}

// visibleRows is the number of tree lines that fit between the header and
// the status line. Before the first resize every row is shown.
func (m Model) visibleRows() int {
	if m.height == 0 {
		return max(len(m.rows), 1)
	}
	return max(m.height-headerLines-1, 1)
}

func (m *Model) ensureVisible() {
	vis := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+vis {
		m.offset = m.cursor - vis + 1
	}
	m.offset = max(min(m.offset, len(m.rows)-vis), 0)
}

// rowAt returns the index of the row drawn on screen line y.
func (m Model) rowAt(y int) (int, bool) {
	if y < headerLines || y >= headerLines+m.visibleRows() {
		return 0, false
	}
	idx := y - headerLines + m.offset
	if idx < 0 || idx >= len(m.rows) {
		return 0, false
	}
	return idx, true
}

// indentCells converts a row indent into terminal columns.
func (m Model) indentCells(indent int) int {
	return int(float64(indent)/m.cell.Width + 0.5)
}

func (m Model) toggleColumn(row treeview.Row) int {
	return gutter + m.indentCells(row.Indent)
}

// point converts a terminal cell into drag geometry units.
func (m Model) point(x, y int) dragdrop.Point {
	return dragdrop.Point{
		X: float64(x-gutter) * m.cell.Width,
		Y: float64(y-headerLines+m.offset) * m.cell.Height,
	}
}

// geometry lays out every rendered row: X is its indent, Y its line.
func (m Model) geometry() []dragdrop.Row {
	rows := make([]dragdrop.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = dragdrop.Row{TermID: r.TermID, X: float64(r.Indent), Y: float64(i) * m.cell.Height}
	}
	return rows
}

// placeholderX is the indent the placeholder takes at pointerY: that of
// the closest row above it which is not being dragged.
func (m Model) placeholderX(pointerY float64) float64 {
	var (
		x     float64
		bestY float64
		found bool
	)
	for _, r := range m.dragRows {
		if r.Y >= pointerY || m.engine.Excluded(r.TermID) {
			continue
		}
		if !found || r.Y > bestY {
			x, bestY, found = r.X, r.Y, true
		}
	}
	return x
}

// message turns an error into a status line.
func message(err error) string {
	var rej *termstore.RejectionError
	switch {
	case errors.As(err, &rej):
		return rej.Message
	case errors.Is(err, reconcile.ErrBusy):
		return "Another change is still being saved."
	case errors.Is(err, reconcile.ErrNotHierarchical), errors.Is(err, dragdrop.ErrNotHierarchical):
		return "This taxonomy does not support parent terms."
	}
	return err.Error()
}
