package tui

import (
	"strconv"

	"escrowboard/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case connectedMsg:
		m.pending--
		m.syncFromSession()
		return m, nil

	case refreshedMsg:
		m.pending--
		m.syncFromSession()
		return m, nil

	case actionMsg:
		m.pending--
		m.syncFromSession()
		return m, nil

	case selectedMsg:
		m.pending--
		m.syncFromSession()
		return m, nil

	case noteMsg:
		note := session.Notification(msg)
		m.note = &note
		return m, tea.Batch(waitForNote(m.notes), m.expireAfter(note))

	case expireMsg:
		if m.note != nil && m.note.ID == msg.id {
			m.note = nil
			m.session.Notifier().Dismiss(msg.id)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cur := m.current()

	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "esc":
		m.dismiss()
		return m, nil
	case "tab", "down":
		if cur != tableFocus || msg.String() == "tab" {
			m.focus = (m.focus + 1) % len(m.targets)
			return m, m.applyFocus()
		}
	case "shift+tab", "up":
		if cur != tableFocus || msg.String() == "shift+tab" {
			m.focus = (m.focus - 1 + len(m.targets)) % len(m.targets)
			return m, m.applyFocus()
		}
	case "ctrl+t":
		if !m.stacked() {
			m.page = (m.page + 1) % page(len(pageTitles))
			m.focus = 0
			m.rebuildFocus()
			return m, m.applyFocus()
		}
	case "ctrl+r":
		return m, m.startRefresh()
	case "enter":
		if cur == tableFocus {
			return m, m.startSelect()
		}
		return m, m.startSubmit(m.forms[cur.form].kind)
	}

	if cur == tableFocus {
		switch msg.String() {
		case "r":
			return m, m.startRefresh()
		case "q":
			m.Close()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	f := &m.forms[cur.form].fields[cur.field]
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	value := f.input.Value()
	m.session.UpdateDrafts(func(d *session.Drafts) { *f.bind(d) = value })
	return m, cmd
}

// dismiss hides the notification, or collapses the step detail when no
// notification is showing.
func (m *Model) dismiss() {
	if m.note == nil {
		if m.selected != nil {
			m.session.ClearSelection()
			m.selected = nil
		}
		return
	}
	m.session.Notifier().Dismiss(m.note.ID)
	m.note = nil
}

func (m *Model) loading() bool {
	return m.pending > 0
}

// startSubmit is ignored while another operation is in flight.
func (m *Model) startSubmit(kind formKind) tea.Cmd {
	if m.loading() {
		return nil
	}
	m.pending++
	return m.submit(kind)
}

func (m *Model) startRefresh() tea.Cmd {
	if m.loading() {
		return nil
	}
	m.pending++
	return m.refresh()
}

func (m *Model) startSelect() tea.Cmd {
	row := m.table.SelectedRow()
	if len(row) == 0 || m.loading() {
		return nil
	}
	id, err := strconv.ParseUint(row[0], 10, 64)
	if err != nil {
		return nil
	}
	m.pending++
	return m.selectEscrow(id)
}
