package tui

import (
	"fmt"
	"strconv"
	"strings"

	"escrowboard/internal/session"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

const deadlineLayout = "2006-01-02 15:04"

func newTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 4},
			{Title: "Payer", Width: 13},
			{Title: "Payee", Width: 13},
			{Title: "Amount (ETH)", Width: 14},
			{Title: "Deadline", Width: 16},
			{Title: "Active", Width: 6},
			{Title: "Completed", Width: 9},
			{Title: "Released (ETH)", Width: 14},
		}),
		table.WithHeight(8),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(cBorder).BorderBottom(true).Bold(true)
	st.Selected = st.Selected.Foreground(cText).Background(cAccent).Bold(false)
	t.SetStyles(st)
	return t
}

func escrowRows(views []session.EscrowView) []table.Row {
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		rows = append(rows, table.Row{
			strconv.FormatUint(v.ID, 10),
			session.ShortAddress(common.HexToAddress(v.Payer)),
			session.ShortAddress(common.HexToAddress(v.Payee)),
			v.TotalAmount,
			v.Deadline.Format(deadlineLayout),
			yesNo(v.IsActive),
			yesNo(v.Completed),
			v.ReleasedAmount,
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if note := m.renderNotification(); note != "" {
		b.WriteString(note)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if !m.stacked() {
		b.WriteString(m.renderTabs())
		b.WriteString("\n\n")
	}

	for _, fi := range m.visibleForms() {
		b.WriteString(m.renderForm(fi))
		b.WriteString("\n")
	}
	if m.tableVisible() {
		b.WriteString(m.renderEscrows())
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return appStyle.Render(b.String())
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Escrow Dashboard")

	var status string
	switch m.state {
	case session.StateConnected:
		status = statusOK.Render("● connected") + " " + mutedStyle.Render(m.account.Hex())
	case session.StateFailed:
		status = statusBad.Render("● disconnected")
	default:
		status = statusIdle.Render("○ connecting")
	}
	if m.loading() {
		status += " " + m.spin.View()
	}
	contract := mutedStyle.Render("contract " + m.contract.Hex())
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status, "  ", contract)
}

func (m *Model) renderNotification() string {
	if m.note == nil {
		return ""
	}
	if m.note.Severity == session.SeverityError {
		return noteError.Render(m.note.Message)
	}
	return noteSuccess.Render(m.note.Message)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(pageTitles))
	for i, t := range pageTitles {
		if page(i) == m.page {
			tabs[i] = activeTabStyle.Render(t)
		} else {
			tabs[i] = tabStyle.Render(t)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderForm(fi int) string {
	f := m.forms[fi]
	cur := m.current()

	var b strings.Builder
	b.WriteString(headingText.Render(f.title))
	b.WriteString("\n")
	for j, fld := range f.fields {
		b.WriteString(mutedStyle.Render(fld.label))
		b.WriteString("\n")
		b.WriteString(fld.input.View())
		if j < len(f.fields)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(hotkeyStyle.Render("enter: " + f.button))

	style := panelStyle
	if cur.form == fi {
		style = focusPanel
	}
	return style.Render(b.String())
}

func (m *Model) renderEscrows() string {
	var b strings.Builder
	b.WriteString(headingText.Render("Escrows"))
	b.WriteString("\n")
	if len(m.escrows) == 0 {
		b.WriteString(mutedStyle.Render("no escrows"))
	} else {
		b.WriteString(m.table.View())
	}
	if m.selected != nil {
		b.WriteString("\n\n")
		b.WriteString(renderSteps(*m.selected))
	}

	style := panelStyle
	if m.current() == tableFocus {
		style = focusPanel
	}
	return style.Render(b.String())
}

func renderSteps(v session.EscrowView) string {
	var b strings.Builder
	b.WriteString(headingText.Render(fmt.Sprintf("Escrow %d steps", v.ID)))
	if len(v.Steps) == 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("no steps"))
		return b.String()
	}
	for _, st := range v.Steps {
		mark := statusIdle.Render("pending ")
		if st.Approved {
			mark = statusOK.Render("approved")
		}
		fmt.Fprintf(&b, "\n  #%d  %s ETH  %s", st.Index, st.Amount, mark)
	}
	return b.String()
}

func (m *Model) renderHelp() string {
	keys := [][2]string{
		{"tab", "next field"},
		{"enter", "submit/select"},
		{"ctrl+r", "refresh"},
		{"esc", "dismiss"},
		{"ctrl+c", "quit"},
	}
	if !m.stacked() {
		keys = append(keys[:2], append([][2]string{{"ctrl+t", "next tab"}}, keys[2:]...)...)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, hotkeyKeyStyle.Render(k[0])+" "+hotkeyStyle.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}
