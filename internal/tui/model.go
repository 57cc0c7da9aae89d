// Package tui is the terminal dashboard: forms for the five escrow actions, a
// table of synchronized escrows and the step detail of the selected one.
package tui

import (
	"context"
	"fmt"
	"time"

	"escrowboard/internal/config"
	"escrowboard/internal/escrow"
	"escrowboard/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

type page int

const (
	pageCreate page = iota
	pageManage
	pageView
)

var pageTitles = []string{"Create Escrow", "Manage Escrows", "View Escrows"}

// focusTarget is either a form field or the escrow table (form == -1).
type focusTarget struct {
	form  int
	field int
}

var tableFocus = focusTarget{form: -1}

type (
	connectedMsg struct{ err error }
	refreshedMsg struct{ err error }
	actionMsg    struct {
		kind formKind
		hash string
		err  error
	}
	selectedMsg struct {
		escrow escrow.Escrow
		err    error
	}
	noteMsg   session.Notification
	expireMsg struct{ id uint64 }
)

type Options struct {
	Variant  string
	Contract common.Address
	Context  context.Context
}

type Model struct {
	ctx      context.Context
	session  *session.Session
	variant  string
	contract common.Address

	w, h int

	page    page
	forms   []form
	focus   int
	targets []focusTarget

	table    table.Model
	escrows  []session.EscrowView
	selected *session.EscrowView

	spin    spinner.Model
	pending int

	state   session.State
	account common.Address
	note    *session.Notification
	notes   <-chan session.Notification
	unsub   func()
	ttl     time.Duration
}

func New(sess *session.Session, opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	notes, unsub := sess.Notifier().Subscribe(8)

	m := &Model{
		ctx:      ctx,
		session:  sess,
		variant:  opts.Variant,
		contract: opts.Contract,
		forms:    newForms(),
		table:    newTable(),
		spin:     sp,
		notes:    notes,
		unsub:    unsub,
		ttl:      sess.Notifier().TTL(),
	}
	m.rebuildFocus()
	return m
}

func (m *Model) Init() tea.Cmd {
	m.pending++
	return tea.Batch(m.connect(), waitForNote(m.notes), m.spin.Tick, m.applyFocus())
}

// Close releases the notification subscription.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *Model) stacked() bool {
	return m.variant == config.VariantStacked
}

// visibleForms lists the forms shown on the current page.
func (m *Model) visibleForms() []int {
	if m.stacked() {
		return []int{0, 1, 2, 3, 4}
	}
	switch m.page {
	case pageCreate:
		return []int{0}
	case pageManage:
		return []int{1, 2, 3, 4}
	default:
		return nil
	}
}

func (m *Model) tableVisible() bool {
	return m.stacked() || m.page == pageView
}

func (m *Model) rebuildFocus() {
	m.targets = m.targets[:0]
	for _, fi := range m.visibleForms() {
		for j := range m.forms[fi].fields {
			m.targets = append(m.targets, focusTarget{form: fi, field: j})
		}
	}
	if m.tableVisible() {
		m.targets = append(m.targets, tableFocus)
	}
	if m.focus >= len(m.targets) {
		m.focus = 0
	}
}

func (m *Model) current() focusTarget {
	if len(m.targets) == 0 {
		return tableFocus
	}
	return m.targets[m.focus]
}

// applyFocus focuses exactly the current target.
func (m *Model) applyFocus() tea.Cmd {
	cur := m.current()
	var cmd tea.Cmd
	for i := range m.forms {
		for j := range m.forms[i].fields {
			in := &m.forms[i].fields[j].input
			if cur.form == i && cur.field == j {
				cmd = in.Focus()
			} else {
				in.Blur()
			}
		}
	}
	if cur == tableFocus {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
	return cmd
}

func (m *Model) connect() tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: m.session.Connect(m.ctx)}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.session.Refresh(m.ctx)}
	}
}

func (m *Model) selectEscrow(id uint64) tea.Cmd {
	return func() tea.Msg {
		rec, err := m.session.Select(m.ctx, id)
		return selectedMsg{escrow: rec, err: err}
	}
}

func (m *Model) submit(kind formKind) tea.Cmd {
	d := m.session.Drafts()
	s := m.session
	return func() tea.Msg {
		var (
			hash string
			err  error
		)
		switch kind {
		case formCreate:
			hash, err = s.CreateEscrow(m.ctx, d.Create)
		case formFund:
			hash, err = s.FundEscrow(m.ctx, d.Fund)
		case formApprove:
			hash, err = s.ApproveStep(m.ctx, d.Approve)
		case formRelease:
			hash, err = s.ReleaseFunds(m.ctx, d.Release)
		case formWithdraw:
			hash, err = s.WithdrawFunds(m.ctx, d.Withdraw)
		default:
			err = fmt.Errorf("unknown form %d", kind)
		}
		return actionMsg{kind: kind, hash: hash, err: err}
	}
}

func waitForNote(ch <-chan session.Notification) tea.Cmd {
	return func() tea.Msg {
		note, ok := <-ch
		if !ok {
			return nil
		}
		return noteMsg(note)
	}
}

func (m *Model) expireAfter(note session.Notification) tea.Cmd {
	return tea.Tick(m.ttl, func(time.Time) tea.Msg {
		return expireMsg{id: note.ID}
	})
}

// syncFromSession copies the session's state into the model.
func (m *Model) syncFromSession() {
	snap := m.session.Snapshot()
	m.state = snap.State
	m.account = snap.Account
	m.escrows = session.NewEscrowViews(snap.Escrows)
	m.table.SetRows(escrowRows(m.escrows))
	if snap.Selected != nil {
		v := session.NewEscrowView(*snap.Selected)
		m.selected = &v
	} else {
		m.selected = nil
	}
	for i := range m.forms {
		m.forms[i].load(snap.Drafts)
	}
}
