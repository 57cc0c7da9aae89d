package tui

import (
	"escrowboard/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
)

type formKind int

const (
	formCreate formKind = iota
	formFund
	formApprove
	formRelease
	formWithdraw
)

type field struct {
	label string
	input textinput.Model
	bind  func(d *session.Drafts) *string
}

type form struct {
	kind   formKind
	title  string
	button string
	fields []field
}

func newField(label, placeholder string, bind func(d *session.Drafts) *string) field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.Width = 44
	ti.CharLimit = 256
	return field{label: label, input: ti, bind: bind}
}

func newForms() []form {
	return []form{
		{
			kind: formCreate, title: "Create Escrow", button: "Create Escrow",
			fields: []field{
				newField("Payer Address", "0x...", func(d *session.Drafts) *string { return &d.Create.Payer }),
				newField("Payee Address", "0x...", func(d *session.Drafts) *string { return &d.Create.Payee }),
				newField("Total Amount (ETH)", "1.5", func(d *session.Drafts) *string { return &d.Create.TotalAmount }),
				newField("Deadline (days)", "30", func(d *session.Drafts) *string { return &d.Create.DeadlineInDays }),
				newField("Step Amounts (comma separated ETH)", "0.5,1", func(d *session.Drafts) *string { return &d.Create.StepAmounts }),
			},
		},
		{
			kind: formFund, title: "Fund Escrow", button: "Fund Escrow",
			fields: []field{
				newField("Escrow ID", "0", func(d *session.Drafts) *string { return &d.Fund.EscrowID }),
			},
		},
		{
			kind: formApprove, title: "Approve Step", button: "Approve Step",
			fields: []field{
				newField("Escrow ID", "0", func(d *session.Drafts) *string { return &d.Approve.EscrowID }),
				newField("Step Index", "0", func(d *session.Drafts) *string { return &d.Approve.StepIndex }),
			},
		},
		{
			kind: formRelease, title: "Release Funds", button: "Release Funds",
			fields: []field{
				newField("Escrow ID", "0", func(d *session.Drafts) *string { return &d.Release.EscrowID }),
			},
		},
		{
			kind: formWithdraw, title: "Withdraw Funds", button: "Withdraw Funds",
			fields: []field{
				newField("Escrow ID", "0", func(d *session.Drafts) *string { return &d.Withdraw.EscrowID }),
			},
		},
	}
}

// load copies the session drafts into the inputs.
func (f *form) load(d session.Drafts) {
	for i := range f.fields {
		f.fields[i].input.SetValue(*f.fields[i].bind(&d))
	}
}
