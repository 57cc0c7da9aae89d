package session

import (
	"math/big"
	"time"

	"escrowboard/internal/escrow"
	"escrowboard/internal/units"

	"github.com/ethereum/go-ethereum/common"
)

// EscrowView is an escrow with amounts in ETH and the deadline as a time.
type EscrowView struct {
	ID                uint64     `json:"id"`
	Payer             string     `json:"payer"`
	Payee             string     `json:"payee"`
	TotalAmount       string     `json:"totalAmount"`
	TotalAmountWei    string     `json:"totalAmountWei"`
	Deadline          time.Time  `json:"deadline"`
	IsActive          bool       `json:"isActive"`
	Completed         bool       `json:"completed"`
	ReleasedAmount    string     `json:"releasedAmount"`
	ReleasedAmountWei string     `json:"releasedAmountWei"`
	Steps             []StepView `json:"steps"`
}

type StepView struct {
	Index     int    `json:"index"`
	Amount    string `json:"amount"`
	AmountWei string `json:"amountWei"`
	Approved  bool   `json:"approved"`
}

func NewEscrowView(e escrow.Escrow) EscrowView {
	v := EscrowView{
		ID:                e.ID,
		Payer:             e.Payer.Hex(),
		Payee:             e.Payee.Hex(),
		TotalAmount:       units.FromWei(e.TotalAmount),
		TotalAmountWei:    weiString(e.TotalAmount),
		Deadline:          time.Unix(int64(e.Deadline), 0).UTC(),
		IsActive:          e.IsActive,
		Completed:         e.Completed,
		ReleasedAmount:    units.FromWei(e.ReleasedAmount),
		ReleasedAmountWei: weiString(e.ReleasedAmount),
		Steps:             make([]StepView, 0, len(e.Steps)),
	}
	for _, st := range e.Steps {
		v.Steps = append(v.Steps, StepView{
			Index:     st.Index,
			Amount:    units.FromWei(st.Amount),
			AmountWei: weiString(st.Amount),
			Approved:  st.Approved,
		})
	}
	return v
}

func NewEscrowViews(list []escrow.Escrow) []EscrowView {
	out := make([]EscrowView, 0, len(list))
	for _, e := range list {
		out = append(out, NewEscrowView(e))
	}
	return out
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
