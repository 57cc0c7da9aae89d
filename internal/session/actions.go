package session

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"escrowboard/internal/escrow"
	"escrowboard/internal/units"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Drafts are the raw form inputs of each action, kept until the action
// succeeds.
type Drafts struct {
	Create   CreateDraft  `json:"create"`
	Fund     IDDraft      `json:"fund"`
	Approve  ApproveDraft `json:"approve"`
	Release  IDDraft      `json:"release"`
	Withdraw IDDraft      `json:"withdraw"`
}

type CreateDraft struct {
	Payer          string `json:"payer"`
	Payee          string `json:"payee"`
	TotalAmount    string `json:"totalAmount"`    // ETH
	DeadlineInDays string `json:"deadlineInDays"` // days
	StepAmounts    string `json:"stepAmounts"`    // comma separated ETH
}

type IDDraft struct {
	EscrowID string `json:"escrowId"`
}

type ApproveDraft struct {
	EscrowID  string `json:"escrowId"`
	StepIndex string `json:"stepIndex"`
}

// UpdateDrafts edits the stored drafts in place.
func (s *Session) UpdateDrafts(fn func(d *Drafts)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.drafts)
}

func (s *Session) Drafts() Drafts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts
}

type action struct {
	name    string
	success string
	failure string
	clear   func(d *Drafts)
}

var (
	actionCreate = action{
		name:    "create",
		success: "Escrow created successfully",
		failure: "Error creating escrow. Please check your inputs and try again.",
		clear:   func(d *Drafts) { d.Create = CreateDraft{} },
	}
	actionFund = action{
		name:    "fund",
		success: "Escrow funded successfully",
		failure: "Error funding escrow. Please check your inputs and try again.",
		clear:   func(d *Drafts) { d.Fund = IDDraft{} },
	}
	actionApprove = action{
		name:    "approve",
		success: "Step approved successfully",
		failure: "Error approving step. Please check your inputs and try again.",
		clear:   func(d *Drafts) { d.Approve = ApproveDraft{} },
	}
	actionRelease = action{
		name:    "release",
		success: "Funds released successfully",
		failure: "Error releasing funds. Please check your inputs and try again.",
		clear:   func(d *Drafts) { d.Release = IDDraft{} },
	}
	actionWithdraw = action{
		name:    "withdraw",
		success: "Funds withdrawn successfully",
		failure: "Error withdrawing funds. Please check your inputs and try again.",
		clear:   func(d *Drafts) { d.Withdraw = IDDraft{} },
	}
)

func (s *Session) CreateEscrow(ctx context.Context, d CreateDraft) (string, error) {
	return s.submit(ctx, actionCreate, func(common.Address) (escrow.TxRequest, error) {
		payer, err := parseAddress("payer", d.Payer)
		if err != nil {
			return escrow.TxRequest{}, err
		}
		payee, err := parseAddress("payee", d.Payee)
		if err != nil {
			return escrow.TxRequest{}, err
		}
		total, err := units.ToWei(d.TotalAmount)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("total amount: %w", err)
		}
		days, err := units.ParseBigUint(d.DeadlineInDays)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("deadline: %w", err)
		}
		steps, err := units.ParseEtherList(d.StepAmounts)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("step amounts: %w", err)
		}
		return escrow.TxRequest{Call: escrow.CreateEscrow(payer, payee, total, days, steps)}, nil
	})
}

// FundEscrow attaches the escrow's total amount, taken from the last sync.
func (s *Session) FundEscrow(ctx context.Context, d IDDraft) (string, error) {
	return s.submit(ctx, actionFund, func(common.Address) (escrow.TxRequest, error) {
		id, err := units.ParseUint(d.EscrowID)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("escrow id: %w", err)
		}
		rec, ok := s.find(id)
		if !ok {
			return escrow.TxRequest{}, fmt.Errorf("escrow %d: %w", id, ErrEscrowNotFound)
		}
		return escrow.TxRequest{
			Value: new(big.Int).Set(rec.TotalAmount),
			Call:  escrow.FundEscrow(id),
		}, nil
	})
}

func (s *Session) ApproveStep(ctx context.Context, d ApproveDraft) (string, error) {
	return s.submit(ctx, actionApprove, func(common.Address) (escrow.TxRequest, error) {
		id, err := units.ParseUint(d.EscrowID)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("escrow id: %w", err)
		}
		step, err := units.ParseUint(d.StepIndex)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("step index: %w", err)
		}
		return escrow.TxRequest{Call: escrow.ApproveStep(id, step)}, nil
	})
}

func (s *Session) ReleaseFunds(ctx context.Context, d IDDraft) (string, error) {
	return s.submit(ctx, actionRelease, func(common.Address) (escrow.TxRequest, error) {
		id, err := units.ParseUint(d.EscrowID)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("escrow id: %w", err)
		}
		return escrow.TxRequest{Call: escrow.ReleaseFunds(id)}, nil
	})
}

func (s *Session) WithdrawFunds(ctx context.Context, d IDDraft) (string, error) {
	return s.submit(ctx, actionWithdraw, func(common.Address) (escrow.TxRequest, error) {
		id, err := units.ParseUint(d.EscrowID)
		if err != nil {
			return escrow.TxRequest{}, fmt.Errorf("escrow id: %w", err)
		}
		return escrow.TxRequest{Call: escrow.WithdrawFunds(id)}, nil
	})
}

// submit runs the shared estimate-then-send flow. Without a connection it is a
// no-op returning ErrNotConnected.
func (s *Session) submit(ctx context.Context, a action, build func(from common.Address) (escrow.TxRequest, error)) (string, error) {
	account, handle, ok := s.connection()
	if !ok {
		return "", ErrNotConnected
	}

	s.beginLoading()
	defer s.endLoading()

	log := s.log.WithFields(logrus.Fields{"action": a.name, "account": account.Hex()})

	hash, err := send(ctx, handle, account, build)
	if err != nil {
		log.WithError(err).Error("escrow action failed")
		s.recorder.ObserveAction(a.name, "failed")
		s.notifier.Error(a.failure)
		return "", fmt.Errorf("%s: %w", a.name, err)
	}

	log.WithField("tx", hash).Info("escrow action confirmed")
	s.recorder.ObserveAction(a.name, "confirmed")
	s.notifier.Success(a.success)

	s.mu.Lock()
	a.clear(&s.drafts)
	hook := s.onMutation
	s.mu.Unlock()

	// the transaction is already mined, so the caller going away must not
	// abort the follow-up sync
	if hook != nil {
		if err := hook(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("refresh after action")
		}
	}
	return hash, nil
}

func send(ctx context.Context, handle escrow.Client, from common.Address, build func(common.Address) (escrow.TxRequest, error)) (string, error) {
	req, err := build(from)
	if err != nil {
		return "", err
	}
	req.From = from

	gas, err := handle.EstimateGas(ctx, req)
	if err != nil {
		return "", err
	}
	req.GasLimit = gas
	return handle.Send(ctx, req)
}

func parseAddress(field, value string) (common.Address, error) {
	v := strings.TrimSpace(value)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, value)
	}
	return common.HexToAddress(v), nil
}
