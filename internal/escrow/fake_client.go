package escrow

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	fakeGasEstimate = 90_000
	secondsPerDay   = 86_400
)

// FakeClient is an in-memory escrow factory used in dev mode and tests. It
// applies simplified contract rules and rejects calls that would revert.
type FakeClient struct {
	mu      sync.Mutex
	escrows []Escrow
	nonce   uint64
	now     func() time.Time
}

func NewFakeClient() *FakeClient {
	return &FakeClient{now: time.Now}
}

// WithClock overrides the clock used for deadlines.
func (f *FakeClient) WithClock(now func() time.Time) *FakeClient {
	f.now = now
	return f
}

func (f *FakeClient) EscrowCount(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.escrows)), nil
}

func (f *FakeClient) Escrow(_ context.Context, id uint64) (Escrow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id >= uint64(len(f.escrows)) {
		return Escrow{}, fmt.Errorf("escrows(%d): %w", id, ErrNotFound)
	}
	rec := cloneEscrow(f.escrows[id])
	rec.Steps = nil
	return rec, nil
}

func (f *FakeClient) EscrowSteps(_ context.Context, id uint64) ([]Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id >= uint64(len(f.escrows)) {
		return nil, fmt.Errorf("getEscrowSteps(%d): %w", id, ErrNotFound)
	}
	return cloneEscrow(f.escrows[id]).Steps, nil
}

func (f *FakeClient) EstimateGas(_ context.Context, req TxRequest) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.apply(req, false); err != nil {
		return 0, fmt.Errorf("estimate %s: %w", req.Call.Method, err)
	}
	return fakeGasEstimate, nil
}

func (f *FakeClient) Send(_ context.Context, req TxRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.GasLimit != 0 && req.GasLimit < fakeGasEstimate {
		return "", fmt.Errorf("%s: out of gas", req.Call.Method)
	}
	if err := f.apply(req, true); err != nil {
		return "", fmt.Errorf("%s: %w", req.Call.Method, err)
	}
	f.nonce++
	hash := crypto.Keccak256Hash(
		req.From.Bytes(),
		[]byte(req.Call.String()),
		new(big.Int).SetUint64(f.nonce).Bytes(),
	)
	return hash.Hex(), nil
}

func (f *FakeClient) apply(req TxRequest, commit bool) error {
	switch req.Call.Method {
	case "createEscrow":
		return f.create(req, commit)
	case "fundEscrow":
		return f.withEscrow(req, func(e *Escrow) error {
			if e.IsActive || e.Completed {
				return revert("escrow already funded")
			}
			if req.From != e.Payer {
				return revert("only payer can fund")
			}
			if req.Value == nil || req.Value.Cmp(e.TotalAmount) != 0 {
				return revert("incorrect funding amount")
			}
			if commit {
				e.IsActive = true
			}
			return nil
		})
	case "approveStep":
		return f.withEscrow(req, func(e *Escrow) error {
			if !e.IsActive {
				return revert("escrow not active")
			}
			if req.From != e.Payer {
				return revert("only payer can approve")
			}
			idx, ok := bigArg(req.Call, 1)
			if !ok || !idx.IsUint64() || idx.Uint64() >= uint64(len(e.Steps)) {
				return revert("invalid step index")
			}
			step := &e.Steps[idx.Uint64()]
			if step.Approved {
				return revert("step already approved")
			}
			if commit {
				step.Approved = true
			}
			return nil
		})
	case "releaseFunds":
		return f.withEscrow(req, func(e *Escrow) error {
			if !e.IsActive {
				return revert("escrow not active")
			}
			if req.From != e.Payer && req.From != e.Payee {
				return revert("not a party to the escrow")
			}
			approved := new(big.Int)
			for _, s := range e.Steps {
				if s.Approved {
					approved.Add(approved, s.Amount)
				}
			}
			if approved.Cmp(e.ReleasedAmount) <= 0 {
				return revert("nothing to release")
			}
			if commit {
				e.ReleasedAmount = approved
				if approved.Cmp(e.TotalAmount) == 0 {
					e.Completed = true
					e.IsActive = false
				}
			}
			return nil
		})
	case "withdrawFunds":
		return f.withEscrow(req, func(e *Escrow) error {
			if !e.IsActive {
				return revert("escrow not active")
			}
			if req.From != e.Payer {
				return revert("only payer can withdraw")
			}
			if uint64(f.now().Unix()) <= e.Deadline {
				return revert("deadline not reached")
			}
			if commit {
				e.IsActive = false
			}
			return nil
		})
	default:
		return fmt.Errorf("unknown method %q", req.Call.Method)
	}
}

func (f *FakeClient) create(req TxRequest, commit bool) error {
	args := req.Call.Args
	if len(args) != 5 {
		return revert("bad arguments")
	}
	payer, ok1 := args[0].(common.Address)
	payee, ok2 := args[1].(common.Address)
	total, ok3 := args[2].(*big.Int)
	days, ok4 := args[3].(*big.Int)
	amounts, ok5 := args[4].([]*big.Int)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return revert("bad arguments")
	}
	if total.Sign() <= 0 {
		return revert("total amount must be positive")
	}
	if len(amounts) == 0 {
		return revert("at least one step required")
	}
	sum := new(big.Int)
	for _, a := range amounts {
		sum.Add(sum, a)
	}
	if sum.Cmp(total) != 0 {
		return revert("step amounts must add up to total")
	}
	now := uint64(f.now().Unix())
	if !days.IsUint64() || days.Uint64() > (math.MaxUint64-now)/secondsPerDay {
		return revert("deadline out of range")
	}
	if !commit {
		return nil
	}

	steps := make([]Step, len(amounts))
	for i, a := range amounts {
		steps[i] = Step{Index: i, Amount: new(big.Int).Set(a)}
	}
	f.escrows = append(f.escrows, Escrow{
		ID:             uint64(len(f.escrows)),
		Payer:          payer,
		Payee:          payee,
		TotalAmount:    new(big.Int).Set(total),
		Deadline:       now + days.Uint64()*secondsPerDay,
		ReleasedAmount: new(big.Int),
		Steps:          steps,
	})
	return nil
}

func (f *FakeClient) withEscrow(req TxRequest, fn func(e *Escrow) error) error {
	id, ok := bigArg(req.Call, 0)
	if !ok || !id.IsUint64() || id.Uint64() >= uint64(len(f.escrows)) {
		return revert("escrow does not exist")
	}
	return fn(&f.escrows[id.Uint64()])
}

func bigArg(c Call, i int) (*big.Int, bool) {
	if i >= len(c.Args) {
		return nil, false
	}
	v, ok := c.Args[i].(*big.Int)
	return v, ok && v != nil
}

func revert(reason string) error {
	return fmt.Errorf("%w: %s", ErrReverted, reason)
}

func cloneEscrow(e Escrow) Escrow {
	out := e
	out.TotalAmount = new(big.Int).Set(e.TotalAmount)
	out.ReleasedAmount = new(big.Int).Set(e.ReleasedAmount)
	out.Steps = make([]Step, len(e.Steps))
	for i, s := range e.Steps {
		out.Steps[i] = Step{Index: s.Index, Amount: new(big.Int).Set(s.Amount), Approved: s.Approved}
	}
	return out
}
