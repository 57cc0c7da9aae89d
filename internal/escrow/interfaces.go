package escrow

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotFound  = errors.New("escrow not found")
	ErrReverted  = errors.New("transaction reverted")
	ErrMalformed = errors.New("malformed contract response")
)

// Client abstracts the on-chain escrow factory. Reads map raw ABI results into
// fixed records; writes are always estimated before they are sent.
type Client interface {
	EscrowCount(ctx context.Context) (uint64, error)
	Escrow(ctx context.Context, id uint64) (Escrow, error)
	EscrowSteps(ctx context.Context, id uint64) ([]Step, error)
	EstimateGas(ctx context.Context, req TxRequest) (uint64, error)
	Send(ctx context.Context, req TxRequest) (string, error)
}

// HealthChecker is implemented by clients backed by a live RPC endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Signer hands out transaction options for an authorized account.
type Signer interface {
	Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

// Escrow is one record of the factory's escrows mapping.
type Escrow struct {
	ID             uint64
	Payer          common.Address
	Payee          common.Address
	TotalAmount    *big.Int // wei
	Deadline       uint64   // unix seconds
	IsActive       bool
	Completed      bool
	ReleasedAmount *big.Int // wei
	Steps          []Step
}

// Step is one tranche of an escrow's total amount.
type Step struct {
	Index    int
	Amount   *big.Int // wei
	Approved bool
}

// TxRequest describes a write. GasLimit is ignored by EstimateGas.
type TxRequest struct {
	From     common.Address
	Value    *big.Int
	GasLimit uint64
	Call     Call
}
