package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// decodeEscrow maps the tuple returned by escrows(uint256).
func decodeEscrow(id uint64, out []interface{}) (Escrow, error) {
	if len(out) != 7 {
		return Escrow{}, fmt.Errorf("%w: escrows(%d) returned %d values", ErrMalformed, id, len(out))
	}

	payer, ok1 := out[0].(common.Address)
	payee, ok2 := out[1].(common.Address)
	total, ok3 := out[2].(*big.Int)
	deadline, ok4 := out[3].(*big.Int)
	active, ok5 := out[4].(bool)
	completed, ok6 := out[5].(bool)
	released, ok7 := out[6].(*big.Int)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return Escrow{}, fmt.Errorf("%w: escrows(%d) has unexpected field types", ErrMalformed, id)
	}
	if !deadline.IsUint64() {
		return Escrow{}, fmt.Errorf("%w: escrows(%d) deadline %s out of range", ErrMalformed, id, deadline)
	}

	return Escrow{
		ID:             id,
		Payer:          payer,
		Payee:          payee,
		TotalAmount:    total,
		Deadline:       deadline.Uint64(),
		IsActive:       active,
		Completed:      completed,
		ReleasedAmount: released,
	}, nil
}

// decodeSteps zips the parallel (amounts, approvals) arrays of getEscrowSteps.
func decodeSteps(id uint64, out []interface{}) ([]Step, error) {
	if len(out) != 2 {
		return nil, fmt.Errorf("%w: getEscrowSteps(%d) returned %d values", ErrMalformed, id, len(out))
	}
	amounts, ok1 := out[0].([]*big.Int)
	approvals, ok2 := out[1].([]bool)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: getEscrowSteps(%d) has unexpected field types", ErrMalformed, id)
	}
	if len(amounts) != len(approvals) {
		return nil, fmt.Errorf("%w: getEscrowSteps(%d) has %d amounts and %d approvals",
			ErrMalformed, id, len(amounts), len(approvals))
	}

	steps := make([]Step, len(amounts))
	for i := range amounts {
		steps[i] = Step{Index: i, Amount: amounts[i], Approved: approvals[i]}
	}
	return steps, nil
}

func decodeCount(out []interface{}) (uint64, error) {
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: escrowCount returned %d values", ErrMalformed, len(out))
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("%w: escrowCount value %v", ErrMalformed, out[0])
	}
	return n.Uint64(), nil
}
