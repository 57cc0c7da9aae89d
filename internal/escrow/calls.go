package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a contract method together with its ABI-typed arguments.
type Call struct {
	Method string
	Args   []interface{}
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

func CreateEscrow(payer, payee common.Address, totalAmount, deadlineInDays *big.Int, stepAmounts []*big.Int) Call {
	return Call{
		Method: "createEscrow",
		Args:   []interface{}{payer, payee, totalAmount, deadlineInDays, stepAmounts},
	}
}

func FundEscrow(escrowID uint64) Call {
	return Call{Method: "fundEscrow", Args: []interface{}{new(big.Int).SetUint64(escrowID)}}
}

func ApproveStep(escrowID, stepIndex uint64) Call {
	return Call{
		Method: "approveStep",
		Args:   []interface{}{new(big.Int).SetUint64(escrowID), new(big.Int).SetUint64(stepIndex)},
	}
}

func ReleaseFunds(escrowID uint64) Call {
	return Call{Method: "releaseFunds", Args: []interface{}{new(big.Int).SetUint64(escrowID)}}
}

func WithdrawFunds(escrowID uint64) Call {
	return Call{Method: "withdrawFunds", Args: []interface{}{new(big.Int).SetUint64(escrowID)}}
}
