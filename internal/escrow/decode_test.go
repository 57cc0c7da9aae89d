package escrow

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEscrow(t *testing.T) {
	payer := common.HexToAddress("0xAA00000000000000000000000000000000000001")
	payee := common.HexToAddress("0xBB00000000000000000000000000000000000002")
	total, _ := new(big.Int).SetString("1000000000000000000", 10)

	rec, err := decodeEscrow(3, []interface{}{
		payer, payee, total, big.NewInt(1999999999), true, false, big.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.ID)
	assert.Equal(t, payer, rec.Payer)
	assert.Equal(t, payee, rec.Payee)
	assert.Equal(t, 0, rec.TotalAmount.Cmp(total))
	assert.Equal(t, uint64(1999999999), rec.Deadline)
	assert.True(t, rec.IsActive)
	assert.False(t, rec.Completed)
	assert.Equal(t, int64(0), rec.ReleasedAmount.Int64())
}

func TestDecodeEscrowRejectsMalformed(t *testing.T) {
	_, err := decodeEscrow(0, []interface{}{common.Address{}})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = decodeEscrow(0, []interface{}{
		common.Address{}, common.Address{}, "1", big.NewInt(0), true, false, big.NewInt(0),
	})
	require.ErrorIs(t, err, ErrMalformed)

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	_, err = decodeEscrow(0, []interface{}{
		common.Address{}, common.Address{}, big.NewInt(1), huge, true, false, big.NewInt(0),
	})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeSteps(t *testing.T) {
	half := big.NewInt(5)
	steps, err := decodeSteps(0, []interface{}{[]*big.Int{half, half}, []bool{false, true}})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 0, steps[0].Index)
	assert.False(t, steps[0].Approved)
	assert.Equal(t, 1, steps[1].Index)
	assert.True(t, steps[1].Approved)

	_, err = decodeSteps(0, []interface{}{[]*big.Int{half}, []bool{false, true}})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeCount(t *testing.T) {
	n, err := decodeCount([]interface{}{big.NewInt(2)})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	_, err = decodeCount([]interface{}{})
	require.ErrorIs(t, err, ErrMalformed)
}

type stubReceipts struct {
	misses  int
	calls   int
	failErr error
}

func (s *stubReceipts) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	s.calls++
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.calls <= s.misses {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	stub := &stubReceipts{misses: 2}
	receipt, err := WaitForReceipt(context.Background(), stub, common.Hash{}, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, 3, stub.calls)
}

func TestWaitForReceiptStopsOnError(t *testing.T) {
	stub := &stubReceipts{failErr: errors.New("connection reset")}
	_, err := WaitForReceipt(context.Background(), stub, common.Hash{}, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	stub := &stubReceipts{misses: 1_000_000}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := WaitForReceipt(ctx, stub, common.Hash{}, time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
