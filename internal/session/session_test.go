package session

import (
	"context"
	"errors"
	"testing"

	"escrowboard/internal/escrow"
	"escrowboard/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionPayerAA = common.HexToAddress("0xAA000000000000000000000000000000000000AA")
	sessionPayeeBB = common.HexToAddress("0xBB000000000000000000000000000000000000BB")
)

func TestConnectWithoutWallet(t *testing.T) {
	f := newFixture(nil)

	err := f.session.Connect(context.Background())
	require.ErrorIs(t, err, ErrSessionFailed)
	require.ErrorIs(t, err, wallet.ErrNoWallet)
	assert.Equal(t, StateFailed, f.session.State())
	assert.Zero(t, f.factoryN)

	notes := f.drainNotes()
	require.Len(t, notes, 1)
	assert.Equal(t, SeverityError, notes[0].Severity)
	assert.Equal(t, msgNoWallet, notes[0].Message)

	// failed is terminal
	require.ErrorIs(t, f.session.Connect(context.Background()), ErrSessionFailed)
	assert.Empty(t, f.drainNotes())
}

func TestConnectRejected(t *testing.T) {
	f := newFixture(&stubProvider{err: wallet.ErrRejected})

	err := f.session.Connect(context.Background())
	require.ErrorIs(t, err, wallet.ErrRejected)
	assert.Equal(t, StateFailed, f.session.State())
	assert.Zero(t, f.factoryN)

	notes := f.drainNotes()
	require.Len(t, notes, 1)
	assert.Equal(t, msgConnectFailed, notes[0].Message)
	assert.Len(t, f.errorEntries(), 1)
}

func TestConnectWithNoAccountsFails(t *testing.T) {
	f := newFixture(&stubProvider{})
	require.ErrorIs(t, f.session.Connect(context.Background()), wallet.ErrRejected)
	assert.Equal(t, StateFailed, f.session.State())
}

func TestConnectSynchronizesOnce(t *testing.T) {
	f := newFixture(&stubProvider{accounts: []common.Address{testAccount, sessionPayerAA}})
	f.client.put(escrow.Escrow{ID: 0, Payer: sessionPayerAA, Payee: sessionPayeeBB, TotalAmount: wei("10"), ReleasedAmount: wei("0")})

	require.NoError(t, f.session.Connect(context.Background()))

	snap := f.session.Snapshot()
	assert.True(t, snap.Connected())
	assert.Equal(t, testAccount, snap.Account)
	assert.Len(t, snap.Escrows, 1)
	assert.Equal(t, 1, f.client.countReads)
	assert.Equal(t, 1, f.factoryN)
	assert.False(t, snap.Loading)

	require.ErrorIs(t, f.session.Connect(context.Background()), ErrAlreadyConnected)
	assert.Equal(t, 1, f.factoryN)
}

func TestConnectHandleFailure(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s := New(Config{
		Provider: &stubProvider{accounts: []common.Address{testAccount}},
		Factory: func(context.Context, escrow.Signer) (escrow.Client, error) {
			return nil, errors.New("dial tcp: refused")
		},
		Logger: logger,
	})

	require.ErrorIs(t, s.Connect(context.Background()), ErrSessionFailed)
	assert.Equal(t, StateFailed, s.State())
	note, ok := s.Notifier().Current()
	require.True(t, ok)
	assert.Equal(t, msgConnectFailed, note.Message)
}

func TestRefreshNotConnected(t *testing.T) {
	f := newFixture(&stubProvider{accounts: []common.Address{testAccount}})
	require.ErrorIs(t, f.session.Refresh(context.Background()), ErrNotConnected)
	assert.Zero(t, f.client.calls())
	assert.Empty(t, f.drainNotes())
}

func TestSelectReplacesPreviousSelection(t *testing.T) {
	f := connectedFixture()
	f.client.put(escrow.Escrow{ID: 0, TotalAmount: wei("2"), ReleasedAmount: wei("0")},
		escrow.Step{Index: 0, Amount: wei("2")})
	f.client.put(escrow.Escrow{ID: 1, TotalAmount: wei("3"), ReleasedAmount: wei("0")},
		escrow.Step{Index: 0, Amount: wei("1")}, escrow.Step{Index: 1, Amount: wei("2")})
	require.NoError(t, f.session.Refresh(context.Background()))

	a, err := f.session.Select(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, a.Steps, 1)

	b, err := f.session.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, b.Steps, 2)

	snap := f.session.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, uint64(1), snap.Selected.ID)
	assert.Len(t, snap.Selected.Steps, 2)

	f.session.ClearSelection()
	assert.Nil(t, f.session.Snapshot().Selected)
}

func TestSelectKeepsSyncedStepsWhenReadFails(t *testing.T) {
	f := connectedFixture()
	f.client.put(escrow.Escrow{ID: 0, TotalAmount: wei("2"), ReleasedAmount: wei("0")},
		escrow.Step{Index: 0, Amount: wei("2")})
	require.NoError(t, f.session.Refresh(context.Background()))

	f.client.stepsErr[0] = errors.New("rpc down")
	rec, err := f.session.Select(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rec.Steps, 1)
}

func TestSelectUnknownEscrow(t *testing.T) {
	f := connectedFixture()
	_, err := f.session.Select(context.Background(), 42)
	require.ErrorIs(t, err, ErrEscrowNotFound)
	assert.Nil(t, f.session.Snapshot().Selected)
}
