package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestDetect(t *testing.T) {
	_, err := Detect(Options{})
	require.ErrorIs(t, err, ErrNoWallet)

	p, err := Detect(Options{PrivateKeyHex: testKey})
	require.NoError(t, err)
	assert.IsType(t, &KeyProvider{}, p)

	p, err = Detect(Options{KeystoreDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &KeystoreProvider{}, p)

	_, err = Detect(Options{PrivateKeyHex: "not-hex"})
	require.Error(t, err)
}

func TestKeyProvider(t *testing.T) {
	p, err := NewKeyProvider(testKey)
	require.NoError(t, err)

	key, _ := crypto.HexToECDSA(testKey[2:])
	want := crypto.PubkeyToAddress(key.PublicKey)

	accs, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []common.Address{want}, accs)

	opts, err := p.Transactor(want, big.NewInt(1337))
	require.NoError(t, err)
	assert.Equal(t, want, opts.From)

	_, err = p.Transactor(common.HexToAddress("0x01"), big.NewInt(1337))
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func newTestKeystore(t *testing.T, passphrase string) (*keystore.KeyStore, common.Address) {
	t.Helper()
	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	acc, err := ks.NewAccount(passphrase)
	require.NoError(t, err)
	return ks, acc.Address
}

func TestKeystoreProviderUnlocks(t *testing.T) {
	ks, addr := newTestKeystore(t, "hunter2")
	p := newKeystoreProviderFrom(ks, "", StaticPassphrase("hunter2"))

	before, err := p.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, before)

	accs, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []common.Address{addr}, accs)

	opts, err := p.Transactor(addr, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, addr, opts.From)
}

func TestKeystoreProviderRejects(t *testing.T) {
	ks, addr := newTestKeystore(t, "right")

	wrong := newKeystoreProviderFrom(ks, addr.Hex(), StaticPassphrase("wrong"))
	_, err := wrong.RequestAccounts(context.Background())
	require.ErrorIs(t, err, ErrRejected)

	declined := newKeystoreProviderFrom(ks, "", func(context.Context, common.Address) (string, error) {
		return "", errors.New("prompt closed")
	})
	_, err = declined.RequestAccounts(context.Background())
	require.ErrorIs(t, err, ErrRejected)

	missing := newKeystoreProviderFrom(ks, "0x0000000000000000000000000000000000000009", StaticPassphrase("right"))
	_, err = missing.RequestAccounts(context.Background())
	require.ErrorIs(t, err, ErrRejected)

	empty := NewKeystoreProvider(t.TempDir(), "", StaticPassphrase("x"))
	_, err = empty.RequestAccounts(context.Background())
	require.ErrorIs(t, err, ErrRejected)

	_, err = wrong.Transactor(addr, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotAuthorized)
}
