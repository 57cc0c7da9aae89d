package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// PassphraseFunc supplies the passphrase for an account. Returning an error
// rejects the account request.
type PassphraseFunc func(ctx context.Context, account common.Address) (string, error)

// StaticPassphrase always answers with the same passphrase.
func StaticPassphrase(passphrase string) PassphraseFunc {
	return func(context.Context, common.Address) (string, error) {
		return passphrase, nil
	}
}

// KeystoreProvider unlocks one account of a go-ethereum keystore directory.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	want       string
	passphrase PassphraseFunc

	mu       sync.Mutex
	unlocked *accounts.Account
}

func NewKeystoreProvider(dir, account string, passphrase PassphraseFunc) *KeystoreProvider {
	return &KeystoreProvider{
		ks:         keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		want:       strings.TrimSpace(account),
		passphrase: passphrase,
	}
}

// newKeystoreProviderFrom wraps an existing keystore.
func newKeystoreProviderFrom(ks *keystore.KeyStore, account string, passphrase PassphraseFunc) *KeystoreProvider {
	return &KeystoreProvider{ks: ks, want: account, passphrase: passphrase}
}

func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unlocked != nil {
		return []common.Address{p.unlocked.Address}, nil
	}

	acc, err := p.pick()
	if err != nil {
		return nil, err
	}
	if p.passphrase == nil {
		return nil, fmt.Errorf("%w: no passphrase source", ErrRejected)
	}
	pass, err := p.passphrase(ctx, acc.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if err := p.ks.Unlock(acc, pass); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	p.unlocked = &acc
	return []common.Address{acc.Address}, nil
}

func (p *KeystoreProvider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unlocked == nil {
		return nil, nil
	}
	return []common.Address{p.unlocked.Address}, nil
}

func (p *KeystoreProvider) Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	p.mu.Lock()
	unlocked := p.unlocked
	p.mu.Unlock()
	if unlocked == nil || unlocked.Address != account {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, account.Hex())
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, *unlocked, chainID)
	if err != nil {
		return nil, fmt.Errorf("keystore transactor: %w", err)
	}
	return opts, nil
}

func (p *KeystoreProvider) pick() (accounts.Account, error) {
	all := p.ks.Accounts()
	if len(all) == 0 {
		return accounts.Account{}, fmt.Errorf("%w: keystore has no accounts", ErrRejected)
	}
	if p.want == "" {
		return all[0], nil
	}
	if !common.IsHexAddress(p.want) {
		return accounts.Account{}, fmt.Errorf("%w: invalid account %q", ErrRejected, p.want)
	}
	want := common.HexToAddress(p.want)
	for _, acc := range all {
		if acc.Address == want {
			return acc, nil
		}
	}
	return accounts.Account{}, fmt.Errorf("%w: account %s not in keystore", ErrRejected, want.Hex())
}
