// Package wallet supplies the accounts and transaction signers the dashboard
// acts with. It stands in for a browser wallet extension: a provider is either
// configured or absent, and an account request can be rejected.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoWallet      = errors.New("no compatible wallet found")
	ErrRejected      = errors.New("account access rejected")
	ErrNotAuthorized = errors.New("account not authorized")
)

// Provider is a source of authorized accounts and signers.
type Provider interface {
	// RequestAccounts asks for authorization and may block on user input.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns the accounts authorized so far.
	Accounts(ctx context.Context) ([]common.Address, error)
	Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

// Options selects which provider Detect builds.
type Options struct {
	PrivateKeyHex string
	KeystoreDir   string
	Account       string
	Passphrase    PassphraseFunc
}

// Detect returns the configured provider or ErrNoWallet.
func Detect(opts Options) (Provider, error) {
	switch {
	case strings.TrimSpace(opts.PrivateKeyHex) != "":
		return NewKeyProvider(opts.PrivateKeyHex)
	case strings.TrimSpace(opts.KeystoreDir) != "":
		return NewKeystoreProvider(opts.KeystoreDir, opts.Account, opts.Passphrase), nil
	default:
		return nil, ErrNoWallet
	}
}

// KeyProvider signs with a single raw private key.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeyProvider(hexKey string) (*KeyProvider, error) {
	key, err := parsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &KeyProvider{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (p *KeyProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) Accounts(context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if account != p.address {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, account.Hex())
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	return opts, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
