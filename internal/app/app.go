// Package app wires configuration, wallet, contract handle and session the
// same way for the API daemon and the terminal dashboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"escrowboard/internal/config"
	"escrowboard/internal/escrow"
	"escrowboard/internal/metrics"
	"escrowboard/internal/session"
	"escrowboard/internal/snapshot"
	"escrowboard/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Config     *config.AppConfig
	Logger     *logrus.Logger
	Passphrase wallet.PassphraseFunc
	Metrics    *metrics.Registry
}

var errNoHandle = errors.New("contract handle not built yet")

type App struct {
	Session  *session.Session
	Contract common.Address
	DevMode  bool

	mu      sync.Mutex
	rpc     *escrow.EthClient
	closers []func()
}

// New builds the session. It does not connect.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	log := deps.Logger

	contract, err := cfg.ContractAddress()
	if err != nil {
		return nil, err
	}

	provider, err := detectWallet(cfg, deps.Passphrase, log)
	if err != nil {
		return nil, err
	}

	a := &App{Contract: contract, DevMode: cfg.DevMode()}

	var factory session.HandleFactory
	if cfg.DevMode() {
		log.Warn("CHAIN_RPC_URL not set, using in-memory escrow contract")
		fake := escrow.NewFakeClient()
		factory = func(context.Context, escrow.Signer) (escrow.Client, error) {
			return fake, nil
		}
	} else {
		factory = func(ctx context.Context, signer escrow.Signer) (escrow.Client, error) {
			cli, err := escrow.NewEthClient(ctx, escrow.EthClientConfig{
				RPCURL:          cfg.Chain.RPCURL,
				ContractAddress: contract.Hex(),
				Signer:          signer,
			})
			if err != nil {
				return nil, err
			}
			a.mu.Lock()
			a.rpc = cli
			a.closers = append(a.closers, cli.Close)
			a.mu.Unlock()
			return cli, nil
		}
	}

	sessCfg := session.Config{
		Provider: provider,
		Factory:  factory,
		Logger:   log.WithField("contract", contract.Hex()),
		Notifier: session.NewNotifier(cfg.NotificationTTL),
	}
	if deps.Metrics != nil {
		sessCfg.Recorder = deps.Metrics
	}
	a.Session = session.New(sessCfg)

	if cfg.Stores.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Stores.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		pub := snapshot.NewPublisher(snapshot.Options{Client: rdb, Contract: contract})
		a.Session.AddSyncHook(pub.Publish)
		a.mu.Lock()
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.mu.Unlock()
		log.WithField("redis", cfg.Stores.RedisAddr).Info("publishing escrow snapshots")
	}
	return a, nil
}

// RPCHealth returns the chain ping used by the health endpoint, or nil in dev
// mode.
func (a *App) RPCHealth() func(context.Context) error {
	if a.DevMode {
		return nil
	}
	return func(ctx context.Context) error {
		a.mu.Lock()
		cli := a.rpc
		a.mu.Unlock()
		if cli == nil {
			return errNoHandle
		}
		return cli.Ping(ctx)
	}
}

func (a *App) Close() {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// detectWallet returns a nil provider when none is configured, so the session
// reports the missing wallet. Dev mode gets a throwaway key instead.
func detectWallet(cfg *config.AppConfig, passphrase wallet.PassphraseFunc, log logrus.FieldLogger) (wallet.Provider, error) {
	if passphrase == nil && cfg.Chain.KeystorePassphrase != "" {
		passphrase = wallet.StaticPassphrase(cfg.Chain.KeystorePassphrase)
	}
	provider, err := wallet.Detect(wallet.Options{
		PrivateKeyHex: cfg.Chain.PrivateKey,
		KeystoreDir:   cfg.Chain.KeystoreDir,
		Account:       cfg.Chain.KeystoreAccount,
		Passphrase:    passphrase,
	})
	switch {
	case err == nil:
		return provider, nil
	case !errors.Is(err, wallet.ErrNoWallet):
		return nil, err
	case cfg.DevMode():
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		dev, err := wallet.NewKeyProvider(fmt.Sprintf("%x", crypto.FromECDSA(key)))
		if err != nil {
			return nil, err
		}
		log.WithField("account", crypto.PubkeyToAddress(key.PublicKey).Hex()).Warn("no wallet configured, using a throwaway dev account")
		return dev, nil
	default:
		return nil, nil
	}
}
