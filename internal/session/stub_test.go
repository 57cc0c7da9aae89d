package session

import (
	"context"
	"math/big"
	"sync"
	"time"

	"escrowboard/internal/escrow"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000a1")

type stubProvider struct {
	accounts []common.Address
	err      error
}

func (p *stubProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return p.accounts, p.err
}

func (p *stubProvider) Accounts(context.Context) ([]common.Address, error) {
	return p.accounts, nil
}

func (p *stubProvider) Transactor(common.Address, *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{}, nil
}

type stubClient struct {
	mu sync.Mutex

	count     uint64
	countErr  error
	escrows   map[uint64]escrow.Escrow
	escrowErr map[uint64]error
	steps     map[uint64][]escrow.Step
	stepsErr  map[uint64]error

	gas         uint64
	estimateErr error
	sendErr     error

	// afterCount and afterSend run once the matching call has been served
	afterCount func()
	afterSend  func()

	countReads int
	estimates  []escrow.TxRequest
	sends      []escrow.TxRequest
}

func newStubClient() *stubClient {
	return &stubClient{
		escrows:   map[uint64]escrow.Escrow{},
		escrowErr: map[uint64]error{},
		steps:     map[uint64][]escrow.Step{},
		stepsErr:  map[uint64]error{},
		gas:       50_000,
	}
}

func (c *stubClient) put(e escrow.Escrow, steps ...escrow.Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.escrows[e.ID] = e
	c.steps[e.ID] = steps
	if e.ID+1 > c.count {
		c.count = e.ID + 1
	}
}

func (c *stubClient) EscrowCount(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.countReads++
	if c.afterCount != nil {
		defer c.afterCount()
	}
	return c.count, c.countErr
}

func (c *stubClient) Escrow(ctx context.Context, id uint64) (escrow.Escrow, error) {
	if err := ctx.Err(); err != nil {
		return escrow.Escrow{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.escrowErr[id]; err != nil {
		return escrow.Escrow{}, err
	}
	e, ok := c.escrows[id]
	if !ok {
		return escrow.Escrow{}, escrow.ErrNotFound
	}
	return e, nil
}

func (c *stubClient) EscrowSteps(_ context.Context, id uint64) ([]escrow.Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stepsErr[id]; err != nil {
		return nil, err
	}
	return c.steps[id], nil
}

func (c *stubClient) EstimateGas(_ context.Context, req escrow.TxRequest) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimates = append(c.estimates, req)
	return c.gas, c.estimateErr
}

func (c *stubClient) Send(_ context.Context, req escrow.TxRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, req)
	if c.afterSend != nil {
		defer c.afterSend()
	}
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return "0xfeed", nil
}

func (c *stubClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countReads + len(c.estimates) + len(c.sends)
}

type fixture struct {
	session  *Session
	client   *stubClient
	hook     *logtest.Hook
	notes    <-chan Notification
	factoryN int
}

func newFixture(provider *stubProvider) *fixture {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{client: newStubClient(), hook: hook}
	notifier := NewNotifier(time.Minute)
	f.notes, _ = notifier.Subscribe(32)

	cfg := Config{
		Factory: func(context.Context, escrow.Signer) (escrow.Client, error) {
			f.factoryN++
			return f.client, nil
		},
		Logger:   logger,
		Notifier: notifier,
	}
	if provider != nil {
		cfg.Provider = provider
	}
	f.session = New(cfg)
	return f
}

func connectedFixture() *fixture {
	f := newFixture(&stubProvider{accounts: []common.Address{testAccount}})
	if err := f.session.Connect(context.Background()); err != nil {
		panic(err)
	}
	f.drainNotes()
	f.hook.Reset()
	return f
}

func (f *fixture) drainNotes() []Notification {
	var out []Notification
	for {
		select {
		case n := <-f.notes:
			out = append(out, n)
		default:
			return out
		}
	}
}

func (f *fixture) errorEntries() []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			out = append(out, e)
		}
	}
	return out
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}
