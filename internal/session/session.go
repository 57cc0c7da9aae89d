// Package session holds the dashboard's per-session state and the workflows
// that act on it: connecting a wallet, synchronizing escrows from the
// contract, submitting the five escrow actions and viewing an escrow's steps.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"escrowboard/internal/escrow"
	"escrowboard/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected      = errors.New("session not connected")
	ErrSessionFailed     = errors.New("session failed to connect")
	ErrAlreadyConnected  = errors.New("session already connected")
	ErrConnectInProgress = errors.New("session connect in progress")
	ErrEscrowNotFound    = errors.New("escrow not in synchronized list")
)

const (
	msgNoWallet      = "No compatible wallet found. Configure a private key or a keystore."
	msgConnectFailed = "Failed to connect to wallet. Please try again."
	msgFetchFailed   = "Failed to fetch escrows. Please try again."
)

type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// HandleFactory builds the contract handle once an account is authorized.
type HandleFactory func(ctx context.Context, signer escrow.Signer) (escrow.Client, error)

// SyncHook observes every successfully synchronized escrow list.
type SyncHook func(ctx context.Context, escrows []escrow.Escrow) error

// MutationHook runs once after every confirmed write.
type MutationHook func(ctx context.Context) error

type Config struct {
	// Provider is nil when no wallet is configured.
	Provider wallet.Provider
	Factory  HandleFactory
	Logger   logrus.FieldLogger
	Notifier *Notifier
	Recorder Recorder
}

type Session struct {
	provider wallet.Provider
	factory  HandleFactory
	log      logrus.FieldLogger
	notifier *Notifier
	recorder Recorder

	mu         sync.Mutex
	state      State
	connecting bool
	account    common.Address
	handle     escrow.Client
	escrows    []escrow.Escrow
	selected   *escrow.Escrow
	inflight   int
	drafts     Drafts
	onMutation MutationHook
	syncHooks  []SyncHook
}

func New(cfg Config) *Session {
	s := &Session{
		provider: cfg.Provider,
		factory:  cfg.Factory,
		log:      cfg.Logger,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(DefaultNotificationTTL)
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	s.onMutation = s.Refresh
	return s
}

// OnMutation replaces the hook run after a confirmed write. The default
// re-runs Refresh.
func (s *Session) OnMutation(hook MutationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutation = hook
}

func (s *Session) AddSyncHook(hook SyncHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncHooks = append(s.syncHooks, hook)
}

func (s *Session) Notifier() *Notifier {
	return s.notifier
}

// Connect authorizes an account and builds the contract handle, then
// synchronizes once. A failed connect is final for the session.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateFailed:
		s.mu.Unlock()
		return ErrSessionFailed
	case s.state == StateConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	case s.connecting:
		s.mu.Unlock()
		return ErrConnectInProgress
	}
	s.connecting = true
	s.mu.Unlock()

	if s.provider == nil {
		return s.fail(msgNoWallet, wallet.ErrNoWallet)
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return s.fail(msgConnectFailed, err)
	}
	if len(accounts) == 0 {
		return s.fail(msgConnectFailed, fmt.Errorf("%w: no accounts returned", wallet.ErrRejected))
	}

	handle, err := s.factory(ctx, s.provider)
	if err != nil {
		return s.fail(msgConnectFailed, fmt.Errorf("contract handle: %w", err))
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.handle = handle
	s.state = StateConnected
	s.connecting = false
	s.mu.Unlock()

	s.log.WithField("account", accounts[0].Hex()).Info("wallet connected")

	// A failed first sync is already reported; the session stays connected.
	_ = s.Refresh(ctx)
	return nil
}

func (s *Session) fail(message string, cause error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.connecting = false
	s.mu.Unlock()

	s.log.WithError(cause).Error("wallet connection failed")
	s.notifier.Error(message)
	return fmt.Errorf("%w: %w", ErrSessionFailed, cause)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// connection returns the account and handle when both are set.
func (s *Session) connection() (common.Address, escrow.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.account == (common.Address{}) {
		return common.Address{}, nil, false
	}
	return s.account, s.handle, true
}

func (s *Session) beginLoading() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Session) endLoading() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of the session for presentation.
type Snapshot struct {
	State        State
	Account      common.Address
	Loading      bool
	Escrows      []escrow.Escrow
	Selected     *escrow.Escrow
	Notification *Notification
	Drafts       Drafts
}

func (s *Snapshot) Connected() bool {
	return s.State == StateConnected
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:   s.state,
		Account: s.account,
		Loading: s.inflight > 0,
		Escrows: append([]escrow.Escrow(nil), s.escrows...),
		Drafts:  s.drafts,
	}
	if s.selected != nil {
		sel := *s.selected
		snap.Selected = &sel
	}
	s.mu.Unlock()

	if note, ok := s.notifier.Current(); ok {
		snap.Notification = &note
	}
	return snap
}

func (s *Session) find(id uint64) (escrow.Escrow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.escrows {
		if e.ID == id {
			return e, true
		}
	}
	return escrow.Escrow{}, false
}
