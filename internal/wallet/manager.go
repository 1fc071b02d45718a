// Package wallet owns the connected wallet session: the active address, the
// connection status and the chain the wallet is on. All provider traffic
// goes through Manager.
package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTimeout      = 2 * time.Minute
	DefaultGasLimitHint = "0x55555"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Session is a snapshot of the wallet connection. ChainID is 0 while unknown.
type Session struct {
	Address      string `json:"address,omitempty"`
	IsConnected  bool   `json:"isConnected"`
	IsConnecting bool   `json:"isConnecting"`
	ChainID      uint64 `json:"chainId,omitempty"`
}

func (s Session) State() State {
	switch {
	case s.IsConnected:
		return StateConnected
	case s.IsConnecting:
		return StateConnecting
	}
	return StateDisconnected
}

type Options struct {
	// Timeout bounds every provider round trip, including time spent
	// waiting for the user to answer a wallet prompt.
	Timeout      time.Duration
	GasLimitHint string
}

type Manager struct {
	provider Provider
	notifier Notifier
	opts     Options
	log      *zap.Logger

	mu      sync.RWMutex
	session Session
	closed  bool
	feed    event.Feed

	// one in-flight operation per class
	connectGuard *semaphore.Weighted
	switchGuard  *semaphore.Weighted
	sendGuard    *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager bound to provider. A nil provider is allowed
// and models a browser without a wallet extension.
func NewManager(provider Provider, notifier Notifier, opts Options, log *zap.Logger) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.GasLimitHint == "" {
		opts.GasLimitHint = DefaultGasLimitHint
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider:     provider,
		notifier:     notifier,
		opts:         opts,
		log:          log,
		connectGuard: semaphore.NewWeighted(1),
		switchGuard:  semaphore.NewWeighted(1),
		sendGuard:    semaphore.NewWeighted(1),
		ctx:          ctx,
		cancel:       cancel,
	}

	if provider != nil {
		ch := make(chan ProviderEvent, 16)
		sub := provider.SubscribeEvents(ch)
		m.wg.Add(1)
		go m.eventLoop(ch, sub)
	}
	return m
}

// Close stops the event loop and waits for background negotiation.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Session returns a copy of the current wallet session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// SubscribeSession delivers every session change to ch.
func (m *Manager) SubscribeSession(ch chan<- Session) event.Subscription {
	return m.feed.Subscribe(ch)
}

func (m *Manager) HasProvider() bool {
	return m.provider != nil
}

// IsOnBaseNetwork reports whether the wallet currently sits on a Base chain.
func (m *Manager) IsOnBaseNetwork() bool {
	return chain.IsBaseNetwork(m.Session().ChainID)
}

func (m *Manager) update(fn func(s *Session)) Session {
	m.mu.Lock()
	fn(&m.session)
	snapshot := m.session
	m.mu.Unlock()

	m.feed.Send(snapshot)
	return snapshot
}

func (m *Manager) notify(ctx context.Context, n Notification) {
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	m.notifier.Notify(ctx, n)
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.Timeout)
}

func (m *Manager) readChainID(ctx context.Context) (uint64, error) {
	var hex string
	if err := m.provider.Request(ctx, &hex, MethodChainID); err != nil {
		return 0, err
	}
	return chain.ParseChainID(hex)
}

// Restore picks up a wallet that already authorised this app, the way a
// page load does. It never prompts the user.
func (m *Manager) Restore(ctx context.Context) error {
	if m.provider == nil {
		return ErrNoProvider
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var accounts []string
	if err := m.provider.Request(ctx, &accounts, MethodAccounts); err != nil {
		m.log.Warn("failed to check wallet connection", zap.Error(err))
		return err
	}
	chainID, err := m.readChainID(ctx)
	if err != nil {
		m.log.Warn("failed to read chain id", zap.Error(err))
		return err
	}

	s := m.update(func(s *Session) {
		s.ChainID = chainID
		if len(accounts) > 0 && common.IsHexAddress(accounts[0]) {
			s.Address = strings.ToLower(accounts[0])
			s.IsConnected = true
		}
	})
	if s.IsConnected {
		m.log.Info("wallet connected on load",
			zap.String("address", s.Address),
			zap.Uint64("chain_id", s.ChainID),
		)
	}
	return nil
}

// Connect asks the wallet for account access. On success it records the
// first account and the active chain, then tries to move the wallet to
// Base Sepolia in the background; that negotiation never fails Connect.
func (m *Manager) Connect(ctx context.Context) (address string, err error) {
	defer func() { metrics.RecordWalletOp("connect", err) }()

	if m.provider == nil {
		m.notify(ctx, Notification{
			Title:       "Wallet Not Found",
			Description: "Please install MetaMask or another Ethereum wallet.",
			Variant:     VariantDestructive,
		})
		return "", ErrNoProvider
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.connectGuard.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	defer m.connectGuard.Release(1)

	m.update(func(s *Session) { s.IsConnecting = true })
	defer m.update(func(s *Session) { s.IsConnecting = false })

	var accounts []string
	if err := m.provider.Request(ctx, &accounts, MethodRequestAccounts); err != nil {
		return "", m.connectFailed(ctx, err)
	}
	if len(accounts) == 0 {
		m.log.Warn("no accounts returned from wallet")
		m.notify(ctx, Notification{
			Title:       "Connection Failed",
			Description: "No accounts returned from wallet. Please unlock your wallet and try again.",
			Variant:     VariantDestructive,
		})
		return "", ErrNoAccounts
	}
	if !common.IsHexAddress(accounts[0]) {
		m.notify(ctx, Notification{
			Title:       "Connection Failed",
			Description: "Wallet returned an invalid account.",
			Variant:     VariantDestructive,
		})
		return "", fmt.Errorf("%w: malformed account %q", ErrNoAccounts, accounts[0])
	}

	chainID, err := m.readChainID(ctx)
	if err != nil {
		return "", m.connectFailed(ctx, err)
	}

	address = strings.ToLower(accounts[0])
	m.update(func(s *Session) {
		s.Address = address
		s.IsConnected = true
		s.ChainID = chainID
	})

	m.log.Info("wallet connected", zap.String("address", address), zap.Uint64("chain_id", chainID))
	m.notify(ctx, Notification{
		Title:       "Wallet Connected",
		Description: "Connected to " + shortAddress(address),
	})

	if chainID != chain.BaseSepoliaID {
		m.negotiateInBackground()
	}
	return address, nil
}

func (m *Manager) connectFailed(ctx context.Context, err error) error {
	cerr, msg := classifyConnectError(err)
	m.log.Warn("failed to connect wallet", zap.Error(err))
	m.notify(ctx, Notification{
		Title:       "Connection Failed",
		Description: msg,
		Variant:     VariantDestructive,
	})
	return cerr
}

func (m *Manager) negotiateInBackground() {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := m.withTimeout(m.ctx)
		defer cancel()
		if _, err := m.SwitchNetwork(ctx, chain.TargetSepolia); err != nil {
			m.log.Info("network negotiation after connect failed", zap.Error(err))
		}
	}()
}

// Disconnect forgets the wallet locally. Pages cannot disconnect the wallet
// itself, so the provider is not contacted.
func (m *Manager) Disconnect(ctx context.Context) {
	m.update(func(s *Session) {
		s.Address = ""
		s.IsConnected = false
	})
	metrics.RecordWalletOp("disconnect", nil)
	m.notify(ctx, Notification{
		Title:       "Wallet Disconnected",
		Description: "Your wallet has been disconnected.",
	})
}
