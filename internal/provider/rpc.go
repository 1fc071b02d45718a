// Package provider connects the wallet manager to a wallet reachable over
// JSON-RPC. Wallet events are synthesised by polling eth_accounts and
// eth_chainId since plain RPC endpoints do not push them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fathia/miniapp/internal/wallet"
	"go.uber.org/zap"
)

const DefaultPollInterval = 2 * time.Second

type Options struct {
	PollInterval time.Duration
}

type RPCProvider struct {
	client   *rpc.Client
	log      *zap.Logger
	interval time.Duration

	feed  event.Feed
	scope event.SubscriptionScope

	mu       sync.Mutex
	accounts []string
	chainID  string
	primed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dial connects to the wallet endpoint at url.
func Dial(ctx context.Context, url string, opts Options, log *zap.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet rpc %s: %w", url, err)
	}
	log.Info("connected to wallet rpc", zap.String("url", url))
	return New(client, opts, log), nil
}

// New wraps an existing client and starts watching it. The provider owns
// the client and closes it on Close.
func New(client *rpc.Client, opts Options, log *zap.Logger) *RPCProvider {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &RPCProvider{
		client:   client,
		log:      log,
		interval: opts.PollInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.wg.Add(1)
	go p.watch()
	return p
}

func (p *RPCProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	return convertError(p.client.CallContext(ctx, result, method, params...))
}

func (p *RPCProvider) SubscribeEvents(ch chan<- wallet.ProviderEvent) event.Subscription {
	return p.scope.Track(p.feed.Subscribe(ch))
}

func (p *RPCProvider) Close() {
	p.cancel()
	p.wg.Wait()
	p.scope.Close()
	p.client.Close()
}

// convertError lifts JSON-RPC error objects into wallet.ProviderError so
// the manager can branch on the code.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return &wallet.ProviderError{Code: rerr.ErrorCode(), Message: rerr.Error()}
	}
	return err
}

func (p *RPCProvider) watch() {
	defer p.wg.Done()

	p.poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll()
		case <-p.ctx.Done():
			return
		}
	}
}

// poll compares the wallet's accounts and chain with the previous round.
// The first successful round only records the baseline.
func (p *RPCProvider) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, p.interval)
	defer cancel()

	var accounts []string
	if err := p.Request(ctx, &accounts, wallet.MethodAccounts); err != nil {
		p.log.Debug("poll eth_accounts failed", zap.Error(err))
		return
	}
	var chainID string
	if err := p.Request(ctx, &chainID, wallet.MethodChainID); err != nil {
		p.log.Debug("poll eth_chainId failed", zap.Error(err))
		return
	}

	p.mu.Lock()
	accountsChanged := p.primed && !slices.EqualFunc(accounts, p.accounts, strings.EqualFold)
	chainChanged := p.primed && !strings.EqualFold(chainID, p.chainID)
	p.accounts, p.chainID, p.primed = accounts, chainID, true
	p.mu.Unlock()

	if chainChanged {
		p.emit(wallet.ProviderEvent{Kind: wallet.EventChainChanged, ChainID: chainID})
	}
	if accountsChanged {
		p.emit(wallet.ProviderEvent{Kind: wallet.EventAccountsChanged, Accounts: accounts})
	}
}

func (p *RPCProvider) emit(ev wallet.ProviderEvent) {
	p.log.Debug("wallet event", zap.String("kind", string(ev.Kind)))
	p.feed.Send(ev)
}
