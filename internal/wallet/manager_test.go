package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/fathia/miniapp/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAccount = "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"

type call struct {
	Method string
	Chain  string
}

type fakeProvider struct {
	mu          sync.Mutex
	calls       []call
	accounts    []string
	accountsErr error
	chainID     string
	switchErrs  map[string]error
	addErrs     map[string]error
	sendHash    string
	sendErr     error
	sent        *TxRequest
	block       bool
	delay       time.Duration
	inflight    int
	maxInflight int
	feed        event.Feed
}

func newFakeProvider(chainID string, accounts ...string) *fakeProvider {
	return &fakeProvider{
		accounts:   accounts,
		chainID:    chainID,
		switchErrs: map[string]error{},
		addErrs:    map[string]error{},
		sendHash:   "0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b",
	}
}

func (p *fakeProvider) SubscribeEvents(ch chan<- ProviderEvent) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *fakeProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	p.mu.Lock()
	p.calls = append(p.calls, call{Method: method, Chain: chainParam(params)})
	p.inflight++
	if p.inflight > p.maxInflight {
		p.maxInflight = p.inflight
	}
	block, delay := p.block, p.delay
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inflight--
		p.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch method {
	case MethodRequestAccounts, MethodAccounts:
		if p.accountsErr != nil {
			return p.accountsErr
		}
		return assign(result, p.accounts)
	case MethodChainID:
		return assign(result, p.chainID)
	case MethodSwitchChain:
		id := chainParam(params)
		if err := p.switchErrs[id]; err != nil {
			return err
		}
		p.chainID = id
		return nil
	case MethodAddChain:
		id := chainParam(params)
		if err := p.addErrs[id]; err != nil {
			return err
		}
		p.chainID = id
		return nil
	case MethodSendTransaction:
		tx := params[0].(TxRequest)
		p.sent = &tx
		if p.sendErr != nil {
			return p.sendErr
		}
		return assign(result, p.sendHash)
	}
	return &ProviderError{Code: -32601, Message: "method not found"}
}

func (p *fakeProvider) Calls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func (p *fakeProvider) countMethod(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func chainParam(params []any) string {
	if len(params) == 0 {
		return ""
	}
	switch v := params[0].(type) {
	case switchChainParams:
		return v.ChainID
	case chain.Network:
		return v.ChainIDHex
	}
	return ""
}

func assign(result, value any) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *recordingNotifier) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	titles := make([]string, 0, len(n.notes))
	for _, note := range n.notes {
		titles = append(titles, note.Title)
	}
	return titles
}

func newTestManager(t *testing.T, p Provider) (*Manager, *recordingNotifier) {
	t.Helper()
	notes := &recordingNotifier{}
	m := NewManager(p, notes, Options{Timeout: time.Second}, zap.NewNop())
	t.Cleanup(m.Close)
	return m, notes
}

func rejected() error { return &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."} }
func unknownChain() error {
	return &ProviderError{Code: CodeUnknownChain, Message: "Unrecognized chain ID"}
}

func TestConnect_Success(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, notes := newTestManager(t, p)

	addr, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr)
	s := m.Session()
	assert.Equal(t, addr, s.Address)
	assert.Equal(t, chain.BaseSepoliaID, s.ChainID)
	assert.Equal(t, StateConnected, s.State())
	assert.False(t, s.IsConnecting)
	assert.Contains(t, notes.Titles(), "Wallet Connected")

	// already on Base Sepolia, nothing to negotiate
	m.Close()
	assert.Zero(t, p.countMethod(MethodSwitchChain))
}

func TestConnect_EmptyAccounts(t *testing.T) {
	p := newFakeProvider("0x14A34")
	m, notes := newTestManager(t, p)

	addr, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAccounts)
	assert.Empty(t, addr)
	assert.Equal(t, StateDisconnected, m.Session().State())
	assert.Equal(t, []string{"Connection Failed"}, notes.Titles())
}

func TestConnect_ProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejected", rejected(), ErrUserRejected},
		{"pending", &ProviderError{Code: CodeRequestPending, Message: "Already processing eth_requestAccounts."}, ErrRequestPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider("0x14A34", testAccount)
			p.accountsErr = tt.err
			m, notes := newTestManager(t, p)

			addr, err := m.Connect(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, addr)
			assert.Equal(t, StateDisconnected, m.Session().State())
			assert.Equal(t, []string{"Connection Failed"}, notes.Titles())
		})
	}
}

func TestConnect_NoProvider(t *testing.T) {
	m, notes := newTestManager(t, nil)

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.Equal(t, []string{"Wallet Not Found"}, notes.Titles())
	assert.False(t, m.HasProvider())
}

func TestConnect_NegotiatesBaseSepoliaInBackground(t *testing.T) {
	p := newFakeProvider("0x1", testAccount)
	m, _ := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.Close()
	calls := p.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, call{Method: MethodSwitchChain, Chain: "0x14A34"}, calls[2])
	assert.Equal(t, chain.BaseSepoliaID, m.Session().ChainID)
}

func TestConnect_NegotiationFailureKeepsConnection(t *testing.T) {
	p := newFakeProvider("0x1", testAccount)
	p.switchErrs["0x14A34"] = rejected()
	m, notes := newTestManager(t, p)

	addr, err := m.Connect(context.Background())
	require.NoError(t, err)
	m.Close()

	assert.NotEmpty(t, addr)
	assert.Equal(t, StateConnected, m.Session().State())
	assert.Equal(t, chain.EthereumMainnetID, m.Session().ChainID)
	assert.Contains(t, notes.Titles(), "Network Switch Rejected")
}

func TestConnect_Timeout(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	p.block = true
	m := NewManager(p, &recordingNotifier{}, Options{Timeout: 30 * time.Millisecond}, zap.NewNop())
	defer m.Close()

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Equal(t, StateDisconnected, m.Session().State())
}

func TestConnect_Serialized(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	p.delay = 10 * time.Millisecond
	m, _ := newTestManager(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Connect(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.maxInflight)
	assert.Len(t, p.calls, 6)
}

func TestRestore(t *testing.T) {
	p := newFakeProvider("0x2105", testAccount)
	m, notes := newTestManager(t, p)

	require.NoError(t, m.Restore(context.Background()))
	s := m.Session()
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, chain.BaseMainnetID, s.ChainID)
	assert.Empty(t, notes.Titles())
	assert.Zero(t, p.countMethod(MethodRequestAccounts))
}

func TestRestore_NotAuthorized(t *testing.T) {
	p := newFakeProvider("0x1")
	m, _ := newTestManager(t, p)

	require.NoError(t, m.Restore(context.Background()))
	s := m.Session()
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, chain.EthereumMainnetID, s.ChainID)
}

func TestDisconnect_Idempotent(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, _ := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	before := len(p.Calls())

	m.Disconnect(context.Background())
	assert.Equal(t, StateDisconnected, m.Session().State())
	assert.Empty(t, m.Session().Address)

	m.Disconnect(context.Background())
	assert.Equal(t, StateDisconnected, m.Session().State())
	assert.Len(t, p.Calls(), before, "disconnect must not reach the provider")
}

func TestAccountsChanged(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, notes := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	other := "0x1111111111111111111111111111111111111111"
	m.handleEvent(context.Background(), ProviderEvent{Kind: EventAccountsChanged, Accounts: []string{other}})
	assert.Equal(t, other, m.Session().Address)
	assert.True(t, m.Session().IsConnected)

	m.handleEvent(context.Background(), ProviderEvent{Kind: EventAccountsChanged, Accounts: nil})
	assert.Equal(t, StateDisconnected, m.Session().State())
	assert.Empty(t, m.Session().Address)
	assert.Contains(t, notes.Titles(), "Wallet Disconnected")
}

func TestChainChanged(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, notes := newTestManager(t, p)

	m.handleEvent(context.Background(), ProviderEvent{Kind: EventChainChanged, ChainID: "0x2105"})
	assert.Equal(t, chain.BaseMainnetID, m.Session().ChainID)
	assert.True(t, m.IsOnBaseNetwork())

	m.handleEvent(context.Background(), ProviderEvent{Kind: EventChainChanged, ChainID: "0x89"})
	assert.Equal(t, uint64(137), m.Session().ChainID)
	assert.False(t, m.IsOnBaseNetwork())

	m.handleEvent(context.Background(), ProviderEvent{Kind: EventChainChanged, ChainID: "garbage"})
	assert.Equal(t, uint64(137), m.Session().ChainID)
	assert.Equal(t, []string{"Network Changed", "Network Changed"}, notes.Titles())
}

func TestEventLoopDeliversProviderEvents(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, _ := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	p.feed.Send(ProviderEvent{Kind: EventAccountsChanged, Accounts: []string{}})
	require.Eventually(t, func() bool {
		return m.Session().State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeSession(t *testing.T) {
	p := newFakeProvider("0x14A34", testAccount)
	m, _ := newTestManager(t, p)

	ch := make(chan Session, 16)
	sub := m.SubscribeSession(ch)
	defer sub.Unsubscribe()

	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	var last Session
	for len(ch) > 0 {
		last = <-ch
	}
	assert.True(t, last.IsConnected)
	assert.False(t, last.IsConnecting)
}

func TestSessionState(t *testing.T) {
	assert.Equal(t, StateDisconnected, Session{}.State())
	assert.Equal(t, StateConnecting, Session{IsConnecting: true}.State())
	assert.Equal(t, StateConnected, Session{IsConnected: true, Address: "0x1"}.State())
}

func TestProviderErrorIs(t *testing.T) {
	assert.True(t, errors.Is(rejected(), ErrUserRejected))
	assert.True(t, errors.Is(&ProviderError{Code: CodeInternalError}, ErrProviderInternal))
	assert.False(t, errors.Is(unknownChain(), ErrUserRejected))
	assert.Equal(t, CodeUnknownChain, ErrorCode(unknownChain()))
	assert.Zero(t, ErrorCode(errors.New("plain")))
}
