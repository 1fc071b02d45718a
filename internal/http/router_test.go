package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/config"
	"github.com/fathia/miniapp/internal/events"
	"github.com/fathia/miniapp/internal/http/handlers"
	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/mood"
	"github.com/fathia/miniapp/internal/session"
	"github.com/fathia/miniapp/internal/txstatus"
	"github.com/fathia/miniapp/internal/verify"
	"github.com/fathia/miniapp/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAddress = "0xabcdef0123456789abcdef0123456789abcdef01"

type memStore struct {
	mu   sync.Mutex
	user *models.User
}

func (s *memStore) Load(context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, session.ErrNoSession
	}
	u := *s.user
	return &u, nil
}

func (s *memStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.user = &cp
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

type fakeWallet struct {
	mu         sync.Mutex
	sess       wallet.Session
	connectErr error
	switchErr  error
	sendErr    error
	target     chain.Target
	sent       []string
}

func (w *fakeWallet) Session() wallet.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sess
}

func (w *fakeWallet) HasProvider() bool { return true }

func (w *fakeWallet) Connect(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connectErr != nil {
		return "", w.connectErr
	}
	w.sess = wallet.Session{Address: testAddress, IsConnected: true, ChainID: chain.BaseSepoliaID}
	return testAddress, nil
}

func (w *fakeWallet) Disconnect(context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sess.Address, w.sess.IsConnected = "", false
}

func (w *fakeWallet) SwitchNetwork(_ context.Context, target chain.Target) (*chain.Network, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = target
	if w.switchErr != nil {
		return nil, w.switchErr
	}
	n := target.Network()
	w.sess.ChainID = n.ChainID()
	return &n, nil
}

func (w *fakeWallet) SendTransaction(_ context.Context, to, _, _ string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.sess.IsConnected {
		return "", wallet.ErrNotConnected
	}
	if w.sendErr != nil {
		return "", w.sendErr
	}
	w.sent = append(w.sent, to)
	return "0x" + strings.Repeat("ab", 32), nil
}

type testEnv struct {
	app      *fiber.App
	wallet   *fakeWallet
	sessions *session.Service
	registry *verify.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiration: time.Hour, RateLimitPerMinute: 100}

	w := &fakeWallet{}
	sessions := session.NewService(&memStore{}, log)
	registry := verify.NewRegistry()
	bus := events.NewLocalBus()

	observer := txstatus.NewObserver(txstatus.DelayConfirmer{Delay: time.Hour}, bus, func() uint64 { return w.Session().ChainID }, log)
	t.Cleanup(observer.Close)

	moods := mood.NewSimulated(w, observer, nil, mood.Options{}, log)
	stub := verify.NewStub(verify.NewMemoryNullifierStore(), registry, verify.Options{}, log)

	app := fiber.New()
	SetupRouter(app, cfg, log, nil, sessions, Handlers{
		Auth:    handlers.NewAuthHandler(sessions, cfg.JWTSecret, cfg.JWTExpiration, log),
		User:    handlers.NewUserHandler(sessions, w, registry, log),
		Network: handlers.NewNetworkHandler(),
		Wallet:  handlers.NewWalletHandler(w, observer, log),
		Mood:    handlers.NewMoodHandler(moods, log),
		Verify:  handlers.NewVerifyHandler(stub, registry, moods, w, log),
		Tx:      handlers.NewTxHandler(observer, moods),
		WS:      handlers.NewWSHub(bus, log),
	})

	return &testEnv{app: app, wallet: w, sessions: sessions, registry: registry}
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (e *testEnv) signIn(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/signin", strings.NewReader(`{"email":"fathia@example.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	assert.Equal(t, "fathia", out.User.Name)
	return out.Token
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	status, _ := env.do(t, "GET", "/health", "", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAuth_RequiredAndSignOut(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, "GET", "/api/v1/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	token := env.signIn(t)
	status, body := env.do(t, "GET", "/api/v1/me", token, "")
	require.Equal(t, fiber.StatusOK, status)
	me := decodeData[struct {
		User models.User `json:"user"`
	}](t, body)
	assert.Equal(t, "fathia@example.com", me.User.Email)

	status, _ = env.do(t, "POST", "/api/v1/auth/signout", token, "")
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, "GET", "/api/v1/me", token, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSignIn_MissingPassword(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, "POST", "/api/v1/auth/signin", "", `{"email":"a@b.c"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, session.ErrInvalidCredentials.Error(), body.Error)
}

func TestNetworks(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, "GET", "/api/v1/networks", "", "")
	require.Equal(t, fiber.StatusOK, status)

	nets := decodeData[[]struct {
		ID        uint64 `json:"id"`
		ChainID   string `json:"chainId"`
		IsBase    bool   `json:"isBase"`
		IsTestnet bool   `json:"isTestnet"`
	}](t, body)
	require.Len(t, nets, 4)
	assert.Equal(t, chain.BaseMainnetID, nets[0].ID)
	assert.Equal(t, "0x2105", nets[0].ChainID)
	assert.True(t, nets[0].IsBase)
	assert.False(t, nets[0].IsTestnet)
}

func TestWalletConnect_ErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{wallet.ErrNoProvider, fiber.StatusServiceUnavailable},
		{&wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "denied"}, fiber.StatusForbidden},
		{&wallet.ProviderError{Code: wallet.CodeRequestPending, Message: "pending"}, fiber.StatusConflict},
		{wallet.ErrProviderTimeout, fiber.StatusGatewayTimeout},
		{wallet.ErrNoAccounts, fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t)
			token := env.signIn(t)
			env.wallet.connectErr = tt.err

			status, body := env.do(t, "POST", "/api/v1/me/wallet", token, "")
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestWalletConnectAndDisconnect(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, body := env.do(t, "POST", "/api/v1/me/wallet", token, "")
	require.Equal(t, fiber.StatusOK, status)
	view := decodeData[map[string]any](t, body)
	assert.Equal(t, testAddress, view["address"])
	assert.Equal(t, "connected", view["state"])
	assert.Equal(t, true, view["isBaseNetwork"])
	assert.Equal(t, "Base Sepolia", view["networkName"])

	status, body = env.do(t, "DELETE", "/api/v1/me/wallet", token, "")
	require.Equal(t, fiber.StatusOK, status)
	view = decodeData[map[string]any](t, body)
	assert.Equal(t, "disconnected", view["state"])
}

func TestSwitchNetwork(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, _ := env.do(t, "POST", "/api/v1/me/wallet/network", token, `{"target":"polygon"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := env.do(t, "POST", "/api/v1/me/wallet/network", token, `{"target":"goerli-testnet"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, chain.TargetGoerli, env.wallet.target)
	out := decodeData[struct {
		Network chain.Network `json:"network"`
	}](t, body)
	assert.Equal(t, "0x14A33", out.Network.ChainIDHex)

	env.wallet.switchErr = wallet.ErrNetworkSwitchFailed
	status, _ = env.do(t, "POST", "/api/v1/me/wallet/network", token, "")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, chain.TargetMainnet, env.wallet.target)
}

func TestSetMood(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, _ := env.do(t, "POST", "/api/v1/moods", token, `{"mood":"Bored"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, "POST", "/api/v1/moods", token, `{"mood":"Happy"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = env.do(t, "POST", "/api/v1/me/wallet", token, "")
	require.Equal(t, fiber.StatusOK, status)

	status, body := env.do(t, "POST", "/api/v1/moods", token, `{"mood":"Happy"}`)
	require.Equal(t, fiber.StatusCreated, status)
	hash := decodeData[struct {
		Hash string `json:"hash"`
	}](t, body).Hash
	assert.Len(t, hash, 66)
	assert.Equal(t, []string{mood.DefaultContractAddress}, env.wallet.sent)

	status, body = env.do(t, "GET", "/api/v1/tx", token, "")
	require.Equal(t, fiber.StatusOK, status)
	rec := decodeData[models.TransactionRecord](t, body)
	assert.Equal(t, hash, rec.Hash)
	assert.Equal(t, models.TxStatusPending, rec.Status)
	assert.Contains(t, rec.ExplorerURL, "sepolia.basescan.org")

	status, _ = env.do(t, "DELETE", "/api/v1/tx", token, "")
	require.Equal(t, fiber.StatusOK, status)
	_, body = env.do(t, "GET", "/api/v1/tx", token, "")
	assert.Empty(t, body.Data)
}

func TestMoodReads(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, body := env.do(t, "GET", "/api/v1/moods/history", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decodeData[[]models.MoodEntry](t, body), 3)

	status, body = env.do(t, "GET", "/api/v1/moods/latest", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decodeData[[]models.MoodRecord](t, body), 3)

	status, body = env.do(t, "GET", "/api/v1/moods/current", token, "")
	require.Equal(t, fiber.StatusOK, status)
	state := decodeData[mood.State](t, body)
	assert.True(t, models.IsValidMood(state.CurrentMood))
	assert.False(t, state.IsLoadingMood)
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, _ := env.do(t, "GET", "/api/v1/me/verification", token, "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = env.do(t, "POST", "/api/v1/me/wallet", token, "")
	require.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest("POST", "/api/v1/verify", strings.NewReader(`{"merkle_root":"simulated_merkle_root","nullifier_hash":"simulated_nullifier_hash","proof":"simulated_proof","credential_type":"orb"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out verify.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.True(t, strings.HasPrefix(out.ID, "wld_"))
	assert.True(t, env.registry.IsVerified(testAddress))

	status, body := env.do(t, "GET", "/api/v1/me/verification", token, "")
	require.Equal(t, fiber.StatusOK, status)
	got := decodeData[struct {
		Verified bool                      `json:"verified"`
		Record   models.VerificationRecord `json:"record"`
	}](t, body)
	assert.True(t, got.Verified)
	assert.Equal(t, out.ID, got.Record.VerificationID)
}

func TestVerify_BadPayload(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	req := httptest.NewRequest("POST", "/api/v1/verify", strings.NewReader(`{"merkle_root":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var out verify.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Success)
	assert.Equal(t, "invalid request body", out.Error)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	status, _ := env.do(t, "GET", "/ws?token="+token, "", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}
