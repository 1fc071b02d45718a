package session

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/fathia/miniapp/internal/db"
	"github.com/fathia/miniapp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := NewSQLiteStore(context.Background(), conn)
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	u := &models.User{ID: "user_abc1234", Email: "ada@example.com", Name: "ada"}
	require.NoError(t, store.Save(ctx, u))

	u.WalletAddress = "0xabc"
	require.NoError(t, store.Save(ctx, u))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestService_SignInPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	svc := NewService(openStore(t, path), zap.NewNop())
	u, err := svc.SignIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_[0-9a-z]{7}$`), u.ID)
	assert.Equal(t, "ada", u.Name)

	require.NoError(t, svc.UpdateUserWallet(ctx, "0xabcdef0123456789abcdef0123456789abcdef01"))

	restarted := NewService(openStore(t, path), zap.NewNop())
	require.NoError(t, restarted.Restore(ctx))
	got, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", got.WalletAddress)
}

func TestService_SignUpUsesName(t *testing.T) {
	svc := NewService(openStore(t, filepath.Join(t.TempDir(), "s.db")), zap.NewNop())

	u, err := svc.SignUp(context.Background(), "grace@example.com", "pw", "Grace Hopper")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", u.Name)
	assert.Equal(t, "grace@example.com", u.Email)
}

func TestService_InvalidCredentials(t *testing.T) {
	svc := NewService(openStore(t, filepath.Join(t.TempDir(), "s.db")), zap.NewNop())

	_, err := svc.SignIn(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(context.Background(), "ada@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestService_SignOut(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "s.db"))
	svc := NewService(store, zap.NewNop())

	_, err := svc.SignIn(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	_, ok := svc.Current()
	assert.False(t, ok)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.ErrorIs(t, svc.UpdateUserWallet(ctx, "0xabc"), ErrNotSignedIn)
}

type failingStore struct{ Store }

func (failingStore) Save(context.Context, *models.User) error { return errors.New("disk full") }
func (failingStore) Load(context.Context) (*models.User, error) {
	return nil, errors.New("corrupt")
}

func TestService_StoreFailures(t *testing.T) {
	svc := NewService(failingStore{}, zap.NewNop())

	_, err := svc.SignIn(context.Background(), "ada@example.com", "pw")
	assert.Error(t, err)
	_, ok := svc.Current()
	assert.False(t, ok, "failed save must not sign the user in")

	assert.Error(t, svc.Restore(context.Background()))
}
