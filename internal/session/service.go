package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/fathia/miniapp/internal/models"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("email and password are required")
	ErrNotSignedIn        = errors.New("not signed in")
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Service is the demo auth flow: any email/password pair signs in and gets
// a fresh mock user id. The current user is written to the store on every
// change.
type Service struct {
	store Store
	log   *zap.Logger
	newID func() string

	mu   sync.RWMutex
	user *models.User
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, newID: mockUserID}
}

// Restore loads the stored user, if any. A corrupt slot is logged and
// treated as signed out.
func (s *Service) Restore(ctx context.Context) error {
	u, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil
	case err != nil:
		s.log.Error("failed to restore session", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.log.Info("session restored", zap.String("user_id", u.ID))
	return nil
}

// Current returns a copy of the signed-in user.
func (s *Service) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Service) SignIn(ctx context.Context, email, password string) (models.User, error) {
	return s.start(ctx, email, password, "")
}

func (s *Service) SignUp(ctx context.Context, email, password, name string) (models.User, error) {
	return s.start(ctx, email, password, name)
}

func (s *Service) start(ctx context.Context, email, password, name string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	u := &models.User{ID: s.newID(), Email: email, Name: name}
	if err := s.store.Save(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("sign in: %w", err)
	}

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	s.log.Info("user signed in", zap.String("user_id", u.ID), zap.String("email", email))
	return *u, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.log.Info("user signed out")
	return nil
}

// UpdateUserWallet links address to the signed-in user; an empty address
// unlinks it.
func (s *Service) UpdateUserWallet(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotSignedIn
	}
	if s.user.WalletAddress == address {
		return nil
	}

	updated := *s.user
	updated.WalletAddress = address
	if err := s.store.Save(ctx, &updated); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	s.user = &updated

	s.log.Info("user wallet updated", zap.String("user_id", updated.ID), zap.String("address", address))
	return nil
}

func mockUserID() string {
	b := make([]byte, 7)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return "user_" + string(b)
}
