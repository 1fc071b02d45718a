package mood

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/repositories"
	"github.com/fathia/miniapp/internal/wallet"
	"go.uber.org/zap"
)

const historyLimit = 50

// Store is the mood ledger; repositories.MoodRepo implements it.
type Store interface {
	Append(ctx context.Context, rec *models.MoodRecord) error
	Latest(ctx context.Context, address string) (*models.MoodRecord, error)
	History(ctx context.Context, address string, limit int) ([]models.MoodEntry, error)
	LatestPerAddress(ctx context.Context, limit int) ([]models.MoodRecord, error)
}

type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// VerificationLookup answers whether an address passed verification.
type VerificationLookup interface {
	IsVerified(address string) bool
}

// Ledger mirrors every mood transaction into postgres and serves reads
// from there.
type Ledger struct {
	facade
	store    Store
	verified VerificationLookup
	audit    Auditor
}

func NewLedger(store Store, verified VerificationLookup, audit Auditor, sender TxSender, tracker Tracker, notifier wallet.Notifier, opts Options, log *zap.Logger) *Ledger {
	l := &Ledger{store: store, verified: verified, audit: audit}
	l.init(sender, tracker, notifier, opts, log)
	return l
}

func (l *Ledger) address() (string, error) {
	sess := l.sender.Session()
	if !sess.IsConnected || sess.Address == "" {
		return "", wallet.ErrNotConnected
	}
	return sess.Address, nil
}

func (l *Ledger) FetchCurrentMood(ctx context.Context) (string, error) {
	defer l.beginLoad()()

	addr, err := l.address()
	if err != nil {
		return "", err
	}
	rec, err := l.store.Latest(ctx, addr)
	if errors.Is(err, repositories.ErrNotFound) {
		l.set(func(s *State) { s.CurrentMood = "" })
		return "", nil
	}
	if err != nil {
		l.set(func(s *State) { s.CurrentMood = "" })
		return "", fmt.Errorf("fetch current mood: %w", err)
	}
	l.set(func(s *State) { s.CurrentMood = rec.Mood })
	return rec.Mood, nil
}

func (l *Ledger) SetMood(ctx context.Context, label string) (string, error) {
	addr, err := l.address()
	if err != nil {
		return "", err
	}

	hash, err := l.sendMood(ctx, label, func() {
		if _, err := l.FetchCurrentMood(context.Background()); err != nil {
			l.log.Warn("refresh mood after confirmation failed", zap.Error(err))
		}
	})
	if err != nil {
		return "", err
	}

	rec := &models.MoodRecord{Address: addr, Mood: label, TxHash: hash}
	if err := l.store.Append(ctx, rec); err != nil {
		return hash, fmt.Errorf("record mood: %w", err)
	}

	if l.audit != nil {
		err := l.audit.Log(ctx, models.AuditLog{
			ActorID:    addr,
			ActorType:  "wallet",
			Action:     "mood_set",
			EntityType: "mood",
			EntityID:   rec.ID.String(),
			Meta:       map[string]any{"mood": label, "tx_hash": hash},
		})
		if err != nil {
			l.log.Warn("failed to write audit log", zap.Error(err))
		}
	}
	return hash, nil
}

func (l *Ledger) GetMoodHistory(ctx context.Context) ([]models.MoodEntry, error) {
	addr, err := l.address()
	if err != nil {
		return nil, err
	}
	history, err := l.store.History(ctx, addr, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("mood history: %w", err)
	}
	return history, nil
}

func (l *Ledger) GetAllLatestMoods(ctx context.Context) ([]models.MoodRecord, error) {
	moods, err := l.store.LatestPerAddress(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("latest moods: %w", err)
	}
	return moods, nil
}

func (l *Ledger) CheckUserVerification(_ context.Context, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	defer l.beginVerificationCheck()()

	ok := l.verified != nil && l.verified.IsVerified(address)
	l.set(func(s *State) { s.IsUserVerified = ok })
	return ok, nil
}
