// Package mood records a user's mood against the mood contract. The wallet
// transaction carries a placeholder payload; reads come either from fixed
// sample data or from the postgres ledger.
package mood

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/wallet"
	"go.uber.org/zap"
)

const (
	DefaultContractAddress = "0x1234567890123456789012345678901234567890"

	// setMoodPayload stands in for the ABI encoded setMood(label) call.
	setMoodPayload = "0x"
)

var ErrInvalidMood = errors.New("invalid mood label")

// State mirrors what the dashboard shows while mood calls are in flight.
type State struct {
	CurrentMood            string `json:"currentMood,omitempty"`
	IsLoadingMood          bool   `json:"isLoadingMood"`
	IsSettingMood          bool   `json:"isSettingMood"`
	IsUserVerified         bool   `json:"isUserVerified"`
	IsCheckingVerification bool   `json:"isCheckingVerification"`
	LastTransactionHash    string `json:"lastTransactionHash,omitempty"`
}

type Contract interface {
	FetchCurrentMood(ctx context.Context) (string, error)
	SetMood(ctx context.Context, label string) (string, error)
	GetMoodHistory(ctx context.Context) ([]models.MoodEntry, error)
	GetAllLatestMoods(ctx context.Context) ([]models.MoodRecord, error)
	CheckUserVerification(ctx context.Context, address string) (bool, error)
	State() State
	ResetTransactionHash()
}

// TxSender is the part of wallet.Manager the facade needs.
type TxSender interface {
	SendTransaction(ctx context.Context, to, valueWei, data string) (string, error)
	Session() wallet.Session
}

// Tracker follows a sent transaction; see txstatus.Observer.
type Tracker interface {
	Track(hash string, onConfirmed func())
	Reset()
}

type Options struct {
	ContractAddress string
	Delay           time.Duration
}

// facade holds the state and the write path shared by both backends.
type facade struct {
	sender   TxSender
	tracker  Tracker
	notifier wallet.Notifier
	opts     Options
	log      *zap.Logger

	mu    sync.RWMutex
	state State
}

func (f *facade) init(sender TxSender, tracker Tracker, notifier wallet.Notifier, opts Options, log *zap.Logger) {
	if opts.ContractAddress == "" {
		opts.ContractAddress = DefaultContractAddress
	}
	if notifier == nil {
		notifier = wallet.NewLogNotifier(log)
	}
	f.sender, f.tracker, f.notifier, f.opts, f.log = sender, tracker, notifier, opts, log
}

func (f *facade) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *facade) ResetTransactionHash() {
	f.set(func(s *State) { s.LastTransactionHash = "" })
	if f.tracker != nil {
		f.tracker.Reset()
	}
}

func (f *facade) set(fn func(s *State)) {
	f.mu.Lock()
	fn(&f.state)
	f.mu.Unlock()
}

// sendMood submits the mood transaction and hands its hash to the tracker.
// refresh runs once the transaction confirms.
func (f *facade) sendMood(ctx context.Context, label string, refresh func()) (string, error) {
	if !models.IsValidMood(label) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMood, label)
	}

	f.set(func(s *State) { s.IsSettingMood = true })
	defer f.set(func(s *State) { s.IsSettingMood = false })

	hash, err := f.sender.SendTransaction(ctx, f.opts.ContractAddress, "0x0", setMoodPayload)
	if err != nil {
		f.log.Warn("set mood transaction failed", zap.String("mood", label), zap.Error(err))
		return "", fmt.Errorf("set mood: %w", err)
	}

	// optimistic until the ledger or chain says otherwise
	f.set(func(s *State) {
		s.LastTransactionHash = hash
		s.CurrentMood = label
	})
	f.notifier.Notify(ctx, wallet.Notification{
		Title:       "Mood Set",
		Description: fmt.Sprintf("Your mood has been set to %s. Transaction: %s", label, shortTx(hash)),
		Variant:     wallet.VariantDefault,
	})
	f.log.Info("mood set", zap.String("mood", label), zap.String("hash", hash))

	if f.tracker != nil {
		f.tracker.Track(hash, refresh)
	}
	return hash, nil
}

func (f *facade) beginLoad() func() {
	f.set(func(s *State) { s.IsLoadingMood = true })
	return func() { f.set(func(s *State) { s.IsLoadingMood = false }) }
}

func (f *facade) beginVerificationCheck() func() {
	f.set(func(s *State) { s.IsCheckingVerification = true })
	return func() { f.set(func(s *State) { s.IsCheckingVerification = false }) }
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shortTx(hash string) string {
	if len(hash) <= 10 {
		return hash
	}
	return hash[:6] + "..." + hash[len(hash)-4:]
}

var (
	_ Contract = (*Simulated)(nil)
	_ Contract = (*Ledger)(nil)
)
