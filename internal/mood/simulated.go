package mood

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/wallet"
	"go.uber.org/zap"
)

// simulatedMoods are the labels FetchCurrentMood draws from.
var simulatedMoods = []string{
	models.MoodHappy, models.MoodSad, models.MoodExcited, models.MoodRelaxed, models.MoodThoughtful,
}

// Simulated answers reads with sample data after an artificial delay. Only
// SetMood reaches the wallet.
type Simulated struct {
	facade
	pick func(n int) int
	now  func() time.Time
}

func NewSimulated(sender TxSender, tracker Tracker, notifier wallet.Notifier, opts Options, log *zap.Logger) *Simulated {
	s := &Simulated{pick: rand.IntN, now: time.Now}
	s.init(sender, tracker, notifier, opts, log)
	return s
}

func (s *Simulated) FetchCurrentMood(ctx context.Context) (string, error) {
	defer s.beginLoad()()

	if err := sleep(ctx, s.opts.Delay); err != nil {
		s.set(func(st *State) { st.CurrentMood = "" })
		return "", err
	}
	label := simulatedMoods[s.pick(len(simulatedMoods))]
	s.set(func(st *State) { st.CurrentMood = label })
	return label, nil
}

func (s *Simulated) SetMood(ctx context.Context, label string) (string, error) {
	return s.sendMood(ctx, label, func() {
		if _, err := s.FetchCurrentMood(context.Background()); err != nil {
			s.log.Warn("refresh mood after confirmation failed", zap.Error(err))
		}
	})
}

func (s *Simulated) GetMoodHistory(ctx context.Context) ([]models.MoodEntry, error) {
	if err := sleep(ctx, s.opts.Delay); err != nil {
		return nil, err
	}
	now := s.now()
	day := 24 * time.Hour
	return []models.MoodEntry{
		{Mood: models.MoodHappy, Timestamp: now.Add(-2 * day)},
		{Mood: models.MoodExcited, Timestamp: now.Add(-4 * day)},
		{Mood: models.MoodThoughtful, Timestamp: now.Add(-7 * day)},
	}, nil
}

func (s *Simulated) GetAllLatestMoods(ctx context.Context) ([]models.MoodRecord, error) {
	if err := sleep(ctx, s.opts.Delay); err != nil {
		return nil, err
	}
	now := s.now()
	return []models.MoodRecord{
		{Address: "0x1234567890abcdef1234567890abcdef12345678", Mood: models.MoodHappy, Timestamp: now.Add(-1 * time.Hour)},
		{Address: "0xabcdef1234567890abcdef1234567890abcdef12", Mood: models.MoodExcited, Timestamp: now.Add(-2 * time.Hour)},
		{Address: "0x7890abcdef1234567890abcdef1234567890abcd", Mood: models.MoodRelaxed, Timestamp: now.Add(-3 * time.Hour)},
	}, nil
}

// CheckUserVerification reports every address as verified.
func (s *Simulated) CheckUserVerification(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	defer s.beginVerificationCheck()()

	if err := sleep(ctx, s.opts.Delay); err != nil {
		s.set(func(st *State) { st.IsUserVerified = false })
		return false, err
	}
	s.set(func(st *State) { st.IsUserVerified = true })
	return true, nil
}
