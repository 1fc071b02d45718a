package models

import (
	"time"

	"github.com/google/uuid"
)

// Mood labels a user can record.
const (
	MoodHappy      = "Happy"
	MoodSad        = "Sad"
	MoodExcited    = "Excited"
	MoodRelaxed    = "Relaxed"
	MoodAngry      = "Angry"
	MoodTired      = "Tired"
	MoodThoughtful = "Thoughtful"
	MoodCool       = "Cool"
)

var MoodLabels = []string{
	MoodHappy, MoodSad, MoodExcited, MoodRelaxed,
	MoodAngry, MoodTired, MoodThoughtful, MoodCool,
}

func IsValidMood(label string) bool {
	for _, m := range MoodLabels {
		if m == label {
			return true
		}
	}
	return false
}

// MoodEntry is one item of an address's mood history.
type MoodEntry struct {
	Mood      string    `json:"mood"`
	Timestamp time.Time `json:"timestamp"`
}

// MoodRecord is the latest mood of an address.
type MoodRecord struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Address   string    `json:"address"`
	Mood      string    `json:"mood"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
