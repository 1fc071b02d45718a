package models

import "time"

type VerificationRecord struct {
	SubjectAddress string    `json:"subject_address,omitempty"`
	VerificationID string    `json:"verification_id"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
}
