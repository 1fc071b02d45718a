// Package verify accepts World ID style proofs. The demo verifier accepts
// any payload and mints an opaque id; it never checks the proof
// cryptographically.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fathia/miniapp/internal/models"
	"go.uber.org/zap"
)

const (
	CredentialOrb    = "orb"
	CredentialDevice = "device"

	idPrefix     = "wld_"
	idRandomLen  = 7
	base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrNullifierReused    = errors.New("nullifier already used by another address")
)

// Request is the proof payload posted by the World ID widget.
type Request struct {
	MerkleRoot     string `json:"merkle_root"`
	NullifierHash  string `json:"nullifier_hash"`
	Proof          string `json:"proof"`
	CredentialType string `json:"credential_type"`
	Address        string `json:"address,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, req Request) (*models.VerificationRecord, error)
}

type Options struct {
	// Strict requires 0x-hex proof fields and an accepted credential type,
	// and binds each nullifier to the first address presenting it.
	Strict          bool
	CredentialTypes []string
	Delay           time.Duration
}

// Stub is the demo verifier. Without Options.Strict every request succeeds
// once the delay has passed.
type Stub struct {
	nullifiers NullifierStore
	registry   *Registry
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

func NewStub(nullifiers NullifierStore, registry *Registry, opts Options, log *zap.Logger) *Stub {
	if len(opts.CredentialTypes) == 0 {
		opts.CredentialTypes = []string{CredentialOrb, CredentialDevice}
	}
	return &Stub{
		nullifiers: nullifiers,
		registry:   registry,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

func (s *Stub) Verify(ctx context.Context, req Request) (*models.VerificationRecord, error) {
	subject := ""
	if common.IsHexAddress(req.Address) {
		subject = strings.ToLower(req.Address)
	}

	if s.opts.Strict {
		if err := s.validate(req); err != nil {
			s.log.Warn("rejected verification request", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		if err := s.nullifiers.Claim(ctx, strings.ToLower(req.NullifierHash), subject); err != nil {
			s.log.Warn("nullifier claim failed", zap.String("nullifier", req.NullifierHash), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
	} else if req.Address != "" && subject == "" {
		s.log.Warn("verification address is not a hex address, not registering", zap.String("address", req.Address))
	}

	if s.opts.Delay > 0 {
		select {
		case <-time.After(s.opts.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, ctx.Err())
		}
	}

	now := s.now()
	rec := models.VerificationRecord{
		SubjectAddress: subject,
		VerificationID: NewVerificationID(now),
		Verified:       true,
		CreatedAt:      now,
	}
	if subject != "" {
		s.registry.Put(rec)
	}

	s.log.Info("verification accepted",
		zap.String("id", rec.VerificationID),
		zap.String("address", subject),
		zap.String("credential_type", req.CredentialType),
	)
	return &rec, nil
}

func (s *Stub) validate(req Request) error {
	fields := []struct {
		name  string
		value string
	}{
		{"merkle_root", req.MerkleRoot},
		{"nullifier_hash", req.NullifierHash},
		{"proof", req.Proof},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		if _, err := hexutil.Decode(f.value); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}

	if !slices.Contains(s.opts.CredentialTypes, req.CredentialType) {
		return fmt.Errorf("credential type %q not accepted", req.CredentialType)
	}
	if req.Address != "" && !common.IsHexAddress(req.Address) {
		return fmt.Errorf("invalid address %q", req.Address)
	}
	return nil
}

// NewVerificationID returns wld_<unix ms in base36>_<7 random base36 chars>.
func NewVerificationID(now time.Time) string {
	var b strings.Builder
	b.WriteString(idPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	b.WriteByte('_')
	for i := 0; i < idRandomLen; i++ {
		b.WriteByte(base36Digits[rand.IntN(len(base36Digits))])
	}
	return b.String()
}
