// Package txstatus follows the most recent transaction from pending to a
// terminal status.
package txstatus

import (
	"context"
	"sync"
	"time"

	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/events"
	"github.com/fathia/miniapp/internal/metrics"
	"github.com/fathia/miniapp/internal/models"
	"go.uber.org/zap"
)

const DefaultConfirmDelay = 3 * time.Second

// Confirmer resolves a transaction to confirmed or failed. It blocks until
// the status is known or ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, hash string) (string, error)
}

// DelayConfirmer reports every transaction confirmed after a fixed delay.
type DelayConfirmer struct {
	Delay time.Duration
}

func (c DelayConfirmer) Confirm(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(c.Delay):
		return models.TxStatusConfirmed, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Observer tracks a single transaction at a time. Tracking a new hash or
// calling Reset abandons the previous one; its callback never fires.
type Observer struct {
	confirmer Confirmer
	pub       events.Publisher
	chainID   func() uint64
	log       *zap.Logger

	mu     sync.Mutex
	record *models.TransactionRecord
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewObserver creates an observer. pub may be nil; chainID picks the block
// explorer for Current.
func NewObserver(confirmer Confirmer, pub events.Publisher, chainID func() uint64, log *zap.Logger) *Observer {
	if chainID == nil {
		chainID = func() uint64 { return 0 }
	}
	return &Observer{
		confirmer: confirmer,
		pub:       pub,
		chainID:   chainID,
		log:       log,
	}
}

// Track starts following hash. onConfirmed runs exactly once if the
// transaction confirms while it is still the tracked one.
func (o *Observer) Track(hash string, onConfirmed func()) {
	if hash == "" {
		o.Reset()
		return
	}

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.gen++
	gen := o.gen
	o.record = &models.TransactionRecord{Hash: hash, Status: models.TxStatusPending}
	o.cancel = cancel
	rec := *o.record
	o.mu.Unlock()

	o.log.Info("tracking transaction", zap.String("hash", hash))
	metrics.RecordTxStatus(models.TxStatusPending)
	o.publish(rec)

	o.wg.Add(1)
	go o.watch(ctx, gen, hash, onConfirmed)
}

func (o *Observer) watch(ctx context.Context, gen uint64, hash string, onConfirmed func()) {
	defer o.wg.Done()

	status, err := o.confirmer.Confirm(ctx, hash)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Warn("transaction confirmation failed", zap.String("hash", hash), zap.Error(err))
		status = models.TxStatusFailed
	}

	o.mu.Lock()
	if o.gen != gen || o.record == nil || !models.IsValidTxTransition(o.record.Status, status) {
		o.mu.Unlock()
		return
	}
	o.record.Status = status
	rec := *o.record
	o.mu.Unlock()

	o.log.Info("transaction resolved", zap.String("hash", hash), zap.String("status", status))
	metrics.RecordTxStatus(status)
	o.publish(rec)

	if status == models.TxStatusConfirmed && onConfirmed != nil {
		onConfirmed()
	}
}

// Current returns the tracked transaction, if any, with its explorer link.
func (o *Observer) Current() (models.TransactionRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.record == nil {
		return models.TransactionRecord{}, false
	}
	rec := *o.record
	rec.ExplorerURL = chain.ExplorerTxURL(o.chainID(), rec.Hash)
	return rec, true
}

// Reset stops tracking and clears the record.
func (o *Observer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.record = nil
}

// Close abandons the tracked transaction and waits for its watcher.
func (o *Observer) Close() {
	o.Reset()
	o.wg.Wait()
}

func (o *Observer) publish(rec models.TransactionRecord) {
	if o.pub == nil {
		return
	}
	err := o.pub.Publish(context.Background(), events.StreamTx, events.Event{
		Type: events.EventTxStatusChanged,
		Payload: map[string]any{
			"hash":         rec.Hash,
			"status":       rec.Status,
			"explorer_url": chain.ExplorerTxURL(o.chainID(), rec.Hash),
		},
	})
	if err != nil {
		o.log.Warn("failed to publish tx status", zap.String("hash", rec.Hash), zap.Error(err))
	}
}
