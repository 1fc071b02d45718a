package wallet

import (
	"context"

	"github.com/fathia/miniapp/internal/events"
	"go.uber.org/zap"
)

const (
	VariantDefault     = "default"
	VariantWarning     = "warning"
	VariantDestructive = "destructive"
)

// Notification is a transient, user-facing message about a wallet event.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the log only.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) {
	fields := []zap.Field{
		zap.String("title", note.Title),
		zap.String("description", note.Description),
	}
	if note.Variant == VariantDestructive {
		n.log.Warn("wallet notification", fields...)
		return
	}
	n.log.Info("wallet notification", fields...)
}

// EventNotifier publishes notifications on the wallet stream so connected
// clients receive them over the websocket.
type EventNotifier struct {
	pub events.Publisher
	log *zap.Logger
}

func NewEventNotifier(pub events.Publisher, log *zap.Logger) *EventNotifier {
	return &EventNotifier{pub: pub, log: log}
}

func (n *EventNotifier) Notify(ctx context.Context, note Notification) {
	// operations notify on failure paths where ctx may already be expired
	ctx = context.WithoutCancel(ctx)
	err := n.pub.Publish(ctx, events.StreamWallet, events.Event{
		Type: events.EventWalletNotification,
		Payload: map[string]any{
			"title":       note.Title,
			"description": note.Description,
			"variant":     note.Variant,
		},
	})
	if err != nil {
		n.log.Warn("failed to publish wallet notification", zap.String("title", note.Title), zap.Error(err))
	}
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, note Notification) {
	for _, n := range m {
		n.Notify(ctx, note)
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
