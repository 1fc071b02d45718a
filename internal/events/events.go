package events

import "context"

// Streams
const (
	StreamWallet = "events:wallet"
	StreamTx     = "events:tx"
)

// Event types
const (
	EventWalletNotification = "wallet_notification"
	EventSessionChanged     = "wallet_session_changed"
	EventTxStatusChanged    = "tx_status_changed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
