package session

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/event"
	"github.com/fathia/miniapp/internal/events"
	"github.com/fathia/miniapp/internal/wallet"
	"go.uber.org/zap"
)

// LinkWallet stores the address of a connected wallet on the signed-in user.
// Connecting and disconnected snapshots leave the stored link as it is.
func (s *Service) LinkWallet(ctx context.Context, ws wallet.Session) error {
	if !ws.IsConnected || ws.Address == "" {
		return nil
	}
	return s.UpdateUserWallet(ctx, ws.Address)
}

// FollowWallet links every connected wallet to the signed-in user and
// republishes each session change for websocket clients. It drains ch until
// the subscription ends so the manager never blocks on a full channel.
func FollowWallet(ch <-chan wallet.Session, sub event.Subscription, svc *Service, pub events.Publisher, log *zap.Logger) {
	ctx := context.Background()
	for {
		select {
		case <-sub.Err():
			return
		case ws := <-ch:
			if err := svc.LinkWallet(ctx, ws); err != nil && !errors.Is(err, ErrNotSignedIn) {
				log.Warn("failed to link wallet to user", zap.Error(err))
			}

			err := pub.Publish(ctx, events.StreamWallet, events.Event{
				Type: events.EventSessionChanged,
				Payload: map[string]any{
					"address":      ws.Address,
					"isConnected":  ws.IsConnected,
					"isConnecting": ws.IsConnecting,
					"chainId":      ws.ChainID,
					"state":        string(ws.State()),
				},
			})
			if err != nil {
				log.Debug("failed to publish session change", zap.Error(err))
			}
		}
	}
}
