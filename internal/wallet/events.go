package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/event"
	"github.com/fathia/miniapp/internal/chain"
	"go.uber.org/zap"
)

func (m *Manager) eventLoop(ch <-chan ProviderEvent, sub event.Subscription) {
	defer m.wg.Done()
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-ch:
			m.handleEvent(m.ctx, ev)
		case err := <-sub.Err():
			if err != nil {
				m.log.Error("provider event subscription failed", zap.Error(err))
			}
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// handleEvent applies a provider notification. The provider is the source
// of truth, so the latest event always wins over in-flight operations.
func (m *Manager) handleEvent(ctx context.Context, ev ProviderEvent) {
	switch ev.Kind {
	case EventAccountsChanged:
		m.handleAccountsChanged(ctx, ev.Accounts)
	case EventChainChanged:
		m.handleChainChanged(ctx, ev.ChainID)
	default:
		m.log.Debug("ignoring provider event", zap.String("kind", string(ev.Kind)))
	}
}

func (m *Manager) handleAccountsChanged(ctx context.Context, accounts []string) {
	if len(accounts) > 0 {
		address := strings.ToLower(accounts[0])
		m.update(func(s *Session) {
			s.Address = address
			s.IsConnected = true
		})
		m.log.Info("wallet account changed", zap.String("address", address))
		m.notify(ctx, Notification{
			Title:       "Wallet Changed",
			Description: "Connected to " + shortAddress(address),
		})
		return
	}

	m.update(func(s *Session) {
		s.Address = ""
		s.IsConnected = false
	})
	m.log.Info("wallet disconnected by provider")
	m.notify(ctx, Notification{
		Title:       "Wallet Disconnected",
		Description: "Your wallet has been disconnected.",
		Variant:     VariantDestructive,
	})
}

func (m *Manager) handleChainChanged(ctx context.Context, chainIDHex string) {
	id, err := chain.ParseChainID(chainIDHex)
	if err != nil {
		m.log.Warn("invalid chain id in chainChanged", zap.String("chain_id", chainIDHex), zap.Error(err))
		return
	}
	m.update(func(s *Session) { s.ChainID = id })

	desc := fmt.Sprintf("Connected to network with ID: %d", id)
	if chain.IsBaseNetwork(id) {
		desc = "Connected to " + chain.NetworkName(id)
	}
	m.log.Info("wallet network changed", zap.Uint64("chain_id", id))
	m.notify(ctx, Notification{
		Title:       "Network Changed",
		Description: desc,
	})
}
