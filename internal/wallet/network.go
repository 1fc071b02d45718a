package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/metrics"
	"go.uber.org/zap"
)

// SwitchNetwork moves the wallet to target, degrading through the fallback
// chain when the wallet does not know the network:
//
//	switch target -> add target -> add substitute testnet -> switch Ethereum Mainnet
//
// A rejected prompt stops the chain immediately. The returned descriptor is
// the network the wallet ended up on.
func (m *Manager) SwitchNetwork(ctx context.Context, target chain.Target) (landed *chain.Network, err error) {
	defer func() { metrics.RecordWalletOp("switch_network", err) }()

	if m.provider == nil {
		return nil, ErrNoProvider
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.switchGuard.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	defer m.switchGuard.Release(1)

	landed, err = m.negotiate(ctx, target)
	if err != nil {
		return nil, err
	}
	m.refreshChainID(ctx, landed)
	return landed, nil
}

func (m *Manager) negotiate(ctx context.Context, target chain.Target) (*chain.Network, error) {
	primary := target.Network()

	m.log.Info("switching network", zap.String("network", primary.ChainName))
	err := m.switchChain(ctx, primary)
	metrics.RecordNetworkStep("switch_target", err == nil)
	if err == nil {
		return &primary, nil
	}
	if stop := m.stopNegotiation(ctx, err); stop != nil {
		return nil, stop
	}
	if ErrorCode(err) != CodeUnknownChain {
		m.log.Warn("network switch failed", zap.String("network", primary.ChainName), zap.Error(err))
		m.notify(ctx, Notification{
			Title:       "Network Switch Failed",
			Description: fmt.Sprintf("Could not switch to %s. Please try manually switching in your wallet.", primary.ChainName),
			Variant:     VariantDestructive,
		})
		return nil, fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	m.log.Info("network not found in wallet, adding it", zap.String("network", primary.ChainName))
	err = m.addChain(ctx, primary)
	metrics.RecordNetworkStep("add_target", err == nil)
	if err == nil {
		return &primary, nil
	}
	if stop := m.stopNegotiation(ctx, err); stop != nil {
		return nil, stop
	}
	m.log.Warn("failed to add network", zap.String("network", primary.ChainName), zap.Error(err))

	substitute := target.Substitute()
	m.log.Info("adding substitute network", zap.String("network", substitute.ChainName))
	err = m.addChain(ctx, substitute)
	metrics.RecordNetworkStep("add_substitute", err == nil)
	if err == nil {
		m.notify(ctx, Notification{
			Title:       "Network Fallback",
			Description: fmt.Sprintf("Connected to %s instead of %s.", substitute.ChainName, primary.ChainName),
			Variant:     VariantWarning,
		})
		return &substitute, nil
	}
	if stop := m.stopNegotiation(ctx, err); stop != nil {
		return nil, stop
	}
	m.log.Warn("failed to add substitute network", zap.String("network", substitute.ChainName), zap.Error(err))

	last := chain.EthereumMainnet
	err = m.switchChain(ctx, last)
	metrics.RecordNetworkStep("switch_ethereum", err == nil)
	if err == nil {
		m.notify(ctx, Notification{
			Title:       "Network Fallback",
			Description: "Connected to Ethereum Mainnet instead of Base. Some features may be limited.",
			Variant:     VariantWarning,
		})
		return &last, nil
	}
	if stop := m.stopNegotiation(ctx, err); stop != nil {
		return nil, stop
	}

	m.log.Error("failed to switch to any network", zap.Error(err))
	m.notify(ctx, Notification{
		Title:       "Network Switch Failed",
		Description: fmt.Sprintf("Could not switch to %s or any fallback network. Please try manually switching in your wallet.", primary.ChainName),
		Variant:     VariantDestructive,
	})
	return nil, fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
}

// stopNegotiation returns the error that ends the fallback chain early, or
// nil when the next step may be attempted.
func (m *Manager) stopNegotiation(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrUserRejected):
		m.notify(ctx, Notification{
			Title:       "Network Switch Rejected",
			Description: "You rejected the request to switch networks.",
			Variant:     VariantDestructive,
		})
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case isTimeout(err):
		m.notify(ctx, Notification{
			Title:       "Network Switch Failed",
			Description: "Your wallet did not respond. Please try again.",
			Variant:     VariantDestructive,
		})
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return nil
}

func (m *Manager) switchChain(ctx context.Context, n chain.Network) error {
	return m.provider.Request(ctx, nil, MethodSwitchChain, switchChainParams{ChainID: n.ChainIDHex})
}

func (m *Manager) addChain(ctx context.Context, n chain.Network) error {
	return m.provider.Request(ctx, nil, MethodAddChain, n)
}

// refreshChainID records the chain the wallet reports after a successful
// switch, falling back to the descriptor when the wallet cannot be asked.
func (m *Manager) refreshChainID(ctx context.Context, landed *chain.Network) {
	id, err := m.readChainID(ctx)
	if err != nil {
		id = landed.ChainID()
	}
	m.update(func(s *Session) { s.ChainID = id })
}
