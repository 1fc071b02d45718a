package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/metrics"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// SendTransaction submits a transaction from the connected account and
// returns its hash. valueWei is a hex quantity ("0x0") or a decimal string;
// data defaults to "0x". When the wallet is not on a Base chain it is first
// moved to Base Sepolia.
func (m *Manager) SendTransaction(ctx context.Context, to, valueWei, data string) (hash string, err error) {
	defer func() { metrics.RecordWalletOp("send_transaction", err) }()

	if m.provider == nil || !m.Session().IsConnected {
		m.notify(ctx, Notification{
			Title:       "Transaction Failed",
			Description: "Wallet not connected. Please connect your wallet first.",
			Variant:     VariantDestructive,
		})
		return "", ErrNotConnected
	}

	value, payload, err := normalizeTx(to, valueWei, data)
	if err != nil {
		m.notify(ctx, Notification{
			Title:       "Transaction Failed",
			Description: err.Error(),
			Variant:     VariantDestructive,
		})
		return "", err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.sendGuard.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	defer m.sendGuard.Release(1)

	if !m.IsOnBaseNetwork() {
		m.notify(ctx, Notification{
			Title:       "Wrong Network",
			Description: "Please connect to a Base network before sending transactions.",
			Variant:     VariantDestructive,
		})
		if _, err := m.SwitchNetwork(ctx, chain.TargetSepolia); err != nil {
			return "", fmt.Errorf("%w: %v", ErrWrongNetwork, err)
		}
	}

	sess := m.Session()
	if !sess.IsConnected {
		return "", ErrNotConnected
	}

	tx := TxRequest{
		From:  sess.Address,
		To:    strings.ToLower(to),
		Value: value,
		Data:  payload,
		Gas:   m.opts.GasLimitHint,
	}
	m.log.Info("sending transaction",
		zap.String("from", tx.From),
		zap.String("to", tx.To),
		zap.String("value", tx.Value),
	)

	if err := m.provider.Request(ctx, &hash, MethodSendTransaction, tx); err != nil {
		serr, msg := classifySendError(err)
		m.log.Warn("transaction error", zap.Error(err))
		m.notify(ctx, Notification{
			Title:       "Transaction Failed",
			Description: msg,
			Variant:     VariantDestructive,
		})
		return "", serr
	}

	m.log.Info("transaction sent", zap.String("hash", hash))
	m.notify(ctx, Notification{
		Title:       "Transaction Sent",
		Description: "Transaction hash: " + shortHash(hash),
	})
	return hash, nil
}

// normalizeTx validates the user supplied fields and renders value and data
// in the form eth_sendTransaction expects.
func normalizeTx(to, valueWei, data string) (string, string, error) {
	if !common.IsHexAddress(to) {
		return "", "", fmt.Errorf("%w: invalid recipient %q", ErrInvalidTransaction, to)
	}

	value := uint256.NewInt(0)
	valueWei = strings.TrimSpace(valueWei)
	if valueWei != "" {
		var err error
		if strings.HasPrefix(valueWei, "0x") || strings.HasPrefix(valueWei, "0X") {
			value, err = uint256.FromHex(valueWei)
		} else {
			value, err = uint256.FromDecimal(valueWei)
		}
		if err != nil {
			return "", "", fmt.Errorf("%w: invalid value %q: %v", ErrInvalidTransaction, valueWei, err)
		}
	}

	if data == "" {
		data = "0x"
	}
	raw, err := hexutil.Decode(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid data: %v", ErrInvalidTransaction, err)
	}

	return value.Hex(), hexutil.Encode(raw), nil
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "..." + hash[len(hash)-4:]
}
