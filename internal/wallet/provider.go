package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/event"
)

// Provider methods used by the manager.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSendTransaction = "eth_sendTransaction"
)

// Provider is the wallet the manager negotiates with. Request decodes the
// JSON result into result and returns a *ProviderError when the wallet
// rejects the call.
type Provider interface {
	Request(ctx context.Context, result any, method string, params ...any) error
	SubscribeEvents(ch chan<- ProviderEvent) event.Subscription
}

type ProviderEventKind string

const (
	EventAccountsChanged ProviderEventKind = "accountsChanged"
	EventChainChanged    ProviderEventKind = "chainChanged"
)

// ProviderEvent is an accountsChanged or chainChanged notification.
type ProviderEvent struct {
	Kind     ProviderEventKind
	Accounts []string
	ChainID  string // hex quantity as reported by the wallet
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// TxRequest is the eth_sendTransaction parameter object.
type TxRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
	Gas   string `json:"gas,omitempty"`
}
