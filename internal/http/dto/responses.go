package dto

import (
	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/wallet"
)

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	// TxHash is set when a transaction was sent before the request failed.
	TxHash string `json:"tx_hash,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type WalletResponse struct {
	wallet.Session
	State         wallet.State `json:"state"`
	NetworkName   string       `json:"networkName,omitempty"`
	IsBaseNetwork bool         `json:"isBaseNetwork"`
	HasProvider   bool         `json:"hasProvider"`
}

type SwitchNetworkResponse struct {
	Network *chain.Network `json:"network"`
	Wallet  WalletResponse `json:"wallet"`
}

type TransactionResponse struct {
	Hash string `json:"hash"`
}

type NetworkInfo struct {
	chain.Network
	ID        uint64 `json:"id"`
	IsBase    bool   `json:"isBase"`
	IsTestnet bool   `json:"isTestnet"`
}

type MeResponse struct {
	User     models.User    `json:"user"`
	Wallet   WalletResponse `json:"wallet"`
	Verified bool           `json:"verified"`
}

type VerificationStatusResponse struct {
	Address  string                     `json:"address"`
	Verified bool                       `json:"verified"`
	Record   *models.VerificationRecord `json:"record,omitempty"`
}
