package models

// Transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// Valid status transitions: from -> []to
var ValidTxTransitions = map[string][]string{
	TxStatusPending:   {TxStatusConfirmed, TxStatusFailed},
	TxStatusConfirmed: {},
	TxStatusFailed:    {},
}

func IsValidTxTransition(from, to string) bool {
	allowed, ok := ValidTxTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalTxStatus(status string) bool {
	return status == TxStatusConfirmed || status == TxStatusFailed
}

type TransactionRecord struct {
	Hash        string `json:"hash"`
	Status      string `json:"status"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}
