package models

// User is the signed-in account kept in the session slot.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}
