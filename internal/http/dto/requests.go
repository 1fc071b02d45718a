package dto

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type SwitchNetworkRequest struct {
	Target string `json:"target"` // mainnet, goerli-testnet, sepolia-testnet
}

type SendTransactionRequest struct {
	To    string `json:"to"`
	Value string `json:"value,omitempty"` // wei, decimal or 0x-hex
	Data  string `json:"data,omitempty"`
}

type SetMoodRequest struct {
	Mood string `json:"mood"`
}
