package chain

import (
	"fmt"
	"strings"
)

// Target selects which Base network a switch aims for.
type Target int

const (
	TargetMainnet Target = iota
	TargetGoerli
	TargetSepolia
)

func (t Target) String() string {
	switch t {
	case TargetGoerli:
		return "goerli-testnet"
	case TargetSepolia:
		return "sepolia-testnet"
	}
	return "mainnet"
}

// Network returns the descriptor the target switches to first.
func (t Target) Network() Network {
	switch t {
	case TargetGoerli:
		return BaseGoerli
	case TargetSepolia:
		return BaseSepolia
	}
	return BaseMainnet
}

// Substitute is the Base testnet added when the target itself cannot be added.
func (t Target) Substitute() Network {
	if t == TargetSepolia {
		return BaseGoerli
	}
	return BaseSepolia
}

// ParseTarget maps user input to a Target. Empty input means mainnet.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mainnet", "base":
		return TargetMainnet, nil
	case "goerli", "goerli-testnet", "base-goerli":
		return TargetGoerli, nil
	case "sepolia", "sepolia-testnet", "base-sepolia":
		return TargetSepolia, nil
	}
	return TargetMainnet, fmt.Errorf("unknown network target %q", s)
}
