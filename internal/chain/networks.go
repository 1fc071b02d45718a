// Package chain holds the static network descriptors the wallet negotiates
// between and helpers for working with chain ids.
package chain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Chain ids used across the app.
const (
	EthereumMainnetID uint64 = 1
	GoerliID          uint64 = 5
	SepoliaID         uint64 = 11155111
	BaseMainnetID     uint64 = 8453
	BaseGoerliID      uint64 = 84531
	BaseSepoliaID     uint64 = 84532
)

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Network is the wallet_addEthereumChain parameter object.
type Network struct {
	ChainIDHex        string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// ChainID returns the numeric chain id of the descriptor.
func (n Network) ChainID() uint64 {
	id, _ := ParseChainID(n.ChainIDHex)
	return id
}

var ether = NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18}

var (
	BaseMainnet = Network{
		ChainIDHex:        "0x2105",
		ChainName:         "Base Mainnet",
		NativeCurrency:    ether,
		RPCURLs:           []string{"https://mainnet.base.org"},
		BlockExplorerURLs: []string{"https://basescan.org/"},
	}

	// BaseGoerli is deprecated upstream but still offered as a fallback.
	BaseGoerli = Network{
		ChainIDHex:        "0x14A33",
		ChainName:         "Base Goerli Testnet",
		NativeCurrency:    ether,
		RPCURLs:           []string{"https://goerli.base.org"},
		BlockExplorerURLs: []string{"https://goerli.basescan.org/"},
	}

	BaseSepolia = Network{
		ChainIDHex:        "0x14A34",
		ChainName:         "Base Sepolia Testnet",
		NativeCurrency:    ether,
		RPCURLs:           []string{"https://sepolia.base.org"},
		BlockExplorerURLs: []string{"https://sepolia.basescan.org/"},
	}

	// EthereumMainnet is the last resort when no Base network can be reached.
	EthereumMainnet = Network{
		ChainIDHex:        "0x1",
		ChainName:         "Ethereum Mainnet",
		NativeCurrency:    ether,
		RPCURLs:           []string{"https://mainnet.infura.io/v3/"},
		BlockExplorerURLs: []string{"https://etherscan.io/"},
	}
)

// Networks lists every descriptor in the order they are offered to users.
func Networks() []Network {
	return []Network{BaseMainnet, BaseSepolia, BaseGoerli, EthereumMainnet}
}

// IsBaseNetwork reports whether id is one of the recognised Base chains.
func IsBaseNetwork(id uint64) bool {
	switch id {
	case BaseMainnetID, BaseGoerliID, BaseSepoliaID:
		return true
	}
	return false
}

// NetworkName returns a short display name for a chain id.
func NetworkName(id uint64) string {
	switch id {
	case BaseMainnetID:
		return "Base"
	case BaseGoerliID:
		return "Base Goerli"
	case BaseSepoliaID:
		return "Base Sepolia"
	case EthereumMainnetID:
		return "Ethereum"
	case GoerliID:
		return "Goerli"
	case SepoliaID:
		return "Sepolia"
	}
	return fmt.Sprintf("Chain %d", id)
}

func IsTestnet(id uint64) bool {
	switch id {
	case BaseGoerliID, BaseSepoliaID, GoerliID, SepoliaID:
		return true
	}
	return false
}

// ExplorerTxURL links a transaction hash to the block explorer of its chain.
// Unknown chains fall back to Base Sepolia.
func ExplorerTxURL(id uint64, txHash string) string {
	if txHash == "" {
		return ""
	}
	var base string
	switch id {
	case BaseMainnetID:
		base = "https://basescan.org"
	case BaseGoerliID:
		base = "https://goerli.basescan.org"
	case EthereumMainnetID:
		base = "https://etherscan.io"
	case GoerliID:
		base = "https://goerli.etherscan.io"
	case SepoliaID:
		base = "https://sepolia.etherscan.io"
	default:
		base = "https://sepolia.basescan.org"
	}
	return base + "/tx/" + txHash
}

// ParseChainID accepts the 0x-prefixed quantity wallets return from
// eth_chainId. Leading zeros and upper case digits are tolerated; a string
// without prefix is read as decimal.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if digits == "" {
			return 0, fmt.Errorf("invalid chain id %q", s)
		}
		id, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
		}
		return id, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// FormatChainID renders id as a canonical hex quantity.
func FormatChainID(id uint64) string {
	return hexutil.EncodeUint64(id)
}
