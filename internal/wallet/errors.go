package wallet

import (
	"context"
	"errors"
	"fmt"
)

// EIP-1193 / JSON-RPC error codes a wallet reports.
const (
	CodeUserRejected   = 4001
	CodeUnknownChain   = 4902
	CodeRequestPending = -32002
	CodeInternalError  = -32603
)

var (
	ErrNoProvider          = errors.New("no wallet provider found")
	ErrNoAccounts          = errors.New("no accounts returned from wallet")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrRequestPending      = errors.New("request already pending in wallet")
	ErrProviderInternal    = errors.New("wallet internal error")
	ErrProviderTimeout     = errors.New("wallet did not respond in time")
	ErrWrongNetwork        = errors.New("not connected to a Base network")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrNetworkSwitchFailed = errors.New("could not switch to any network")
	ErrInvalidTransaction  = errors.New("invalid transaction parameters")
)

// ProviderError is an error returned by the wallet with its numeric code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the provider code of err, or 0 when err did not come
// from the provider.
func ErrorCode(err error) int {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return 0
}

// Is maps well-known codes onto the package sentinels so callers can use
// errors.Is(err, ErrUserRejected) on raw provider errors.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUserRejected:
		return e.Code == CodeUserRejected
	case ErrRequestPending:
		return e.Code == CodeRequestPending
	case ErrProviderInternal:
		return e.Code == CodeInternalError
	}
	return false
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// classifyConnectError turns a failed eth_requestAccounts into the
// taxonomy error and the message shown to the user.
func classifyConnectError(err error) (error, string) {
	switch {
	case errors.Is(err, ErrUserRejected):
		return fmt.Errorf("%w: %v", ErrUserRejected, err), "You rejected the connection request."
	case errors.Is(err, ErrRequestPending):
		return fmt.Errorf("%w: %v", ErrRequestPending, err), "Connection request already pending. Check your wallet."
	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err), "Your wallet did not respond. Please try again."
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err, "Error: " + providerMessage(perr)
	}
	return err, "Failed to connect wallet. Please try again."
}

// classifySendError does the same for eth_sendTransaction.
func classifySendError(err error) (error, string) {
	switch {
	case errors.Is(err, ErrUserRejected):
		return fmt.Errorf("%w: %v", ErrUserRejected, err), "You rejected the transaction."
	case errors.Is(err, ErrProviderInternal):
		return fmt.Errorf("%w: %v", ErrProviderInternal, err), "Internal error. Please check your wallet and try again."
	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err), "Your wallet did not respond. Please try again."
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		msg := providerMessage(perr)
		return fmt.Errorf("%w: %s", ErrTransactionFailed, msg), "Error: " + msg
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err), "Failed to send transaction. Please try again."
}

func providerMessage(perr *ProviderError) string {
	if perr.Message != "" {
		return perr.Message
	}
	return fmt.Sprintf("%d", perr.Code)
}
