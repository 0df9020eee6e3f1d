package wallet

import (
	"errors"

	"github.com/nextofkin/nok-wallet/internal/session"
)

// Errors returned by Controller.
var (
	ErrSessionDisposed     = session.ErrSessionDisposed
	ErrProviderUnreachable = session.ErrProviderUnreachable
	ErrKeystoreCorrupted   = session.ErrKeystoreCorrupted

	// ErrWalletUnavailable is returned by operations that need an existing
	// account and do not create one.
	ErrWalletUnavailable  = errors.New("wallet unavailable")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrFaucetUnavailable  = errors.New("faucet unavailable on this network")
	ErrHistoryUnavailable = errors.New("transaction history not configured")
)

// OperationError reports a failed SDK call. See session.OperationError.
type OperationError = session.OperationError
