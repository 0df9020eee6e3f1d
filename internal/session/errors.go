package session

import (
	"errors"
	"fmt"

	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// Session errors.
var (
	// ErrSessionDisposed indicates the manager was closed while the
	// operation was queued or running, or before it was submitted.
	ErrSessionDisposed = errors.New("session disposed")

	// ErrProviderUnreachable indicates no SDK client could be built for
	// the configured provider.
	ErrProviderUnreachable = errors.New("provider unreachable")

	// ErrKeystoreCorrupted indicates account creation still failed after
	// the keystore was wiped and creation retried once.
	ErrKeystoreCorrupted = sdk.ErrKeystoreCorrupted
)

// OperationError reports a failed balance, send, export or delete call.
// The session never retries these.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
