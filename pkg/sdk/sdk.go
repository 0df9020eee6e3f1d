// Package sdk defines the collaborators the wallet core is built on: the
// wallet SDK client that owns keys and talks to the network, and the
// secure store that keeps the keystore passkey.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// NetworkID identifies an Ethereum network.
type NetworkID uint64

const (
	MainNet NetworkID = 1
	Ropsten NetworkID = 3
	Truffle NetworkID = 9
)

// String returns the network name.
func (n NetworkID) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case Ropsten:
		return "ropsten"
	case Truffle:
		return "truffle"
	default:
		return fmt.Sprintf("network-%d", uint64(n))
	}
}

// ParseNetworkID maps a network name to its ID.
func ParseNetworkID(name string) (NetworkID, error) {
	switch name {
	case "mainnet":
		return MainNet, nil
	case "ropsten":
		return Ropsten, nil
	case "truffle":
		return Truffle, nil
	}
	return 0, fmt.Errorf("unknown network %q", name)
}

// Provider selects the node a client talks to. It is immutable once a
// session is built around it.
type Provider struct {
	URL     string
	Network NetworkID
}

// IsMainNet reports whether the provider targets mainnet.
func (p Provider) IsMainNet() bool {
	return p.Network == MainNet
}

func (p Provider) String() string {
	return fmt.Sprintf("%s@%s", p.Network, p.URL)
}

// ErrKeystoreCorrupted is returned by Client.CreateAccountIfNeeded when an
// existing keystore cannot be opened with the given secret.
var ErrKeystoreCorrupted = errors.New("keystore corrupted")

// Account is a keyed account held by a Client.
type Account interface {
	// PublicAddress returns the hex-encoded account address.
	PublicAddress() string
	// Balance returns the confirmed balance in base units.
	Balance(ctx context.Context) (*big.Int, error)
	// PendingBalance returns the balance including pending transactions.
	PendingBalance(ctx context.Context) (*big.Int, error)
	// SendTransaction transfers amount base units to the hex address to and
	// returns the transaction id once the node accepted it.
	SendTransaction(ctx context.Context, to string, amount *big.Int, secret string) (string, error)
	// ExportKeyStore returns the account key as keystore JSON encrypted
	// with exportPassphrase. secret unlocks the local keystore.
	ExportKeyStore(secret, exportPassphrase string) (string, error)
}

// Client is a wallet SDK client bound to one provider.
type Client interface {
	Provider() Provider
	// ExistingAccount returns the account in the local keystore, or nil.
	ExistingAccount() Account
	// CreateAccountIfNeeded returns the existing account or creates one
	// protected by secret.
	CreateAccountIfNeeded(secret string) (Account, error)
	// DeleteKeystore removes every key from the local keystore.
	DeleteKeystore() error
	// Close releases network resources.
	Close()
}

// Dialer builds a Client for a provider. A returned error means the
// provider cannot be reached or is misconfigured.
type Dialer func(Provider) (Client, error)

// SecretStore persists small secrets by key across restarts.
type SecretStore interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
}
