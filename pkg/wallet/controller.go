// Package wallet is the public entry point: a Controller that manages one
// Kin account through a serialized session.
package wallet

import (
	"context"
	"errors"
	"io"
	"math/big"

	"github.com/rs/zerolog"

	klog "github.com/nextofkin/nok-wallet/internal/log"
	"github.com/nextofkin/nok-wallet/internal/session"
	"github.com/nextofkin/nok-wallet/pkg/history"
	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// Faucet hands out test tokens.
type Faucet interface {
	Request(ctx context.Context, address string) error
}

// ControllerConfig holds configuration for creating a Controller.
type ControllerConfig struct {
	Manager *session.Manager
	History history.Source // nil = history disabled
	Faucet  Faucet         // nil = faucet disabled
	// Closers are closed after the manager, in order.
	Closers []io.Closer
}

// Controller exposes wallet operations over a session manager.
type Controller struct {
	mgr     *session.Manager
	history history.Source
	faucet  Faucet
	closers []io.Closer
	log     zerolog.Logger
}

// NewController creates a Controller. It takes ownership of the manager.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Manager == nil {
		return nil, errors.New("wallet: session manager is required")
	}
	return &Controller{
		mgr:     cfg.Manager,
		history: cfg.History,
		faucet:  cfg.Faucet,
		closers: cfg.Closers,
		log:     klog.Wallet,
	}, nil
}

// Provider returns the provider the wallet is bound to.
func (c *Controller) Provider() sdk.Provider {
	return c.mgr.Provider()
}

// Subscribe streams account snapshots, latest first.
func (c *Controller) Subscribe() *session.Subscription {
	return c.mgr.Subscribe()
}

// GetBalance returns the confirmed balance in base units, creating the
// account if needed.
func (c *Controller) GetBalance(ctx context.Context) (*big.Int, error) {
	return c.balance(ctx, "balance", sdk.Account.Balance)
}

// GetPendingBalance returns the balance including pending transfers.
func (c *Controller) GetPendingBalance(ctx context.Context) (*big.Int, error) {
	return c.balance(ctx, "pending balance", sdk.Account.PendingBalance)
}

func (c *Controller) balance(ctx context.Context, op string,
	query func(sdk.Account, context.Context) (*big.Int, error)) (*big.Int, error) {

	return session.Do(c.mgr, op, func(t *session.Txn) (*big.Int, error) {
		acct, err := t.RequireAccount()
		if err != nil {
			return nil, err
		}
		bal, err := query(acct, t.Context())
		if err != nil {
			return nil, &OperationError{Op: op, Err: err}
		}
		return bal, nil
	}).Await(ctx)
}

// IsWalletAvailable streams whether an account exists, starting with the
// current answer. It never creates an account. The channel closes when
// ctx is done or the wallet is closed.
func (c *Controller) IsWalletAvailable(ctx context.Context) <-chan bool {
	sub := c.mgr.Subscribe()
	out := make(chan bool)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				select {
				case out <- snap.HasAccount():
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// HasWallet reports whether an account exists without creating one.
// Unlike IsWalletAvailable it fails when the node cannot be reached.
func (c *Controller) HasWallet(ctx context.Context) (bool, error) {
	return session.Do(c.mgr, "has wallet", func(t *session.Txn) (bool, error) {
		if t.Account() != nil {
			return true, nil
		}
		client, err := t.Client()
		if err != nil {
			return false, err
		}
		return client.ExistingAccount() != nil, nil
	}).Await(ctx)
}

// GetPublicAddress returns the account address, creating the account if
// needed.
func (c *Controller) GetPublicAddress(ctx context.Context) (string, error) {
	return session.Do(c.mgr, "public address", func(t *session.Txn) (string, error) {
		acct, err := t.RequireAccount()
		if err != nil {
			return "", err
		}
		return acct.PublicAddress(), nil
	}).Await(ctx)
}

// SendKin transfers amount base units to the hex address to and returns the
// transaction id. It uses the current account and never creates one.
func (c *Controller) SendKin(ctx context.Context, to string, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", ErrInvalidAmount
	}
	amount = new(big.Int).Set(amount)

	return session.Do(c.mgr, "send", func(t *session.Txn) (string, error) {
		acct := t.Account()
		if acct == nil {
			return "", ErrWalletUnavailable
		}
		secret, err := t.Passkey()
		if err != nil {
			return "", err
		}
		txID, err := acct.SendTransaction(t.Context(), to, amount, secret)
		if err != nil {
			return "", &OperationError{Op: "send", Err: err}
		}
		return txID, nil
	}).Await(ctx)
}

// ExportKeyStore returns the account's keystore JSON encrypted with
// passphrase.
func (c *Controller) ExportKeyStore(ctx context.Context, passphrase string) (string, error) {
	return session.Do(c.mgr, "export", func(t *session.Txn) (string, error) {
		client, err := t.Client()
		if err != nil {
			return "", err
		}
		acct := client.ExistingAccount()
		if acct == nil {
			return "", ErrWalletUnavailable
		}
		secret, err := t.Passkey()
		if err != nil {
			return "", err
		}
		out, err := acct.ExportKeyStore(secret, passphrase)
		if err != nil {
			return "", &OperationError{Op: "export", Err: err}
		}
		return out, nil
	}).Await(ctx)
}

// ClearWallet deletes the local keystore. The next account-requiring call
// creates a new account.
func (c *Controller) ClearWallet(ctx context.Context) error {
	return c.mgr.ClearAccount(ctx)
}

// TransactionHistory returns transfers sent from the wallet.
func (c *Controller) TransactionHistory(ctx context.Context) ([]history.Transaction, error) {
	if c.history == nil {
		return nil, ErrHistoryUnavailable
	}
	addr, err := c.GetPublicAddress(ctx)
	if err != nil {
		return nil, err
	}
	return c.history.Sent(ctx, addr)
}

// FullHistory returns transfers sent from and received by the wallet,
// oldest first.
func (c *Controller) FullHistory(ctx context.Context) ([]history.Transaction, error) {
	if c.history == nil {
		return nil, ErrHistoryUnavailable
	}
	addr, err := c.GetPublicAddress(ctx)
	if err != nil {
		return nil, err
	}
	return history.All(ctx, c.history, addr)
}

// RequestTestTokens asks the network faucet to fund the wallet. Not
// available on mainnet.
func (c *Controller) RequestTestTokens(ctx context.Context) error {
	if c.faucet == nil || c.mgr.Provider().IsMainNet() {
		return ErrFaucetUnavailable
	}
	addr, err := c.GetPublicAddress(ctx)
	if err != nil {
		return err
	}
	return c.faucet.Request(ctx, addr)
}

// Close shuts the session down and releases the stores.
func (c *Controller) Close() error {
	err := c.mgr.Close()
	for _, cl := range c.closers {
		if cerr := cl.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	c.log.Debug().Msg("Wallet closed")
	return err
}
