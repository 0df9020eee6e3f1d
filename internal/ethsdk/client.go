// Package ethsdk implements the wallet SDK on go-ethereum: an encrypted
// keystore directory per provider and ERC-20 token calls over JSON-RPC.
package ethsdk

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	klog "github.com/nextofkin/nok-wallet/internal/log"
	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// DefaultDialTimeout bounds the reachability check made by Dial.
const DefaultDialTimeout = 10 * time.Second

// Options configures clients built by Dial.
type Options struct {
	// KeystoreRoot holds one keystore directory per provider.
	KeystoreRoot string
	// Contract is the hex address of the token contract.
	Contract string
	// LightKDF trades keystore strength for speed. Development only.
	LightKDF    bool
	DialTimeout time.Duration
}

// Dialer returns an sdk.Dialer that builds clients with opts.
func Dialer(opts Options) sdk.Dialer {
	return func(p sdk.Provider) (sdk.Client, error) {
		return Dial(p, opts)
	}
}

// KeystoreDir returns the keystore directory for a provider. Distinct
// endpoints never share keys.
func KeystoreDir(root string, p sdk.Provider) string {
	sum := blake3.Sum256([]byte(p.Network.String() + "|" + p.URL))
	return filepath.Join(root, p.Network.String()+"-"+hex.EncodeToString(sum[:8]))
}

// Client is an sdk.Client backed by a node and a local keystore.
type Client struct {
	provider sdk.Provider
	eth      *ethclient.Client
	token    abi.ABI
	contract common.Address
	chainID  *big.Int
	dir      string
	scryptN  int
	scryptP  int
	log      zerolog.Logger

	mu sync.Mutex
	ks *keystore.KeyStore
}

// Dial connects to the provider and opens its keystore. It fails when the
// node does not answer a chain id query within the dial timeout.
func Dial(p sdk.Provider, opts Options) (*Client, error) {
	if !common.IsHexAddress(opts.Contract) {
		return nil, fmt.Errorf("invalid token contract %q", opts.Contract)
	}
	if opts.KeystoreRoot == "" {
		return nil, fmt.Errorf("keystore root is required")
	}
	token, err := TokenABI()
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.URL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("query chain id at %s: %w", p.URL, err)
	}

	logger := klog.SDK.With().Str("network", p.Network.String()).Logger()
	if p.Network != sdk.Truffle && chainID.Uint64() != uint64(p.Network) {
		logger.Warn().
			Uint64("chain_id", chainID.Uint64()).
			Msg("Node chain id does not match the configured network")
	}

	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if opts.LightKDF {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	dir := KeystoreDir(opts.KeystoreRoot, p)
	if err := os.MkdirAll(dir, 0700); err != nil {
		eth.Close()
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	c := &Client{
		provider: p,
		eth:      eth,
		token:    token,
		contract: common.HexToAddress(opts.Contract),
		chainID:  chainID,
		dir:      dir,
		scryptN:  scryptN,
		scryptP:  scryptP,
		log:      logger,
		ks:       keystore.NewKeyStore(dir, scryptN, scryptP),
	}
	logger.Debug().Str("keystore", dir).Msg("SDK client ready")
	return c, nil
}

func (c *Client) keyStore() *keystore.KeyStore {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ks
}

// Provider returns the provider the client was dialed with.
func (c *Client) Provider() sdk.Provider {
	return c.provider
}

// KeystoreDir returns the directory holding this client's keys.
func (c *Client) KeystoreDir() string {
	return c.dir
}

// ExistingAccount returns the first account in the keystore, or nil.
func (c *Client) ExistingAccount() sdk.Account {
	accts := c.keyStore().Accounts()
	if len(accts) == 0 {
		return nil
	}
	return c.wrap(accts[0])
}

// CreateAccountIfNeeded returns the existing account after checking that
// secret opens it, or creates a new account protected by secret.
func (c *Client) CreateAccountIfNeeded(secret string) (sdk.Account, error) {
	ks := c.keyStore()
	if accts := ks.Accounts(); len(accts) > 0 {
		acct := accts[0]
		raw, err := os.ReadFile(acct.URL.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: read key file: %v", sdk.ErrKeystoreCorrupted, err)
		}
		if _, err := keystore.DecryptKey(raw, secret); err != nil {
			return nil, fmt.Errorf("%w: %v", sdk.ErrKeystoreCorrupted, err)
		}
		return c.wrap(acct), nil
	}

	acct, err := ks.NewAccount(secret)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	c.log.Info().Str("address", acct.Address.Hex()).Msg("Created keystore account")
	return c.wrap(acct), nil
}

// DeleteKeystore removes every key file and reopens an empty keystore.
func (c *Client) DeleteKeystore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove keystore: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return fmt.Errorf("recreate keystore dir: %w", err)
	}
	// A fresh KeyStore drops the account cache of the deleted files.
	c.ks = keystore.NewKeyStore(c.dir, c.scryptN, c.scryptP)
	c.log.Info().Msg("Keystore deleted")
	return nil
}

// Close releases the node connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) wrap(acct accounts.Account) *Account {
	return &Account{c: c, acct: acct}
}
