// Package config handles wallet configuration.
//
// Settings are layered: network defaults, then the config file, then
// NOK_* environment variables, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the Ethereum network the wallet talks to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Ropsten NetworkType = "ropsten"
	Truffle NetworkType = "truffle"
)

// SecureStore backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds the wallet runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Ethereum node the SDK client talks to
	Provider ProviderConfig

	// Kin ERC-20 token
	Token TokenConfig

	// Local SDK keystore
	Keystore KeystoreConfig

	// Passkey storage
	SecureStore SecureStoreConfig

	// Block explorer used for transaction history
	Explorer ExplorerConfig

	// Test-token faucet (non-mainnet only)
	Faucet FaucetConfig

	// Logging
	Log LogConfig
}

// ProviderConfig selects the node endpoint.
type ProviderConfig struct {
	URL string `conf:"provider.url"`
}

// TokenConfig holds the token contract settings.
type TokenConfig struct {
	Contract string `conf:"token.contract"`
}

// KeystoreConfig holds SDK keystore settings.
type KeystoreConfig struct {
	// Light selects the light scrypt parameters. Meant for tests and
	// low-memory devices.
	Light bool `conf:"keystore.light"`
}

// SecureStoreConfig holds settings for the store that keeps the passkey.
type SecureStoreConfig struct {
	Backend string `conf:"securestore.backend"` // badger or memory
	Service string `conf:"securestore.service"` // key namespace
	// SealPassphrase, when set, encrypts every stored value at rest.
	SealPassphrase string `conf:"securestore.seal"`
}

// ExplorerConfig holds block-explorer settings.
type ExplorerConfig struct {
	URL       string        `conf:"explorer.url"`
	Timeout   time.Duration `conf:"explorer.timeout"`
	CacheTTL  time.Duration `conf:"explorer.cachettl"`
	CacheSize int           `conf:"explorer.cachesize"`
}

// FaucetConfig holds test-token faucet settings.
type FaucetConfig struct {
	URL string `conf:"faucet.url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.nok
//	macOS:   ~/Library/Application Support/NextOfKin
//	Windows: %APPDATA%\NextOfKin
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nok"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "NextOfKin")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "NextOfKin")
		}
		return filepath.Join(home, "AppData", "Roaming", "NextOfKin")
	default:
		return filepath.Join(home, ".nok")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the SDK keystore root directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// SecureStoreDir returns the secure store directory. It is shared by all
// networks: the passkey is per install, not per network.
func (c *Config) SecureStoreDir() string {
	return filepath.Join(c.DataDir, "securestore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "nok.conf")
}
