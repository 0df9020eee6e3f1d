package config

import (
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the configuration for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Ropsten, Truffle:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Ropsten, Truffle)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}

	if err := validateURL(cfg.Provider.URL, "provider.url", "http", "https", "ws", "wss"); err != nil {
		return err
	}
	if cfg.Token.Contract == "" {
		return fmt.Errorf("token.contract is required on %s", cfg.Network)
	}
	if !common.IsHexAddress(cfg.Token.Contract) {
		return fmt.Errorf("token.contract %q is not a hex address", cfg.Token.Contract)
	}

	switch cfg.SecureStore.Backend {
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("securestore.backend must be %q or %q", BackendBadger, BackendMemory)
	}
	if cfg.SecureStore.Service == "" {
		return fmt.Errorf("securestore.service is empty")
	}

	if cfg.Explorer.URL != "" {
		if err := validateURL(cfg.Explorer.URL, "explorer.url", "http", "https"); err != nil {
			return err
		}
	}
	if cfg.Explorer.CacheSize < 0 {
		return fmt.Errorf("explorer.cachesize must not be negative")
	}
	if cfg.Explorer.Timeout < 0 || cfg.Explorer.CacheTTL < 0 {
		return fmt.Errorf("explorer durations must not be negative")
	}

	if cfg.Faucet.URL != "" {
		if cfg.Network == Mainnet {
			return fmt.Errorf("faucet.url is not allowed on mainnet")
		}
		if err := validateURL(cfg.Faucet.URL, "faucet.url", "http", "https"); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(raw, field string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%s %q has no host", field, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%s %q has unsupported scheme %q", field, raw, u.Scheme)
}
