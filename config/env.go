package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override, e.g. NOK_PROVIDER_URL.
const EnvPrefix = "NOK"

// envOverrides mirrors the settings that may come from the environment.
// Unset variables leave the corresponding field untouched.
type envOverrides struct {
	Network        string         `envconfig:"NETWORK"`
	DataDir        string         `envconfig:"DATADIR"`
	ProviderURL    string         `envconfig:"PROVIDER_URL"`
	TokenContract  string         `envconfig:"TOKEN_CONTRACT"`
	KeystoreLight  *bool          `envconfig:"KEYSTORE_LIGHT"`
	StoreBackend   string         `envconfig:"SECURESTORE_BACKEND"`
	SealPassphrase string         `envconfig:"SECURESTORE_SEAL"`
	ExplorerURL    string         `envconfig:"EXPLORER_URL"`
	ExplorerTTL    *time.Duration `envconfig:"EXPLORER_CACHETTL"`
	FaucetURL      string         `envconfig:"FAUCET_URL"`
	LogLevel       string         `envconfig:"LOG_LEVEL"`
	LogFile        string         `envconfig:"LOG_FILE"`
	LogJSON        *bool          `envconfig:"LOG_JSON"`
}

// EnvNetwork returns the network named by NOK_NETWORK, if any.
func EnvNetwork() (NetworkType, error) {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return "", fmt.Errorf("failed to process env: %w", err)
	}
	return NetworkType(strings.ToLower(env.Network)), nil
}

// ApplyEnv applies NOK_* environment variables to cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}

	if env.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(env.Network))
	}
	if env.DataDir != "" {
		cfg.DataDir = env.DataDir
	}
	if env.ProviderURL != "" {
		cfg.Provider.URL = env.ProviderURL
	}
	if env.TokenContract != "" {
		cfg.Token.Contract = env.TokenContract
	}
	if env.KeystoreLight != nil {
		cfg.Keystore.Light = *env.KeystoreLight
	}
	if env.StoreBackend != "" {
		cfg.SecureStore.Backend = strings.ToLower(env.StoreBackend)
	}
	if env.SealPassphrase != "" {
		cfg.SecureStore.SealPassphrase = env.SealPassphrase
	}
	if env.ExplorerURL != "" {
		cfg.Explorer.URL = env.ExplorerURL
	}
	if env.ExplorerTTL != nil {
		cfg.Explorer.CacheTTL = *env.ExplorerTTL
	}
	if env.FaucetURL != "" {
		cfg.Faucet.URL = env.FaucetURL
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		cfg.Log.File = env.LogFile
	}
	if env.LogJSON != nil {
		cfg.Log.JSON = *env.LogJSON
	}
	return nil
}
