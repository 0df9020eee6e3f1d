package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments). A missing file
// yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Provider / token
	case "provider.url", "provider":
		cfg.Provider.URL = value
	case "token.contract":
		cfg.Token.Contract = value

	// Keystore
	case "keystore.light":
		cfg.Keystore.Light = parseBool(value)

	// Secure store
	case "securestore.backend":
		cfg.SecureStore.Backend = strings.ToLower(value)
	case "securestore.service":
		cfg.SecureStore.Service = value
	case "securestore.seal":
		cfg.SecureStore.SealPassphrase = value

	// Explorer
	case "explorer.url", "explorer":
		cfg.Explorer.URL = value
	case "explorer.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Explorer.Timeout = d
	case "explorer.cachettl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Explorer.CacheTTL = d
	case "explorer.cachesize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Explorer.CacheSize = n

	// Faucet
	case "faucet.url", "faucet":
		cfg.Faucet.URL = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# NextOfKin wallet configuration

# Network: mainnet, ropsten or truffle
network = ` + string(network) + `

# Data directory
# datadir = ~/.nok

# ============================================================================
# Provider / token
# ============================================================================

provider.url = ` + cfg.Provider.URL + `
token.contract = ` + cfg.Token.Contract + `

# Light scrypt parameters for the keystore (faster, weaker)
# keystore.light = false

# ============================================================================
# Secure store
# ============================================================================

securestore.backend = badger
# Encrypt stored secrets at rest with this passphrase
# securestore.seal =

# ============================================================================
# Explorer / faucet
# ============================================================================

explorer.url = ` + cfg.Explorer.URL + `
# explorer.timeout = 10s
# explorer.cachettl = 30s
# faucet.url = ` + cfg.Faucet.URL + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
