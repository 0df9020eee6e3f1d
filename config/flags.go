package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	Help bool

	// Core
	Network string
	DataDir string
	Config  string

	// Provider / token
	ProviderURL   string
	TokenContract string
	LightKeystore bool

	// Secure store
	StoreBackend string

	// Explorer / faucet
	ExplorerURL string
	FaucetURL   string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (subcommand and its arguments)
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLightKeystore bool
	SetLogJSON       bool
}

// ParseFlags parses the global flags in args (without the program name).
// Parsing stops at the first non-flag argument so subcommands keep theirs.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("nok-wallet", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network: mainnet, ropsten or truffle")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Provider / token
	fs.StringVar(&f.ProviderURL, "rpc", "", "Ethereum node URL")
	fs.StringVar(&f.TokenContract, "token", "", "Kin token contract address")
	fs.BoolVar(&f.LightKeystore, "light-keystore", false, "Use light scrypt parameters")

	fs.StringVar(&f.StoreBackend, "store", "", "Secure store backend: badger or memory")

	fs.StringVar(&f.ExplorerURL, "explorer", "", "Block explorer API base URL")
	fs.StringVar(&f.FaucetURL, "faucet", "", "Test-token faucet base URL")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.SetLightKeystore = isFlagSet(fs, "light-keystore")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.ProviderURL != "" {
		cfg.Provider.URL = f.ProviderURL
	}
	if f.TokenContract != "" {
		cfg.Token.Contract = f.TokenContract
	}
	if f.SetLightKeystore {
		cfg.Keystore.Light = f.LightKeystore
	}
	if f.StoreBackend != "" {
		cfg.SecureStore.Backend = strings.ToLower(f.StoreBackend)
	}
	if f.ExplorerURL != "" {
		cfg.Explorer.URL = f.ExplorerURL
	}
	if f.FaucetURL != "" {
		cfg.Faucet.URL = f.FaucetURL
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load builds the configuration with the following precedence:
// 1. Network defaults
// 2. Config file
// 3. NOK_* environment variables
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	// The network picks the defaults, so resolve it first.
	network := NetworkType(strings.ToLower(flags.Network))
	if network == "" {
		network, err = EnvNetwork()
		if err != nil {
			return nil, nil, err
		}
	}
	if network == "" {
		network = DefaultNetwork
	}

	cfg := Default(network)
	if dir := os.Getenv(EnvPrefix + "_DATADIR"); dir != "" {
		cfg.DataDir = dir
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, nil, fmt.Errorf("applying env: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure. Idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.KeystoreDir(),
		cfg.SecureStoreDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
