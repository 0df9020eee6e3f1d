package config

import "time"

// Provider endpoints the wallet ships with.
const (
	MainnetProviderURL = "http://mainnet.rounds.video:8545/"
	RopstenProviderURL = "http://testnet.rounds.video:8545/"
	TruffleProviderURL = "http://127.0.0.1:8545/"
)

// Kin token contracts.
const (
	MainnetKinContract = "0x818Fc6C2Ec5986bc6E2CBf00939d90556aB12ce5"
	RopstenKinContract = "0xef2fcc998847db203dea15fc49d0872c7614910c"
)

// DefaultNetwork is the network used when none is configured.
const DefaultNetwork = Ropsten

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Provider: ProviderConfig{
			URL: MainnetProviderURL,
		},
		Token: TokenConfig{
			Contract: MainnetKinContract,
		},
		SecureStore: SecureStoreConfig{
			Backend: BackendBadger,
			Service: "nok.wallet",
		},
		Explorer: ExplorerConfig{
			URL:       "https://api.etherscan.io/",
			Timeout:   10 * time.Second,
			CacheTTL:  30 * time.Second,
			CacheSize: 64,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultRopsten returns the default configuration for the Ropsten testnet.
func DefaultRopsten() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Ropsten
	cfg.Provider.URL = RopstenProviderURL
	cfg.Token.Contract = RopstenKinContract
	cfg.Explorer.URL = "https://ropsten.etherscan.io/"
	cfg.Faucet.URL = "http://kin-faucet.rounds.video/"
	return cfg
}

// DefaultTruffle returns the default configuration for a local truffle
// chain. The token contract must be configured explicitly.
func DefaultTruffle() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Truffle
	cfg.Provider.URL = TruffleProviderURL
	cfg.Token.Contract = ""
	cfg.Explorer.URL = ""
	cfg.Keystore.Light = true
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Mainnet:
		return DefaultMainnet()
	case Truffle:
		return DefaultTruffle()
	default:
		return DefaultRopsten()
	}
}
