package wallet

import (
	"fmt"
	"io"

	"github.com/nextofkin/nok-wallet/config"
	"github.com/nextofkin/nok-wallet/internal/ethsdk"
	"github.com/nextofkin/nok-wallet/internal/faucet"
	klog "github.com/nextofkin/nok-wallet/internal/log"
	"github.com/nextofkin/nok-wallet/internal/securestore"
	"github.com/nextofkin/nok-wallet/internal/session"
	"github.com/nextofkin/nok-wallet/pkg/history"
	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// Open builds a Controller from configuration: the secure store, the
// go-ethereum SDK dialer, the explorer history source and the faucet.
// The node is contacted lazily.
func Open(cfg *config.Config) (*Controller, error) {
	network, err := sdk.ParseNetworkID(string(cfg.Network))
	if err != nil {
		return nil, err
	}
	provider := sdk.Provider{URL: cfg.Provider.URL, Network: network}

	var backend securestore.Backend
	switch cfg.SecureStore.Backend {
	case config.BackendMemory:
		backend = securestore.NewMemory()
	default:
		backend, err = securestore.NewBadger(cfg.SecureStoreDir())
		if err != nil {
			return nil, err
		}
	}
	store, err := securestore.New(backend, cfg.SecureStore.Service,
		securestore.WithSealPassphrase(cfg.SecureStore.SealPassphrase))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open secure store: %w", err)
	}

	dial := ethsdk.Dialer(ethsdk.Options{
		KeystoreRoot: cfg.KeystoreDir(),
		Contract:     cfg.Token.Contract,
		LightKDF:     cfg.Keystore.Light,
	})
	logger := klog.WithNetwork(provider.Network.String(), provider.URL).
		With().Str("component", "session").Logger()
	mgr, err := session.NewManager(session.ManagerConfig{
		Provider: provider,
		Dial:     dial,
		Secrets:  store,
		Logger:   &logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var src history.Source
	if cfg.Explorer.URL != "" {
		fetcher := history.NewFetcher(cfg.Explorer.URL, cfg.Token.Contract, cfg.Explorer.Timeout)
		src = fetcher
		if cfg.Explorer.CacheTTL > 0 {
			src = history.NewCached(fetcher, cfg.Explorer.CacheSize, cfg.Explorer.CacheTTL)
		}
	}

	var fc Faucet
	if cfg.Faucet.URL != "" && !provider.IsMainNet() {
		fc = faucet.New(cfg.Faucet.URL, cfg.Explorer.Timeout)
	}

	return NewController(ControllerConfig{
		Manager: mgr,
		History: src,
		Faucet:  fc,
		Closers: []io.Closer{store},
	})
}
