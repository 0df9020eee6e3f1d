// Package faucet requests test tokens for an address on a test network.
package faucet

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nextofkin/nok-wallet/internal/httpclient"
	klog "github.com/nextofkin/nok-wallet/internal/log"
)

// Client talks to a token faucet.
type Client struct {
	http *httpclient.Client
}

// New creates a faucet client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{http: httpclient.NewWithTimeout(baseURL, timeout)}
}

// Request asks the faucet to send test tokens to address. The faucet
// answers once the transfer is queued, not mined.
func (c *Client) Request(ctx context.Context, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	q := url.Values{"public_address": {address}}
	if _, err := c.http.Get(ctx, "/send", q); err != nil {
		return fmt.Errorf("faucet request: %w", err)
	}
	klog.Wallet.Info().Str("address", address).Msg("Requested test tokens")
	return nil
}
