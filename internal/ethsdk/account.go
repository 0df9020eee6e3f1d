package ethsdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Account is a keystore account holding the token.
type Account struct {
	c    *Client
	acct accounts.Account
}

// Address returns the account address.
func (a *Account) Address() common.Address {
	return a.acct.Address
}

// PublicAddress returns the checksummed hex address.
func (a *Account) PublicAddress() string {
	return a.acct.Address.Hex()
}

// Balance returns the token balance at the latest block.
func (a *Account) Balance(ctx context.Context) (*big.Int, error) {
	return a.balanceOf(ctx, false)
}

// PendingBalance returns the token balance including pending transactions.
func (a *Account) PendingBalance(ctx context.Context) (*big.Int, error) {
	return a.balanceOf(ctx, true)
}

func (a *Account) balanceOf(ctx context.Context, pending bool) (*big.Int, error) {
	data, err := a.c.token.Pack("balanceOf", a.acct.Address)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	msg := ethereum.CallMsg{From: a.acct.Address, To: &a.c.contract, Data: data}

	var out []byte
	if pending {
		out, err = a.c.eth.PendingCallContract(ctx, msg)
	} else {
		out, err = a.c.eth.CallContract(ctx, msg, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	res, err := a.c.token.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(res) != 1 {
		return nil, errors.New("unpack balanceOf: unexpected result count")
	}
	bal, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack balanceOf: unexpected type %T", res[0])
	}
	return bal, nil
}

// SendTransaction signs a token transfer with the keystore key and submits
// it. The returned id is the transaction hash.
func (a *Account) SendTransaction(ctx context.Context, to string, amount *big.Int, secret string) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address %q", to)
	}
	if amount == nil || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid amount %v", amount)
	}

	data, err := a.c.token.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}
	from := a.acct.Address
	eth := a.c.eth

	nonce, err := eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &a.c.contract, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, a.c.contract, new(big.Int), gas, gasPrice, data)
	signed, err := a.c.keyStore().SignTxWithPassphrase(a.acct, secret, tx, a.c.chainID)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	a.c.log.Info().
		Str("from", from.Hex()).
		Str("to", to).
		Str("amount", amount.String()).
		Str("tx", signed.Hash().Hex()).
		Msg("Transfer submitted")
	return signed.Hash().Hex(), nil
}

// ExportKeyStore re-encrypts the key under exportPassphrase and returns the
// keystore JSON.
func (a *Account) ExportKeyStore(secret, exportPassphrase string) (string, error) {
	out, err := a.c.keyStore().Export(a.acct, secret, exportPassphrase)
	if err != nil {
		return "", fmt.Errorf("export key: %w", err)
	}
	return string(out), nil
}
