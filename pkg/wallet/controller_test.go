package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/nextofkin/nok-wallet/config"
	"github.com/nextofkin/nok-wallet/internal/session"
	"github.com/nextofkin/nok-wallet/pkg/history"
	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

const recipient = "0x000000000000000000000000000000000000dEaD"

type fakeAccount struct {
	mu           sync.Mutex
	addr         string
	balance      *big.Int
	pending      *big.Int
	balanceErr   error
	balanceCalls int
	sendSecret   string
	sendTo       string
	sendAmount   *big.Int
}

func (a *fakeAccount) PublicAddress() string { return a.addr }

func (a *fakeAccount) Balance(context.Context) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balanceCalls++
	if a.balanceErr != nil {
		return nil, a.balanceErr
	}
	return a.balance, nil
}

func (a *fakeAccount) PendingBalance(context.Context) (*big.Int, error) {
	return a.pending, nil
}

func (a *fakeAccount) SendTransaction(_ context.Context, to string, amount *big.Int, secret string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sendTo, a.sendAmount, a.sendSecret = to, amount, secret
	return "0xfeed", nil
}

func (a *fakeAccount) ExportKeyStore(secret, pass string) (string, error) {
	if secret == "" {
		return "", errors.New("locked")
	}
	return `{"pass":"` + pass + `"}`, nil
}

type fakeClient struct {
	mu          sync.Mutex
	account     *fakeAccount
	createCalls int
}

func (c *fakeClient) Provider() sdk.Provider { return sdk.Provider{} }

func (c *fakeClient) ExistingAccount() sdk.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return nil
	}
	return c.account
}

func (c *fakeClient) CreateAccountIfNeeded(string) (sdk.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	if c.account == nil {
		c.account = &fakeAccount{addr: "0x6207055328234551cc6176096707cdd498460521", balance: big.NewInt(0), pending: big.NewInt(0)}
	}
	return c.account, nil
}

func (c *fakeClient) DeleteKeystore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = nil
	return nil
}

func (c *fakeClient) Close() {}

func (c *fakeClient) creates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls
}

type memSecrets struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memSecrets) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memSecrets) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

type fakeFaucet struct {
	addr string
}

func (f *fakeFaucet) Request(_ context.Context, address string) error {
	f.addr = address
	return nil
}

type stubHistory struct {
	addr string
}

func (h *stubHistory) Sent(_ context.Context, addr string) ([]history.Transaction, error) {
	h.addr = addr
	return []history.Transaction{{TxHash: "0x1", BlockNumber: 2}}, nil
}

func (h *stubHistory) Received(context.Context, string) ([]history.Transaction, error) {
	return []history.Transaction{{TxHash: "0x2", BlockNumber: 1}}, nil
}

type testWallet struct {
	*Controller
	client  *fakeClient
	secrets *memSecrets
	faucet  *fakeFaucet
	history *stubHistory
}

func newTestWallet(t *testing.T, network sdk.NetworkID, client *fakeClient) *testWallet {
	t.Helper()
	secrets := &memSecrets{data: make(map[string][]byte)}
	mgr, err := session.NewManager(session.ManagerConfig{
		Provider: sdk.Provider{URL: "http://node.test/", Network: network},
		Dial:     func(sdk.Provider) (sdk.Client, error) { return client, nil },
		Secrets:  secrets,
	})
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	tw := &testWallet{client: client, secrets: secrets, faucet: &fakeFaucet{}, history: &stubHistory{}}
	tw.Controller, err = NewController(ControllerConfig{
		Manager: mgr,
		History: tw.history,
		Faucet:  tw.faucet,
	})
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	t.Cleanup(func() { tw.Close() })
	return tw
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewController_RequiresManager(t *testing.T) {
	if _, err := NewController(ControllerConfig{}); err == nil {
		t.Error("NewController() without a manager should fail")
	}
}

func TestGetBalance_ExistingAccount(t *testing.T) {
	acct := &fakeAccount{addr: "0xabc", balance: big.NewInt(1500), pending: big.NewInt(0)}
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{account: acct})

	bal, err := w.GetBalance(testCtx(t))
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if bal.Cmp(big.NewInt(1500)) != 0 {
		t.Errorf("GetBalance() = %s, want 1500", bal)
	}
	if n := w.client.creates(); n != 0 {
		t.Errorf("createCalls = %d, want 0", n)
	}
	acct.mu.Lock()
	calls := acct.balanceCalls
	acct.mu.Unlock()
	if calls != 1 {
		t.Errorf("balance queries = %d, want 1", calls)
	}
}

func TestGetBalance_CreatesAccount(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	if _, err := w.GetBalance(testCtx(t)); err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if n := w.client.creates(); n != 1 {
		t.Errorf("createCalls = %d, want 1", n)
	}
}

func TestGetPendingBalance(t *testing.T) {
	acct := &fakeAccount{addr: "0xabc", balance: big.NewInt(1), pending: big.NewInt(7)}
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{account: acct})

	bal, err := w.GetPendingBalance(testCtx(t))
	if err != nil {
		t.Fatalf("GetPendingBalance() error: %v", err)
	}
	if bal.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("GetPendingBalance() = %s, want 7", bal)
	}
}

func TestGetBalance_OperationError(t *testing.T) {
	acct := &fakeAccount{addr: "0xabc", balanceErr: errors.New("node down")}
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{account: acct})

	_, err := w.GetBalance(testCtx(t))
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "balance" {
		t.Fatalf("GetBalance() error = %v, want balance OperationError", err)
	}
}

func TestSendKin_NoAccount(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})

	_, err := w.SendKin(testCtx(t), recipient, big.NewInt(1))
	if !errors.Is(err, ErrWalletUnavailable) {
		t.Fatalf("SendKin() error = %v, want ErrWalletUnavailable", err)
	}
	if n := w.client.creates(); n != 0 {
		t.Errorf("SendKin() must not create an account, createCalls = %d", n)
	}
}

func TestSendKin(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	ctx := testCtx(t)
	if _, err := w.GetPublicAddress(ctx); err != nil {
		t.Fatalf("GetPublicAddress() error: %v", err)
	}

	amount := big.NewInt(250)
	txID, err := w.SendKin(ctx, recipient, amount)
	if err != nil {
		t.Fatalf("SendKin() error: %v", err)
	}
	if txID != "0xfeed" {
		t.Errorf("SendKin() = %q, want 0xfeed", txID)
	}
	amount.SetInt64(999)

	acct := w.client.account
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if acct.sendTo != recipient || acct.sendAmount.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("sent %s to %s", acct.sendAmount, acct.sendTo)
	}
	stored, _, _ := w.secrets.Get(session.PasskeyKey)
	if acct.sendSecret != string(stored) {
		t.Error("transfer must be signed with the stored passkey")
	}
}

func TestSendKin_InvalidAmount(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	for _, amount := range []*big.Int{nil, big.NewInt(-1)} {
		if _, err := w.SendKin(testCtx(t), recipient, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("SendKin(%v) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestExportKeyStore(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	ctx := testCtx(t)

	if _, err := w.ExportKeyStore(ctx, "pw"); !errors.Is(err, ErrWalletUnavailable) {
		t.Fatalf("ExportKeyStore() without account error = %v, want ErrWalletUnavailable", err)
	}
	if _, err := w.GetPublicAddress(ctx); err != nil {
		t.Fatalf("GetPublicAddress() error: %v", err)
	}
	out, err := w.ExportKeyStore(ctx, "pw")
	if err != nil {
		t.Fatalf("ExportKeyStore() error: %v", err)
	}
	if out != `{"pass":"pw"}` {
		t.Errorf("ExportKeyStore() = %s", out)
	}
}

func TestClearWallet(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	ctx := testCtx(t)

	first, err := w.GetPublicAddress(ctx)
	if err != nil {
		t.Fatalf("GetPublicAddress() error: %v", err)
	}
	if err := w.ClearWallet(ctx); err != nil {
		t.Fatalf("ClearWallet() error: %v", err)
	}
	if _, err := w.SendKin(ctx, recipient, big.NewInt(1)); !errors.Is(err, ErrWalletUnavailable) {
		t.Fatalf("SendKin() after clear error = %v, want ErrWalletUnavailable", err)
	}
	if _, err := w.GetPublicAddress(ctx); err != nil {
		t.Fatalf("GetPublicAddress() after clear error: %v", err)
	}
	if n := w.client.creates(); n != 2 {
		t.Errorf("createCalls = %d, want 2", n)
	}
	if first == "" {
		t.Error("GetPublicAddress() returned an empty address")
	}
}

func TestIsWalletAvailable(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	ctx := testCtx(t)
	avail := w.IsWalletAvailable(ctx)

	next := func() bool {
		t.Helper()
		select {
		case v, ok := <-avail:
			if !ok {
				t.Fatal("availability stream closed")
			}
			return v
		case <-ctx.Done():
			t.Fatal("timed out waiting for availability")
		}
		return false
	}

	// Uninitialized and then NoAccount may both be observed.
	if next() {
		t.Fatal("fresh wallet reported available")
	}
	if _, err := w.GetPublicAddress(ctx); err != nil {
		t.Fatalf("GetPublicAddress() error: %v", err)
	}
	for !next() {
	}
	if err := w.ClearWallet(ctx); err != nil {
		t.Fatalf("ClearWallet() error: %v", err)
	}
	if next() {
		t.Error("cleared wallet reported available")
	}
}

func TestHasWallet(t *testing.T) {
	acct := &fakeAccount{addr: "0xabc", balance: big.NewInt(0), pending: big.NewInt(0)}
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{account: acct})
	if ok, err := w.HasWallet(testCtx(t)); err != nil || !ok {
		t.Errorf("HasWallet() = %v, %v, want true", ok, err)
	}

	empty := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	if ok, err := empty.HasWallet(testCtx(t)); err != nil || ok {
		t.Errorf("HasWallet() = %v, %v, want false", ok, err)
	}
	if n := empty.client.creates(); n != 0 {
		t.Errorf("HasWallet() must not create an account, createCalls = %d", n)
	}
}

func TestHasWallet_Unreachable(t *testing.T) {
	mgr, err := session.NewManager(session.ManagerConfig{
		Provider: sdk.Provider{URL: "http://node.test/", Network: sdk.Ropsten},
		Dial: func(sdk.Provider) (sdk.Client, error) {
			return nil, errors.New("connection refused")
		},
		Secrets: &memSecrets{data: make(map[string][]byte)},
	})
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	w, err := NewController(ControllerConfig{Manager: mgr})
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	defer w.Close()

	if _, err := w.HasWallet(testCtx(t)); !errors.Is(err, ErrProviderUnreachable) {
		t.Fatalf("HasWallet() error = %v, want ErrProviderUnreachable", err)
	}
}

func TestTransactionHistory(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	ctx := testCtx(t)

	txs, err := w.TransactionHistory(ctx)
	if err != nil {
		t.Fatalf("TransactionHistory() error: %v", err)
	}
	if len(txs) != 1 || w.history.addr != w.client.account.addr {
		t.Errorf("TransactionHistory() = %v for %q", txs, w.history.addr)
	}

	all, err := w.FullHistory(ctx)
	if err != nil {
		t.Fatalf("FullHistory() error: %v", err)
	}
	if len(all) != 2 || all[0].TxHash != "0x2" {
		t.Errorf("FullHistory() = %v", all)
	}
}

func TestRequestTestTokens(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	if err := w.RequestTestTokens(testCtx(t)); err != nil {
		t.Fatalf("RequestTestTokens() error: %v", err)
	}
	if w.faucet.addr != w.client.account.addr {
		t.Errorf("faucet funded %q", w.faucet.addr)
	}
}

func TestRequestTestTokens_Mainnet(t *testing.T) {
	w := newTestWallet(t, sdk.MainNet, &fakeClient{})
	if err := w.RequestTestTokens(testCtx(t)); !errors.Is(err, ErrFaucetUnavailable) {
		t.Errorf("RequestTestTokens() on mainnet error = %v, want ErrFaucetUnavailable", err)
	}
}

func TestClose_Disposes(t *testing.T) {
	w := newTestWallet(t, sdk.Ropsten, &fakeClient{})
	w.Close()
	if _, err := w.GetBalance(testCtx(t)); !errors.Is(err, ErrSessionDisposed) {
		t.Errorf("GetBalance() after Close error = %v, want ErrSessionDisposed", err)
	}
	if _, ok := <-w.IsWalletAvailable(testCtx(t)); ok {
		t.Error("availability stream should be closed after Close")
	}
}

func TestOpen_MemoryStore(t *testing.T) {
	cfg := config.Default(config.Ropsten)
	cfg.DataDir = t.TempDir()
	cfg.Provider.URL = "http://127.0.0.1:1/"
	cfg.SecureStore.Backend = config.BackendMemory
	cfg.Keystore.Light = true

	w, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer w.Close()

	if w.Provider().Network != sdk.Ropsten {
		t.Errorf("Provider().Network = %v, want ropsten", w.Provider().Network)
	}
	if _, err := w.GetPublicAddress(testCtx(t)); !errors.Is(err, ErrProviderUnreachable) {
		t.Errorf("GetPublicAddress() error = %v, want ErrProviderUnreachable", err)
	}
}

func TestOpen_BadNetwork(t *testing.T) {
	cfg := config.Default(config.Ropsten)
	cfg.Network = "kovan"
	if _, err := Open(cfg); err == nil {
		t.Error("Open() with an unknown network should fail")
	}
}
