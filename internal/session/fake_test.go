package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

type fakeAccount struct {
	addr    string
	balance *big.Int
}

func (a *fakeAccount) PublicAddress() string { return a.addr }

func (a *fakeAccount) Balance(context.Context) (*big.Int, error) {
	return new(big.Int).Set(a.balance), nil
}

func (a *fakeAccount) PendingBalance(context.Context) (*big.Int, error) {
	return new(big.Int).Set(a.balance), nil
}

func (a *fakeAccount) SendTransaction(_ context.Context, to string, amount *big.Int, _ string) (string, error) {
	return fmt.Sprintf("0xtx-%s-%s", to, amount), nil
}

func (a *fakeAccount) ExportKeyStore(_, pass string) (string, error) {
	return `{"address":"` + a.addr + `","pass":"` + pass + `"}`, nil
}

// fakeClient records every call. Its methods run on the session worker
// while tests read the counters, so all fields sit behind mu.
type fakeClient struct {
	mu          sync.Mutex
	provider    sdk.Provider
	account     *fakeAccount
	created     int
	createCalls int
	deleteCalls int
	closed      bool
	createErrs  []error
	deleteErr   error
	secrets     []string
	deletedWith []sdk.Account

	// entered and release block CreateAccountIfNeeded when non-nil.
	entered chan struct{}
	release chan struct{}
}

func (c *fakeClient) Provider() sdk.Provider { return c.provider }

func (c *fakeClient) ExistingAccount() sdk.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return nil
	}
	return c.account
}

func (c *fakeClient) CreateAccountIfNeeded(secret string) (sdk.Account, error) {
	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	c.secrets = append(c.secrets, secret)
	if len(c.createErrs) > 0 {
		err := c.createErrs[0]
		c.createErrs = c.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if c.account == nil {
		c.created++
		c.account = &fakeAccount{
			addr:    fmt.Sprintf("0x%040d", c.created),
			balance: big.NewInt(0),
		}
	}
	return c.account, nil
}

func (c *fakeClient) DeleteKeystore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteCalls++
	if c.deleteErr != nil {
		return c.deleteErr
	}
	var prev sdk.Account
	if c.account != nil {
		prev = c.account
	}
	c.deletedWith = append(c.deletedWith, prev)
	c.account = nil
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeClient) counts() (creates, deletes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls, c.deleteCalls
}

type fakeDialer struct {
	mu     sync.Mutex
	client *fakeClient
	err    error
	calls  int
}

func (d *fakeDialer) dial(p sdk.Provider) (sdk.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	d.client.provider = p
	return d.client, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *fakeDialer) dialCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type memSecrets struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemSecrets() *memSecrets {
	return &memSecrets{data: make(map[string][]byte)}
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
	s.data[key] = append([]byte(nil), value...)
	s.sets++
	return nil
}

func (s *memSecrets) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data[key])
}

var errFakeCreate = errors.New("fake create failure")
