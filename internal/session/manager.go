// Package session serializes every wallet SDK operation onto a single
// worker and publishes the current account to subscribers.
//
// A Manager owns one provider for its whole life. The SDK client is built
// lazily on the worker, the keystore passkey lives in a secure store, and
// an account is created at most once even under concurrent demand.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	klog "github.com/nextofkin/nok-wallet/internal/log"
	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// ManagerConfig holds configuration for creating a Manager.
type ManagerConfig struct {
	Provider sdk.Provider
	Dial     sdk.Dialer
	Secrets  sdk.SecretStore
	Logger   *zerolog.Logger // nil = session component logger
}

// Manager runs SDK operations one at a time, in submission order.
type Manager struct {
	provider sdk.Provider
	dial     sdk.Dialer
	secrets  sdk.SecretStore
	log      zerolog.Logger
	state    *stateCell

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	mu     sync.Mutex
	queue  []*job
	closed bool
	wake   chan struct{}

	// client is owned by the worker goroutine.
	client sdk.Client
}

type job struct {
	name string
	run  func(ctx context.Context)
	fail func(err error)
}

// NewManager starts a manager and queues the initial keystore read.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Dial == nil {
		return nil, errors.New("session: dialer is required")
	}
	if cfg.Secrets == nil {
		return nil, errors.New("session: secret store is required")
	}

	logger := klog.Session
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: cfg.Provider,
		dial:     cfg.Dial,
		secrets:  cfg.Secrets,
		log:      logger.With().Str("provider", cfg.Provider.String()).Logger(),
		state:    newStateCell(),
		ctx:      ctx,
		cancel:   cancel,
		exited:   make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
	go m.loop()

	submit(m, "load account", func(context.Context) (struct{}, error) {
		m.loadExisting()
		return struct{}{}, nil
	})
	return m, nil
}

// Do submits fn to run on the worker. The Txn passed to fn is valid only
// until fn returns.
func Do[T any](m *Manager, name string, fn func(*Txn) (T, error)) *Future[T] {
	return submit(m, name, func(ctx context.Context) (T, error) {
		return fn(&Txn{m: m, ctx: ctx})
	})
}

func submit[T any](m *Manager, name string, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T](m.ctx.Done())
	j := &job{
		name: name,
		run: func(ctx context.Context) {
			v, err := fn(ctx)
			if m.ctx.Err() != nil {
				var zero T
				f.resolve(zero, ErrSessionDisposed)
				return
			}
			f.resolve(v, err)
		},
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		j.fail(ErrSessionDisposed)
		return f
	}
	m.queue = append(m.queue, j)
	queueDepth.Inc()
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return f
}

func (m *Manager) next() *job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	j := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	queueDepth.Dec()
	return j
}

func (m *Manager) loop() {
	defer close(m.exited)
	for {
		select {
		case <-m.wake:
		case <-m.ctx.Done():
			m.drain()
			if m.client != nil {
				m.client.Close()
				m.client = nil
			}
			return
		}

		for j := m.next(); j != nil; j = m.next() {
			if m.ctx.Err() != nil {
				j.fail(ErrSessionDisposed)
				continue
			}
			start := time.Now()
			j.run(m.ctx)
			m.log.Debug().
				Str("op", j.name).
				Dur("took", time.Since(start)).
				Msg("Operation done")
		}
	}
}

func (m *Manager) drain() {
	m.mu.Lock()
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, j := range pending {
		queueDepth.Dec()
		j.fail(ErrSessionDisposed)
	}
}

// Close disposes the manager. Queued and in-flight operations resolve
// with ErrSessionDisposed, subscriptions end, and later submissions fail
// immediately. Close waits for the worker to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.state.close()
	m.cancel()
	<-m.exited

	m.log.Debug().Msg("Session closed")
	return nil
}

// Provider returns the provider this manager was built for.
func (m *Manager) Provider() sdk.Provider {
	return m.provider
}

// Account returns the current account without blocking, or nil.
func (m *Manager) Account() sdk.Account {
	return m.state.load().Account
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	return m.state.load().State
}

// Subscribe returns a stream that replays the current snapshot and then
// delivers every change.
func (m *Manager) Subscribe() *Subscription {
	return m.state.subscribe()
}

// RequireAccountAsync queues create-or-get and returns its future.
func (m *Manager) RequireAccountAsync() *Future[sdk.Account] {
	return Do(m, "require account", func(t *Txn) (sdk.Account, error) {
		return t.RequireAccount()
	})
}

// RequireAccount returns the current account, creating one if needed.
func (m *Manager) RequireAccount(ctx context.Context) (sdk.Account, error) {
	return m.RequireAccountAsync().Await(ctx)
}

// ClearAccountAsync queues a keystore wipe and returns its future.
func (m *Manager) ClearAccountAsync() *Future[struct{}] {
	return Do(m, "clear account", func(t *Txn) (struct{}, error) {
		return struct{}{}, t.m.clearAccount()
	})
}

// ClearAccount deletes the local keystore and publishes the absence of an
// account. The passkey is kept.
func (m *Manager) ClearAccount(ctx context.Context) error {
	_, err := m.ClearAccountAsync().Await(ctx)
	return err
}

// ── Worker-only helpers ─────────────────────────────────────────────

func (m *Manager) ensureClient() (sdk.Client, error) {
	if m.client != nil {
		return m.client, nil
	}
	c, err := m.dial(m.provider)
	if err != nil {
		operationFailures.WithLabelValues("dial").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderUnreachable, m.provider, err)
	}
	m.client = c
	return c, nil
}

func (m *Manager) loadExisting() {
	c, err := m.ensureClient()
	if err != nil {
		m.log.Warn().Err(err).Msg("Could not load keystore")
		return
	}
	if m.state.load().State != StateUninitialized {
		return
	}
	acct := c.ExistingAccount()
	m.state.publish(acct)
	if acct != nil {
		m.log.Info().Str("address", acct.PublicAddress()).Msg("Loaded account")
	}
}

func (m *Manager) requireAccount() (sdk.Account, error) {
	if acct := m.state.load().Account; acct != nil {
		return acct, nil
	}
	acct, err := m.createOrGet()
	if err != nil {
		operationFailures.WithLabelValues("require account").Inc()
		return nil, err
	}
	m.state.publish(acct)
	return acct, nil
}

// createOrGet returns the keystore's account, creating one on demand. A
// failed creation wipes the keystore and retries exactly once.
func (m *Manager) createOrGet() (sdk.Account, error) {
	c, err := m.ensureClient()
	if err != nil {
		return nil, err
	}
	if acct := c.ExistingAccount(); acct != nil {
		return acct, nil
	}

	secret, err := m.passkey()
	if err != nil {
		return nil, err
	}
	acct, err := c.CreateAccountIfNeeded(secret)
	if err == nil {
		accountsCreated.Inc()
		m.log.Info().Str("address", acct.PublicAddress()).Msg("Account ready")
		return acct, nil
	}

	m.log.Warn().Err(err).Msg("Account creation failed, wiping keystore")
	keystoreWipes.Inc()
	if derr := c.DeleteKeystore(); derr != nil {
		m.log.Warn().Err(derr).Msg("Keystore wipe failed")
	}

	secret, err = m.passkey()
	if err != nil {
		return nil, err
	}
	acct, err = c.CreateAccountIfNeeded(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: create after wipe: %w", ErrKeystoreCorrupted, err)
	}
	accountsCreated.Inc()
	m.log.Info().Str("address", acct.PublicAddress()).Msg("Account recreated after wipe")
	return acct, nil
}

func (m *Manager) clearAccount() error {
	c, err := m.ensureClient()
	if err != nil {
		return err
	}
	if err := c.DeleteKeystore(); err != nil {
		operationFailures.WithLabelValues("delete keystore").Inc()
		return &OperationError{Op: "delete keystore", Err: err}
	}
	m.state.publish(nil)
	m.log.Info().Msg("Keystore cleared")
	return nil
}

// Txn is the worker-side view handed to functions run through Do.
type Txn struct {
	m   *Manager
	ctx context.Context
}

// Context is cancelled when the manager closes.
func (t *Txn) Context() context.Context {
	return t.ctx
}

// Client returns the SDK client, building it on first use.
func (t *Txn) Client() (sdk.Client, error) {
	return t.m.ensureClient()
}

// Account returns the current account, or nil.
func (t *Txn) Account() sdk.Account {
	return t.m.state.load().Account
}

// RequireAccount runs create-or-get inline.
func (t *Txn) RequireAccount() (sdk.Account, error) {
	return t.m.requireAccount()
}

// Passkey returns the keystore passkey, creating it if absent.
func (t *Txn) Passkey() (string, error) {
	return t.m.passkey()
}
