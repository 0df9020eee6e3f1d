package session

import (
	"sync"

	"github.com/nextofkin/nok-wallet/pkg/sdk"
)

// State is the lifecycle state of a Manager.
type State int

const (
	// StateUninitialized means the keystore has not been read yet.
	StateUninitialized State = iota
	StateNoAccount
	StateHasAccount
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNoAccount:
		return "no-account"
	case StateHasAccount:
		return "has-account"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Snapshot is one observed value of the current account.
type Snapshot struct {
	Account sdk.Account
	State   State
}

// HasAccount reports whether the snapshot holds an account.
func (s Snapshot) HasAccount() bool {
	return s.Account != nil
}

// stateCell holds the latest snapshot and fans every change out to
// subscribers in publication order.
type stateCell struct {
	mu     sync.Mutex
	cur    Snapshot
	subs   map[*Subscription]struct{}
	closed bool
}

func newStateCell() *stateCell {
	return &stateCell{
		cur:  Snapshot{State: StateUninitialized},
		subs: make(map[*Subscription]struct{}),
	}
}

func (c *stateCell) load() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// publish records acct as current. Publishing after close is a no-op.
func (c *stateCell) publish(acct sdk.Account) {
	snap := Snapshot{Account: acct, State: StateNoAccount}
	if acct != nil {
		snap.State = StateHasAccount
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cur = snap
	for s := range c.subs {
		s.push(snap)
	}
}

func (c *stateCell) subscribe() *Subscription {
	s := newSubscription(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		s.stop()
		return s
	}
	s.push(c.cur)
	c.subs[s] = struct{}{}
	return s
}

func (c *stateCell) unsubscribe(s *Subscription) {
	c.mu.Lock()
	delete(c.subs, s)
	c.mu.Unlock()
	s.stop()
}

// close marks the cell disposed and terminates every subscription.
func (c *stateCell) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cur = Snapshot{State: StateDisposed}
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

// Subscription delivers account snapshots, starting with the one current
// at subscribe time. Every published snapshot is delivered in order; a
// slow reader only delays its own stream.
type Subscription struct {
	cell  *stateCell
	out   chan Snapshot
	wake  chan struct{}
	quit  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	queue []Snapshot
}

func newSubscription(c *stateCell) *Subscription {
	s := &Subscription{
		cell: c,
		out:  make(chan Snapshot),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go s.run()
	return s
}

// Updates returns the snapshot stream. It is closed when the subscription
// ends or the manager shuts down.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.out
}

// Unsubscribe stops delivery and closes the Updates channel.
func (s *Subscription) Unsubscribe() {
	s.cell.unsubscribe(s)
}

func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	s.queue = append(s.queue, snap)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = Snapshot{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.quit:
			return
		}
	}
}
