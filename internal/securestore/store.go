package securestore

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	klog "github.com/nextofkin/nok-wallet/internal/log"
)

// Keys starting with "." are reserved for store records.
const saltRecordKey = ".salt"

// ErrReservedKey is returned for empty keys and keys starting with ".".
var ErrReservedKey = errors.New("securestore: reserved key")

// Option configures a Store.
type Option func(*options)

type options struct {
	passphrase []byte
	params     SealParams
}

// WithSealPassphrase seals every value with a key derived from passphrase.
// An empty passphrase leaves values in the clear.
func WithSealPassphrase(passphrase string) Option {
	return func(o *options) {
		if passphrase != "" {
			o.passphrase = []byte(passphrase)
		}
	}
}

// WithSealParams overrides the key derivation cost for new stores. An
// existing store keeps the parameters recorded with its salt.
func WithSealParams(p SealParams) Option {
	return func(o *options) {
		o.params = p
	}
}

// Store keeps secrets for one service namespace. It is safe for
// concurrent use.
type Store struct {
	backend Backend
	service string
	sealer  *sealer
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a Store over backend. Keys are namespaced by service so
// several applications can share one backend.
func New(backend Backend, service string, opts ...Option) (*Store, error) {
	if service == "" {
		return nil, errors.New("securestore: service is required")
	}
	o := options{params: DefaultSealParams()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		backend: backend,
		service: service,
		log:     klog.Store.With().Str("service", service).Logger(),
	}
	if o.passphrase != nil {
		sl, err := s.loadSealer(o.passphrase, o.params)
		if err != nil {
			return nil, err
		}
		s.sealer = sl
	}
	return s, nil
}

func (s *Store) loadSealer(passphrase []byte, params SealParams) (*sealer, error) {
	saltKey := s.storageKey(saltRecordKey)
	rec, err := s.backend.Get(saltKey)
	switch {
	case errors.Is(err, ErrNotFound):
		salt, err := newSalt()
		if err != nil {
			return nil, err
		}
		if err := s.backend.Put(saltKey, encodeSaltRecord(salt, params)); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
		s.log.Debug().Msg("Created sealing salt")
		return newSealer(passphrase, salt, params), nil
	case err != nil:
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt, stored, err := decodeSaltRecord(rec)
	if err != nil {
		return nil, err
	}
	return newSealer(passphrase, salt, stored), nil
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	return nil
}

func (s *Store) storageKey(key string) []byte {
	return []byte(s.service + "/" + key)
}

// Sealed reports whether values are encrypted before storage.
func (s *Store) Sealed() bool {
	return s.sealer != nil
}

// Get returns the value for key. ok is false when the key is absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, errors.New("securestore: closed")
	}

	sk := s.storageKey(key)
	val, err := s.backend.Get(sk)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if s.sealer != nil {
		val, err = s.sealer.open(sk, val)
		if err != nil {
			return nil, false, fmt.Errorf("unseal %s: %w", key, err)
		}
	}
	return val, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("securestore: closed")
	}

	sk := s.storageKey(key)
	if s.sealer != nil {
		sealed, err := s.sealer.seal(sk, value)
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		value = sealed
	}
	if err := s.backend.Put(sk, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("securestore: closed")
	}
	if err := s.backend.Delete(s.storageKey(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close zeroes the sealing key and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sealer != nil {
		s.sealer.zero()
	}
	return s.backend.Close()
}
