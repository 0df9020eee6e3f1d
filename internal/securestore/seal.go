package securestore

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltSize = 32

// Salt record format: salt(32) | memory(4) | iterations(4) | parallelism(1)
const saltRecordSize = saltSize + 4 + 4 + 1

// SealParams holds Argon2id parameters for deriving the sealing key.
type SealParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultSealParams returns recommended Argon2id parameters.
func DefaultSealParams() SealParams {
	return SealParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// ErrUnseal is returned when a sealed value cannot be opened.
var ErrUnseal = errors.New("sealed value is corrupt or the passphrase is wrong")

// sealer encrypts values with XChaCha20-Poly1305 under a key derived once
// from the passphrase.
type sealer struct {
	key []byte
}

func encodeSaltRecord(salt []byte, p SealParams) []byte {
	out := make([]byte, 0, saltRecordSize)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, p.Memory)
	out = binary.LittleEndian.AppendUint32(out, p.Iterations)
	return append(out, p.Parallelism)
}

func decodeSaltRecord(rec []byte) ([]byte, SealParams, error) {
	if len(rec) != saltRecordSize {
		return nil, SealParams{}, fmt.Errorf("salt record has %d bytes, want %d", len(rec), saltRecordSize)
	}
	p := SealParams{
		Memory:      binary.LittleEndian.Uint32(rec[saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(rec[saltSize+4:]),
		Parallelism: rec[saltSize+8],
	}
	return rec[:saltSize], p, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func newSealer(passphrase, salt []byte, p SealParams) *sealer {
	key := argon2.IDKey(passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
	return &sealer{key: key}
}

// seal returns nonce(24) | ciphertext. The storage key is bound as
// associated data so a value cannot be moved to another key.
func (s *sealer) seal(storageKey, value []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, value, storageKey), nil
}

func (s *sealer) open(storageKey, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrUnseal
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, storageKey)
	if err != nil {
		return nil, ErrUnseal
	}
	return plain, nil
}

func (s *sealer) zero() {
	for i := range s.key {
		s.key[i] = 0
	}
}
