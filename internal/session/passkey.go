package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// PasskeyKey is the secure-store key holding the keystore passkey.
	PasskeyKey = "nok.kin.passkey"

	passkeyBytes = 128
)

// passkey returns the stored keystore passkey, generating and storing a
// fresh one when none exists. Worker only.
func (m *Manager) passkey() (string, error) {
	stored, ok, err := m.secrets.Get(PasskeyKey)
	if err != nil {
		return "", fmt.Errorf("read passkey: %w", err)
	}
	if ok && len(stored) > 0 {
		return string(stored), nil
	}

	key, err := generatePasskey()
	if err != nil {
		return "", err
	}
	if err := m.secrets.Set(PasskeyKey, []byte(key)); err != nil {
		return "", fmt.Errorf("store passkey: %w", err)
	}
	m.log.Info().Msg("Generated keystore passkey")
	return key, nil
}

func generatePasskey() (string, error) {
	buf := make([]byte, passkeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate passkey: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
