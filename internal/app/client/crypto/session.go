package crypto

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sessionPermissions = 0600

var ErrSessionExpired = errors.New("session expired")

// Session is the sealed content of the session file.
type Session struct {
	MasterKey []byte    `json:"master_key"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionFile struct {
	Key  string `json:"key"`
	Data string `json:"data"`
}

// SaveSession caches the unlocked key until the session timeout.
func (m *MasterKeyManager) SaveSession() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveSessionLocked()
}

func (m *MasterKeyManager) saveSessionLocked() error {
	if m.isLocked || len(m.masterKey) == 0 {
		return ErrLocked
	}

	sessionKey, err := GenerateRandomBytes(keyLength)
	if err != nil {
		return err
	}

	now := time.Now()
	payload, err := json.Marshal(Session{
		MasterKey: m.masterKey,
		ExpiresAt: now.Add(m.sessionTimeout),
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	sealed, err := encryptWithKey(sessionKey, payload)
	ClearMemory(payload)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	data, err := json.MarshalIndent(sessionFile{
		Key:  hex.EncodeToString(sessionKey),
		Data: hex.EncodeToString(sealed),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.WriteFile(m.getSessionPath(), data, sessionPermissions); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession restores the key from a live session file. Broken or expired
// sessions are removed.
func (m *MasterKeyManager) LoadSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.getSessionPath()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}

	s, err := openSession(raw)
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	if time.Now().After(s.ExpiresAt) {
		_ = os.Remove(path)
		return ErrSessionExpired
	}

	m.masterKey = s.MasterKey
	m.isLocked = false

	return nil
}

func (m *MasterKeyManager) clearSession() error {
	if err := os.Remove(m.getSessionPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (m *MasterKeyManager) getSessionPath() string {
	return filepath.Join(filepath.Dir(m.keyPath), ".session")
}

func openSession(raw []byte) (Session, error) {
	var (
		sf sessionFile
		s  Session
	)

	if err := json.Unmarshal(raw, &sf); err != nil {
		return s, fmt.Errorf("decode session file: %w", err)
	}

	key, err := hex.DecodeString(sf.Key)
	if err != nil {
		return s, fmt.Errorf("decode session key: %w", err)
	}
	sealed, err := hex.DecodeString(sf.Data)
	if err != nil {
		return s, fmt.Errorf("decode session data: %w", err)
	}

	payload, err := decryptWithKey(key, sealed)
	if err != nil {
		return s, fmt.Errorf("open session: %w", err)
	}
	defer ClearMemory(payload)

	if err := json.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
