package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
	saltLength       = 16

	keyVersion   = 1
	kdfPBKDF2    = "PBKDF2-SHA256"
	keyFilePerms = 0600

	DefaultSessionTimeout = 15 * time.Minute
)

var (
	ErrLocked          = errors.New("master key is locked")
	ErrNotInitialized  = errors.New("master key is not initialized")
	ErrAlreadyExists   = errors.New("master key already exists")
	ErrWrongPassphrase = errors.New("wrong passphrase")
)

// MasterKeyHeader is the plaintext part of the key file.
type MasterKeyHeader struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	Salt       string    `json:"salt"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type keyFile struct {
	Header MasterKeyHeader `json:"header"`
	Data   string          `json:"data"`
}

// MasterKeyManager owns the random data key used for local field encryption.
// On disk the key is wrapped with a key derived from the passphrase; an
// unlocked key is cached in a session file until the session times out.
type MasterKeyManager struct {
	masterKey      []byte
	header         MasterKeyHeader
	keyPath        string
	sessionTimeout time.Duration
	isLocked       bool
	mu             sync.RWMutex
}

func NewMasterKeyManager(keyPath string, sessionTimeout time.Duration) (*MasterKeyManager, error) {
	absPath, err := filepath.Abs(keyPath)
	if err != nil {
		return nil, fmt.Errorf("resolve key path: %w", err)
	}
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}

	m := &MasterKeyManager{
		keyPath:        absPath,
		sessionTimeout: sessionTimeout,
		isLocked:       true,
	}

	if _, err := os.Stat(absPath); err == nil {
		kf, err := m.readKeyFile()
		if err != nil {
			return nil, err
		}
		m.header = kf.Header

		// A stale or missing session simply leaves the key locked.
		_ = m.LoadSession()
	}

	return m, nil
}

// Init creates a new data key protected by passphrase and leaves it unlocked.
func (m *MasterKeyManager) Init(passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.keyPath); err == nil {
		return ErrAlreadyExists
	}

	key, err := GenerateRandomBytes(keyLength)
	if err != nil {
		return err
	}

	if err := m.writeWrapped(key, passphrase, time.Now()); err != nil {
		ClearMemory(key)
		return err
	}

	m.masterKey = key
	m.isLocked = false

	return m.saveSessionLocked()
}

// Unlock unwraps the data key with passphrase.
func (m *MasterKeyManager) Unlock(passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLocked {
		return nil
	}

	kf, err := m.readKeyFile()
	if err != nil {
		return err
	}

	key, err := unwrap(kf, passphrase)
	if err != nil {
		return err
	}

	m.header = kf.Header
	m.masterKey = key
	m.isLocked = false

	return m.saveSessionLocked()
}

// ChangePassphrase rewraps the same data key, so stored records stay readable.
func (m *MasterKeyManager) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kf, err := m.readKeyFile()
	if err != nil {
		return err
	}

	key, err := unwrap(kf, oldPassphrase)
	if err != nil {
		return err
	}
	defer ClearMemory(key)

	return m.writeWrapped(key, newPassphrase, kf.Header.CreatedAt)
}

// Lock wipes the key from memory and removes the session file.
func (m *MasterKeyManager) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ClearMemory(m.masterKey)
	m.masterKey = nil
	m.isLocked = true

	return m.clearSession()
}

func (m *MasterKeyManager) IsLocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isLocked
}

func (m *MasterKeyManager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.header.CreatedAt.IsZero()
}

// Encrypt seals plaintext with the unlocked data key.
func (m *MasterKeyManager) Encrypt(plaintext []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.isLocked {
		return nil, ErrLocked
	}
	return encryptWithKey(m.masterKey, plaintext)
}

func (m *MasterKeyManager) Decrypt(ciphertext []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.isLocked {
		return nil, ErrLocked
	}
	return decryptWithKey(m.masterKey, ciphertext)
}

func (m *MasterKeyManager) writeWrapped(key []byte, passphrase string, createdAt time.Time) error {
	salt, err := GenerateRandomBytes(saltLength)
	if err != nil {
		return err
	}

	kek := deriveKey(passphrase, salt, pbkdf2Iterations)
	defer ClearMemory(kek)

	wrapped, err := encryptWithKey(kek, key)
	if err != nil {
		return fmt.Errorf("wrap key: %w", err)
	}

	header := MasterKeyHeader{
		Version:    keyVersion,
		KDF:        kdfPBKDF2,
		Salt:       hex.EncodeToString(salt),
		Iterations: pbkdf2Iterations,
		CreatedAt:  createdAt,
		UpdatedAt:  time.Now(),
	}

	data, err := json.MarshalIndent(keyFile{Header: header, Data: hex.EncodeToString(wrapped)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.keyPath), 0700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(m.keyPath, data, keyFilePerms); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	m.header = header
	return nil
}

func (m *MasterKeyManager) readKeyFile() (keyFile, error) {
	var kf keyFile

	data, err := os.ReadFile(m.keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return kf, ErrNotInitialized
		}
		return kf, fmt.Errorf("read key file: %w", err)
	}

	if err := json.Unmarshal(data, &kf); err != nil {
		return kf, fmt.Errorf("decode key file: %w", err)
	}

	return kf, nil
}

func unwrap(kf keyFile, passphrase string) ([]byte, error) {
	if kf.Header.KDF != kdfPBKDF2 {
		return nil, fmt.Errorf("unsupported kdf %q", kf.Header.KDF)
	}

	salt, err := hex.DecodeString(kf.Header.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	wrapped, err := hex.DecodeString(kf.Data)
	if err != nil {
		return nil, fmt.Errorf("decode wrapped key: %w", err)
	}

	kek := deriveKey(passphrase, salt, kf.Header.Iterations)
	defer ClearMemory(kek)

	key, err := decryptWithKey(kek, wrapped)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return key, nil
}

func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keyLength, sha256.New)
}
