package crypto

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterKeyManager_SessionLifecycle(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "master.key")
	key := []byte("0123456789abcdef0123456789abcdef")

	m := &MasterKeyManager{
		keyPath:        keyPath,
		masterKey:      append([]byte(nil), key...),
		sessionTimeout: time.Minute,
		isLocked:       false,
	}

	t.Run("SaveSession", func(t *testing.T) {
		require.NoError(t, m.SaveSession())

		info, err := os.Stat(m.getSessionPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(sessionPermissions), info.Mode().Perm())

		raw, err := os.ReadFile(m.getSessionPath())
		require.NoError(t, err)
		assert.NotContains(t, string(raw), string(key))
	})

	t.Run("LoadSession", func(t *testing.T) {
		m.masterKey = nil
		m.isLocked = true

		require.NoError(t, m.LoadSession())
		assert.False(t, m.isLocked)
		assert.Equal(t, key, m.masterKey)
	})

	t.Run("clearSession", func(t *testing.T) {
		require.NoError(t, m.clearSession())

		_, err := os.Stat(m.getSessionPath())
		assert.True(t, os.IsNotExist(err))
		assert.NoError(t, m.clearSession())
	})
}

func TestMasterKeyManager_LoadSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, m *MasterKeyManager)
		wantErr error
	}{
		{
			name:  "missing",
			setup: func(*testing.T, *MasterKeyManager) {},
		},
		{
			name: "expired",
			setup: func(t *testing.T, m *MasterKeyManager) {
				m.sessionTimeout = -time.Second
				m.masterKey = []byte("0123456789abcdef0123456789abcdef")
				m.isLocked = false
				require.NoError(t, m.SaveSession())
				m.masterKey = nil
				m.isLocked = true
			},
			wantErr: ErrSessionExpired,
		},
		{
			name: "corrupt",
			setup: func(t *testing.T, m *MasterKeyManager) {
				require.NoError(t, os.WriteFile(m.getSessionPath(), []byte(`{"key":"00","data":"zz"}`), 0600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MasterKeyManager{keyPath: filepath.Join(t.TempDir(), "key"), isLocked: true}
			tt.setup(t, m)

			err := m.LoadSession()

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, m.isLocked)
			_, statErr := os.Stat(m.getSessionPath())
			assert.True(t, os.IsNotExist(statErr), "broken session must be removed")
		})
	}
}

func TestMasterKeyManager_SaveSession_Locked(t *testing.T) {
	m := &MasterKeyManager{isLocked: true}
	assert.ErrorIs(t, m.SaveSession(), ErrLocked)
}
