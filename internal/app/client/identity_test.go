package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childhealth/internal/app/client/syncer"
)

func TestIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")

	f, err := NewIdentityFile(path)
	require.NoError(t, err)

	_, ok := f.Identity()
	assert.False(t, ok)

	id := syncer.Identity{Name: "Asha Rao", OwnerID: "owner-1", EmployeeID: "EMP-7", AuthToken: "tok"}
	require.NoError(t, f.Save(id))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewIdentityFile(path)
	require.NoError(t, err)
	got, ok := reopened.Identity()
	require.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, reopened.Clear())
	_, ok = reopened.Identity()
	assert.False(t, ok)
	assert.NoFileExists(t, path)

	assert.NoError(t, reopened.Clear(), "clearing twice is fine")
}

func TestIdentityFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	f, err := NewIdentityFile(path)
	require.NoError(t, err)

	_, ok := f.Identity()
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}
