package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	abs, err := CleanPath("reports/out.csv")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	_, err = CleanPath("../etc/passwd")
	assert.Error(t, err)

	_, err = CleanPath("")
	assert.Error(t, err)

	// dots inside a name are not traversal
	_, err = CleanPath("reports/v1..2.csv")
	assert.NoError(t, err)
}

func TestJoinPath(t *testing.T) {
	base := t.TempDir()

	p, err := JoinPath(base, "exports", "docs.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "exports", "docs.csv"), p)

	_, err = ValidatePath(filepath.Join(base+"-other", "x"), base)
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	require.NoError(t, WriteFileAtomic(path, []byte("{}"), FilePermissionSecure, DirPermissionSecure))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermissionSecure), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
