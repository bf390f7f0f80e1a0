package utils_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/termspill/internal/utils"
)

func TestTempFile(t *testing.T) {
	dir := t.TempDir()

	path, err := utils.TempFile(dir, "termspill-test-*.bin")
	require.NoError(t, err)
	assert.True(t, utils.FileExists(path))
	assert.Equal(t, dir, filepath.Dir(path))

	other, err := utils.TempFile(dir, "termspill-test-*.bin")
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()

	path, err := utils.TempFile(dir, "gone-*.bin")
	require.NoError(t, err)

	require.NoError(t, utils.RemoveIfExists(path))
	assert.False(t, utils.FileExists(path))

	// Removing a missing file is not an error.
	assert.NoError(t, utils.RemoveIfExists(path))
}

func TestEnsureDir(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, utils.EnsureDir(nested))

	result := utils.CheckDirStatus(nested)
	assert.True(t, result.Exists)
	assert.True(t, result.Writable)
}
