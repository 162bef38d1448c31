package pipelines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "Containerfile")

	path, err := WriteArtifact("FROM scratch\n", dst)
	require.NoError(t, err)
	assert.Equal(t, dst, path)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch\n", string(b))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DefaultFileMode), info.Mode().Perm())
}

func TestWriteArtifact_Idempotent(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "Containerfile")

	for i := 0; i < 2; i++ {
		_, err := WriteArtifact("FROM registry.access.redhat.com/ubi9/ubi\n", dst)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "Containerfile", entries[0].Name())

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "FROM registry.access.redhat.com/ubi9/ubi\n", string(b))
}

func TestWriteArtifact_OverwriteAndEmpty(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "Containerfile")
	require.NoError(t, os.WriteFile(dst, []byte("FROM old\nRUN a very long previous line\n"), 0o644))

	_, err := WriteArtifact("", dst)
	require.NoError(t, err)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestWriteArtifact_CreatesParent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "workspace", "Containerfile")

	_, err := WriteArtifact("FROM scratch\n", dst)
	require.NoError(t, err)
	assert.FileExists(t, dst)
}

func TestWriteArtifact_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	dst := filepath.Join(blocker, "Containerfile")
	_, err := WriteArtifact("FROM scratch\n", dst)

	var artifactErr *ArtifactError
	require.ErrorAs(t, err, &artifactErr)
	assert.Equal(t, dst, artifactErr.Path)
	assert.Contains(t, artifactErr.Error(), dst)
}
