package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extprocbench/internal/apperr"
)

func TestWriteProducesReadableArtifact(t *testing.T) {
	dir := t.TempDir()
	samples := []int64{1_000_000, 2_000_000, 3_000_000}

	require.NoError(t, Write(dir, 2, 150, samples))

	data, err := os.ReadFile(filepath.Join(dir, "stage-0002-rate-150.json"))
	require.NoError(t, err)

	var got []int64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, samples, got)
}

func TestWriteLeavesNoStrayTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, 0, 1, []int64{1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stage-0000-rate-1.json", entries[0].Name())
}

func TestCheckDirRejectsMissingDirectory(t *testing.T) {
	err := CheckDir(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.ErrorIs(t, err, apperr.ErrSinkFailure)
}

func TestCheckDirRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := CheckDir(file)
	assert.ErrorIs(t, err, apperr.ErrSinkFailure)
}
