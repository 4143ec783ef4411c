package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHugotEmbedderDiskModelPath(t *testing.T) {
	cacheDir := t.TempDir()
	e := NewHugotEmbedder(cacheDir)

	// Empty cache dir: nothing usable, nothing embedded in test builds.
	_, err := e.diskModelPath()
	require.Error(t, err)
	assert.False(t, e.Available())

	// A subdirectory without tokenizer.json does not count as a model.
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "partial"), 0o755))
	_, err = e.diskModelPath()
	require.Error(t, err)

	modelDir := filepath.Join(cacheDir, "embedding-model")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "tokenizer.json"), []byte("{}"), 0o644))

	got, err := e.diskModelPath()
	require.NoError(t, err)
	assert.Equal(t, modelDir, got)
	assert.True(t, e.Available())
}

func TestHugotEmbedderResolveWithoutModel(t *testing.T) {
	e := NewHugotEmbedder(t.TempDir())
	_, err := e.resolveModelPath()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed_model")
}
