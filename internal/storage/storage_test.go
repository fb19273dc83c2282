package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	key, err := NewImageKey("image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipes/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	require.NoError(t, s.Put(context.Background(), key, strings.NewReader("img"), "image/png"))

	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))

	require.NoError(t, s.Delete(context.Background(), key, "recipes/missing.png"))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), "../escape.png", strings.NewReader("x"), "image/png")
	assert.Error(t, err)
}
