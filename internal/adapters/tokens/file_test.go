package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Put(context.Background(), DefaultKey, "tok-123"))

	value, err := store.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", value)

	require.NoError(t, store.Delete(context.Background(), DefaultKey))

	_, err = store.Get(context.Background(), DefaultKey)
	require.Error(t, err)
}

func TestFileStoreDeleteMissingIsNoOp(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	assert.NoError(t, store.Delete(context.Background(), DefaultKey))
}

func TestFileStoreRejectsTraversalKeys(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	for _, key := range []string{"", "  ", "../outside", "/absolute", "."} {
		_, err := store.Get(context.Background(), key)
		assert.Error(t, err, "key %q", key)
	}
}
