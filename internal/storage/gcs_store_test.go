package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPosterKey(t *testing.T) {
	key := posterKey("Banner.PNG")
	require.True(t, strings.HasPrefix(key, posterPrefix))
	require.True(t, strings.HasSuffix(key, ".png"))
	require.NotEqual(t, key, posterKey("Banner.PNG"))

	require.False(t, strings.Contains(posterKey("noext"), "."))
}

func TestPublicURL(t *testing.T) {
	require.Equal(t, "https://cdn.example.com/posters/a.png", publicURL("bucket", "cdn.example.com", "posters/a.png"))
	require.Equal(t, "https://storage.googleapis.com/bucket/posters/a.png", publicURL("bucket", "", "posters/a.png"))
}

func TestDisabledStore(t *testing.T) {
	store := NewDisabledStore()
	_, err := store.Upload(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrStoreDisabled)
	require.NoError(t, store.Delete(context.Background(), "posters/a.png"))
}
