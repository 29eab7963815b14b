package keyindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilar(t *testing.T) {
	ix := New(mapFS(map[string]string{
		"a.properties": "app.titel=x\napp.name=y\n",
		"b.properties": "app.title=z\napp.titel=w\n",
	}))

	got, err := ix.Similar(context.Background(), FileScope("a.properties", "b.properties"), "app.title", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "app.titel", got[0].Key)
	assert.InDelta(t, 1-2.0/9, got[0].Score, 1e-9)

	got, err = ix.Similar(context.Background(), FileScope("a.properties"), "zzz", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
