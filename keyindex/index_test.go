package keyindex

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/resource"
)

func mapFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

func TestLoadVersions(t *testing.T) {
	fsys := mapFS(map[string]string{"a.properties": "k=v\n"})
	ix := New(fsys)
	ctx := context.Background()

	f1, err := ix.Load(ctx, "a.properties")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f1.Version())

	f2, err := ix.Load(ctx, "a.properties")
	require.NoError(t, err)
	assert.Same(t, f1, f2, "unchanged content keeps the snapshot")

	fsys["a.properties"] = &fstest.MapFile{Data: []byte("k=changed\n")}
	f3, err := ix.Load(ctx, "a.properties")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f3.Version())
	p, _ := resource.First(f3, "k")
	assert.Equal(t, "changed", p.UnescapedValue())

	ix.Invalidate("a.properties")
	_, ok := ix.Cached("a.properties")
	assert.False(t, ok)
	f4, err := ix.Load(ctx, "a.properties")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f4.Version())
	assert.Equal(t, uint64(3), ix.Version("a.properties"))
	assert.Equal(t, uint64(0), ix.Version("missing.properties"))

	_, err = ix.Load(ctx, "missing.properties")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	ix := New(mapFS(nil))
	f, err := ix.Update("buf.properties", []byte("a=1\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Version())

	f, err = ix.Update("buf.properties", []byte("a=2\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Version())

	cached, ok := ix.Cached("buf.properties")
	require.True(t, ok)
	assert.Same(t, f, cached)
}

func TestConcurrentLoadsShareSnapshot(t *testing.T) {
	ix := New(mapFS(map[string]string{"a.properties": "k=v\nk=w\n"}))
	ctx := context.Background()

	const n = 32
	got := make([]resource.File, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := ix.Load(ctx, "a.properties")
			if err == nil {
				got[i] = f
				f.FindByKey("k")
			}
		}()
	}
	wg.Wait()

	for _, f := range got {
		require.NotNil(t, f)
		assert.Same(t, got[0], f)
	}
	assert.Equal(t, uint64(1), ix.Version("a.properties"))
}

func TestFindByKeyOrdering(t *testing.T) {
	ix := New(mapFS(map[string]string{
		"b.properties": "k=from b\n",
		"a.properties": "k=first a\nother=x\nk=second a\n",
		"c.xml":        `<properties><entry key="k">from c</entry></properties>`,
		"d.xml":        "<project/>",
	}))
	scope := FileScope("c.xml", "b.properties", "d.xml", "a.properties")

	occ, err := ix.FindByKey(context.Background(), scope, "k")
	require.NoError(t, err)
	var values []string
	for _, o := range occ {
		values = append(values, o.Property.UnescapedValue())
	}
	assert.Equal(t, []string{"first a", "second a", "from b", "from c"}, values)

	ix.Order = func(a, b string) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	}
	occ, err = ix.FindByKey(context.Background(), scope, "k")
	require.NoError(t, err)
	assert.Equal(t, "from c", occ[0].Property.UnescapedValue())
}

func TestScopes(t *testing.T) {
	fsys := mapFS(map[string]string{
		"mod/messages.properties":    "a=1\n",
		"mod/messages_de.properties": "a=eins\n",
		"mod/sub/x.properties":       "a=x\n",
		"mod/.hidden/y.properties":   "a=y\n",
		"mod/readme.md":              "a=z\n",
		"other/z.properties":         "a=z\n",
	})
	ctx := context.Background()

	paths, err := TreeScope(fsys, "mod").Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mod/messages.properties", "mod/messages_de.properties", "mod/sub/x.properties"}, paths)

	r := bundle.New(fsys)
	paths, err = BundleScope(r, bundle.Bundle{Dir: "mod", BaseName: "messages"}).Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mod/messages.properties", "mod/messages_de.properties"}, paths)
}

func TestIndexAsBundleLoader(t *testing.T) {
	fsys := mapFS(map[string]string{"messages.properties": "a=1\n", "messages_fr.properties": "a=un\n"})
	ix := New(fsys)
	r := bundle.New(fsys)
	r.Loader = ix

	files, err := r.Files(context.Background(), bundle.Bundle{Dir: ".", BaseName: "messages"})
	require.NoError(t, err)
	require.Len(t, files, 2)
	cached, ok := ix.Cached("messages_fr.properties")
	require.True(t, ok)
	assert.Same(t, cached, files[1])
}
