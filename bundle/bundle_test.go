package bundle

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/propkit/locale"
	"github.com/minios-linux/propkit/resource"
)

func testFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		"res/messages.properties":       file("a=1\nb=2\n"),
		"res/messages_en.properties":    file("a=one\n"),
		"res/messages_en_US.properties": file("a=uno\nb=dos\n"),
		"res/other.xml":                 file("<project/>"),
		"res/other_de.xml":              file(`<properties><entry key="a">eins</entry></properties>`),
		"res/pom.xml":                   file("<project/>"),
		"res/notes.txt":                 file("a=1"),
		"res/sub/labels_fr.properties":  file("ok=oui\n"),
		".git/cache.properties":         file("x=y\n"),
	}
}

func paths(files []resource.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path()
	}
	return out
}

func TestOf(t *testing.T) {
	b := Of("res/messages_en_US.properties")
	assert.Equal(t, Bundle{Dir: "res", BaseName: "messages"}, b)
	assert.True(t, b == Of("res/messages.properties"))
	assert.False(t, b == Of("other/messages.properties"))
	assert.Equal(t, "res/messages", b.String())
}

func TestFileNames(t *testing.T) {
	r := New(testFS())
	names, err := r.FileNames(Bundle{Dir: "res", BaseName: "messages"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"res/messages.properties",
		"res/messages_en.properties",
		"res/messages_en_US.properties",
	}, names)
}

func TestFilesSkipsForeignXML(t *testing.T) {
	r := New(testFS())
	files, err := r.Files(context.Background(), Bundle{Dir: "res", BaseName: "other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"res/other_de.xml"}, paths(files))
	assert.Equal(t, resource.KindXML, files[0].Kind())
}

func TestFilesIsLive(t *testing.T) {
	fsys := testFS()
	r := New(fsys)
	b := Bundle{Dir: "res", BaseName: "messages"}

	files, err := r.Files(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, files, 3)

	fsys["res/messages_ru.properties"] = &fstest.MapFile{Data: []byte("a=один\n")}
	files, err = r.Files(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestDefault(t *testing.T) {
	r := New(testFS())
	f, err := r.Default(context.Background(), Bundle{Dir: "res", BaseName: "messages"})
	require.NoError(t, err)
	assert.Equal(t, "res/messages.properties", f.Path())

	_, err = r.Default(context.Background(), Bundle{Dir: "res", BaseName: "missing"})
	assert.True(t, errors.Is(err, ErrEmptyBundle), "err = %v", err)
}

func TestFind(t *testing.T) {
	r := New(testFS())
	r.Locales = locale.Fixed(locale.Locale{Language: "de"})
	ctx := context.Background()
	msgs := Bundle{Dir: "res", BaseName: "messages"}

	f, err := r.Find(ctx, msgs, locale.Locale{Language: "en", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "res/messages_en_US.properties", f.Path())

	f, err = r.Find(ctx, msgs, locale.Locale{Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "res/messages.properties", f.Path(), "falls back to the no-language file")

	f, err = r.Find(ctx, Bundle{Dir: "res", BaseName: "other"}, locale.Locale{Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "res/other_de.xml", f.Path(), "falls back to the default locale")

	r.Locales = locale.Fixed(locale.Locale{Language: "ja"})
	f, err = r.Find(ctx, Bundle{Dir: "res/sub", BaseName: "labels"}, locale.Locale{Language: "es"})
	require.NoError(t, err)
	assert.Equal(t, "res/sub/labels_fr.properties", f.Path(), "falls back to the first member")

	_, err = r.Find(ctx, Bundle{Dir: "res", BaseName: "missing"}, locale.Root)
	assert.True(t, errors.Is(err, ErrEmptyBundle))
}

func TestFindWithUnderscoreInBaseName(t *testing.T) {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	r := New(fstest.MapFS{
		"app_messages.properties":    file("a=1\n"),
		"app_messages_de.properties": file("a=eins\n"),
	})
	r.Locales = locale.Fixed(locale.Locale{Language: "de"})
	ctx := context.Background()
	b := Bundle{Dir: ".", BaseName: "app_messages"}

	f, err := r.Find(ctx, b, locale.Locale{Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "app_messages.properties", f.Path(), "falls back to the file without a suffix")

	f, err = r.Find(ctx, b, locale.Locale{Language: "messages"})
	require.NoError(t, err)
	assert.Equal(t, "app_messages.properties", f.Path())

	f, err = r.Find(ctx, b, locale.Locale{Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, "app_messages_de.properties", f.Path())
}

func TestCompleteAndGaps(t *testing.T) {
	r := New(testFS())
	ctx := context.Background()
	msgs := Bundle{Dir: "res", BaseName: "messages"}

	ok, err := r.Complete(ctx, msgs, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Complete(ctx, msgs, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	gaps, err := r.Gaps(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, []Gap{{Key: "b", Missing: []string{"res/messages_en.properties"}}}, gaps)
}

func TestParent(t *testing.T) {
	candidates := []string{"messages.properties", "messages_en.properties", "messages_en_US.properties"}

	p, ok := Parent("messages_en_US.properties", candidates)
	assert.True(t, ok)
	assert.Equal(t, "messages_en.properties", p)

	p, ok = Parent("messages_en.properties", candidates)
	assert.True(t, ok)
	assert.Equal(t, "messages.properties", p)

	_, ok = Parent("messages.properties", candidates)
	assert.False(t, ok)

	p, ok = Parent("messages_en_US.properties", []string{"messages.properties"})
	assert.True(t, ok, "skips missing intermediate levels")
	assert.Equal(t, "messages.properties", p)

	_, ok = Parent("messages_en.properties", []string{"messages.xml", "other/messages.properties"})
	assert.False(t, ok, "parent needs the same extension and directory")

	p, ok = Parent("res/messages_en.xml", []string{"res/messages.properties", "res/messages.xml"})
	assert.True(t, ok)
	assert.Equal(t, "res/messages.xml", p)
}

func TestChain(t *testing.T) {
	r := New(testFS())
	files, err := r.Files(context.Background(), Bundle{Dir: "res", BaseName: "messages"})
	require.NoError(t, err)

	chain := Chain(files[2], files)
	assert.Equal(t, []string{
		"res/messages_en_US.properties",
		"res/messages_en.properties",
		"res/messages.properties",
	}, paths(chain))
}

func TestDiscover(t *testing.T) {
	r := New(testFS())
	bundles, err := r.Discover(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, []Bundle{
		{Dir: "res", BaseName: "messages"},
		{Dir: "res", BaseName: "other"},
		{Dir: "res/sub", BaseName: "labels"},
	}, bundles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Discover(ctx, ".")
	assert.ErrorIs(t, err, context.Canceled)
}
