// Package bundle groups properties files that share a directory and base
// name into resource bundles, one file per locale.
//
// Membership is never cached: every call rescans the directory, because
// files can be added or removed behind our back. Member order is by file
// name, so identical directory contents always enumerate identically.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/propkit/locale"
	"github.com/minios-linux/propkit/propfile"
	"github.com/minios-linux/propkit/resource"
	"github.com/minios-linux/propkit/xmlprop"
)

// ErrEmptyBundle is returned when a bundle has no member files.
var ErrEmptyBundle = errors.New("resource bundle has no files")

// Bundle identifies a resource bundle. Two bundles are equal iff Dir and
// BaseName are equal, so Bundle can be compared with == and used as a map
// key.
type Bundle struct {
	Dir      string // slash-separated directory within the file system
	BaseName string
}

// Of returns the bundle a file belongs to.
func Of(filePath string) Bundle {
	return Bundle{
		Dir:      path.Dir(filePath),
		BaseName: locale.Resolve(filePath).BaseName,
	}
}

func (b Bundle) String() string { return path.Join(b.Dir, b.BaseName) }

// IsPropertiesName reports whether name has a properties file extension.
func IsPropertiesName(name string) bool {
	for _, ext := range locale.Extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return true
		}
	}
	return false
}

// Parse parses data as the file at p, choosing the format by extension.
// XML that is not a <properties> document yields xmlprop.ErrNotProperties.
func Parse(p string, version uint64, data []byte) (resource.File, error) {
	if strings.HasSuffix(p, ".xml") {
		f, err := xmlprop.ParseAt(p, version, data)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return propfile.ParseAt(p, version, data), nil
}

// Loader loads one file by its path in a file system.
type Loader interface {
	Load(ctx context.Context, path string) (resource.File, error)
}

// FSLoader parses files read directly from FS on every call.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Load(ctx context.Context, p string) (resource.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.FS, p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return Parse(p, 1, data)
}

// Resolver answers bundle queries against a file system.
type Resolver struct {
	FS fs.FS
	// Loader defaults to FSLoader{FS}.
	Loader Loader
	// Locales provides the default locale for Find. Defaults to the
	// environment.
	Locales locale.Provider
	// Workers bounds parallel file loads. Zero means GOMAXPROCS.
	Workers int
}

// New returns a Resolver for fsys with default settings.
func New(fsys fs.FS) *Resolver {
	return &Resolver{FS: fsys}
}

func (r *Resolver) loader() Loader {
	if r.Loader != nil {
		return r.Loader
	}
	return FSLoader{FS: r.FS}
}

func (r *Resolver) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Resolver) defaultLocale() locale.Locale {
	if r.Locales != nil {
		return r.Locales.Default()
	}
	return locale.EnvProvider{}.Default()
}

// FileNames returns the paths of b's members sorted by name.
func (r *Resolver) FileNames(b Bundle) ([]string, error) {
	entries, err := fs.ReadDir(r.FS, b.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", b.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsPropertiesName(e.Name()) {
			continue
		}
		if locale.Resolve(e.Name()).BaseName == b.BaseName {
			names = append(names, path.Join(b.Dir, e.Name()))
		}
	}
	return names, nil
}

// Files loads b's members in name order. XML files that are not
// <properties> documents are skipped.
func (r *Resolver) Files(ctx context.Context, b Bundle) ([]resource.File, error) {
	names, err := r.FileNames(b)
	if err != nil {
		return nil, err
	}

	loaded := make([]resource.File, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, name := range names {
		g.Go(func() error {
			f, err := r.loader().Load(ctx, name)
			if errors.Is(err, xmlprop.ErrNotProperties) {
				log.Debug().Str("file", name).Msg("skipping non-properties XML")
				return nil
			}
			if err != nil {
				return err
			}
			loaded[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := loaded[:0]
	for _, f := range loaded {
		if f != nil {
			files = append(files, f)
		}
	}
	return files, nil
}

func (r *Resolver) members(ctx context.Context, b Bundle) ([]resource.File, error) {
	files, err := r.Files(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", b, ErrEmptyBundle)
	}
	return files, nil
}

// Default returns the member sorting first by name. Conventionally that is
// the file without a locale suffix, but this is not checked.
func (r *Resolver) Default(ctx context.Context, b Bundle) (resource.File, error) {
	files, err := r.members(ctx, b)
	if err != nil {
		return nil, err
	}
	return files[0], nil
}

// Find returns the member for loc. Without an exact match it falls back to
// the first file without a locale suffix or with the default locale, then to
// the first member. A file without a suffix never matches loc exactly, even
// when its stem reads as a locale.
func (r *Resolver) Find(ctx context.Context, b Bundle, loc locale.Locale) (resource.File, error) {
	files, err := r.members(ctx, b)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if res := locale.Resolve(f.Path()); !res.IsDefault() && res.Locale == loc {
			return f, nil
		}
	}
	def := r.defaultLocale()
	for _, f := range files {
		if res := locale.Resolve(f.Path()); res.IsDefault() || res.Locale == def {
			return f, nil
		}
	}
	return files[0], nil
}

// Complete reports whether every member of b defines key.
func (r *Resolver) Complete(ctx context.Context, b Bundle, key string) (bool, error) {
	files, err := r.members(ctx, b)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if len(f.FindByKey(key)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Gap is a key some members of a bundle lack.
type Gap struct {
	Key     string
	Missing []string // member paths in name order
}

// Gaps lists, per key defined anywhere in b, the members that lack it.
// Keys are sorted.
func (r *Resolver) Gaps(ctx context.Context, b Bundle) ([]Gap, error) {
	files, err := r.members(ctx, b)
	if err != nil {
		return nil, err
	}
	keys := map[string]bool{}
	for _, f := range files {
		for _, p := range f.Properties() {
			keys[p.UnescapedKey()] = true
		}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var gaps []Gap
	for _, k := range sorted {
		var missing []string
		for _, f := range files {
			if len(f.FindByKey(k)) == 0 {
				missing = append(missing, f.Path())
			}
		}
		if missing != nil {
			gaps = append(gaps, Gap{Key: k, Missing: missing})
		}
	}
	return gaps, nil
}

// Parent returns the candidate named like name with trailing "_" segments
// removed one at a time: messages_en_US falls back to messages_en, then
// messages. A parent has the same directory and extension as name.
func Parent(name string, candidates []string) (string, bool) {
	byPath := make(map[string]string, len(candidates))
	for _, c := range candidates {
		p := path.Clean(c)
		if _, ok := byPath[p]; !ok {
			byPath[p] = c
		}
	}
	dir, ext := path.Dir(name), path.Ext(name)
	stem := locale.Stem(name)
	for {
		i := strings.LastIndexByte(stem, '_')
		if i < 0 {
			return "", false
		}
		stem = stem[:i]
		if c, ok := byPath[path.Join(dir, stem+ext)]; ok {
			return c, true
		}
	}
}

// ParentFile is Parent over loaded files.
func ParentFile(f resource.File, candidates []resource.File) (resource.File, bool) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Path()
	}
	name, ok := Parent(f.Path(), names)
	if !ok {
		return nil, false
	}
	for _, c := range candidates {
		if c.Path() == name {
			return c, true
		}
	}
	return nil, false
}

// Chain returns f followed by its parents, most specific first.
func Chain(f resource.File, candidates []resource.File) []resource.File {
	chain := []resource.File{f}
	for {
		p, ok := ParentFile(chain[len(chain)-1], candidates)
		if !ok {
			return chain
		}
		chain = append(chain, p)
	}
}

// Discover walks the tree under root and returns every bundle found,
// sorted by directory then base name.
func (r *Resolver) Discover(ctx context.Context, root string) ([]Bundle, error) {
	seen := map[Bundle]bool{}
	err := fs.WalkDir(r.FS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsPropertiesName(d.Name()) {
			return nil
		}
		if strings.HasSuffix(p, ".xml") {
			data, err := fs.ReadFile(r.FS, p)
			if err != nil || !xmlprop.IsProperties(data) {
				return nil
			}
		}
		seen[Of(p)] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	bundles := make([]Bundle, 0, len(seen))
	for b := range seen {
		bundles = append(bundles, b)
	}
	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].Dir != bundles[j].Dir {
			return bundles[i].Dir < bundles[j].Dir
		}
		return bundles[i].BaseName < bundles[j].BaseName
	})
	return bundles, nil
}
