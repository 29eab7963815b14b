// Package keyindex caches parsed properties files by content version and
// answers key queries across a scope of files: find-by-key and the three
// duplicate analyses.
//
// Every file's snapshot is immutable; its key multimap is built once per
// snapshot. The index only tracks which snapshot is current for a path.
// Callers own invalidation: call Invalidate (or Update) when a file
// changes, or rely on Load comparing content digests.
package keyindex

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/resource"
	"github.com/minios-linux/propkit/xmlprop"
)

type entry struct {
	version uint64
	digest  [sha256.Size]byte
	file    resource.File // nil after Invalidate
}

// Ordering compares two file paths. Cross-file results follow it.
type Ordering func(a, b string) int

// ByPath orders files by path, byte-wise.
var ByPath Ordering = strings.Compare

// Index maps paths in a file system to their current snapshot.
type Index struct {
	fsys fs.FS

	// Order sorts files of a scope before aggregation. Defaults to ByPath.
	Order Ordering
	// Workers bounds parallel loads. Zero means GOMAXPROCS.
	Workers int

	mu      sync.RWMutex
	entries map[string]*entry
	loads   singleflight.Group
}

var _ bundle.Loader = (*Index)(nil)

// New returns an empty index over fsys.
func New(fsys fs.FS) *Index {
	return &Index{fsys: fsys, entries: make(map[string]*entry)}
}

// FS returns the file system the index reads from.
func (ix *Index) FS() fs.FS { return ix.fsys }

// Load returns the current snapshot of path, rereading its bytes. The cached
// snapshot is kept if the content is unchanged; otherwise a new snapshot is
// parsed with the next version. Concurrent loads of one path share a single
// read and parse.
func (ix *Index) Load(ctx context.Context, path string) (resource.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, _ := ix.loads.Do(path, func() (any, error) {
		data, err := fs.ReadFile(ix.fsys, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return ix.store(path, data)
	})
	if err != nil {
		return nil, err
	}
	return v.(resource.File), nil
}

// Update installs data as the new content of path without touching the file
// system, as an editor buffer would.
func (ix *Index) Update(path string, data []byte) (resource.File, error) {
	return ix.store(path, data)
}

func (ix *Index) store(path string, data []byte) (resource.File, error) {
	digest := sha256.Sum256(data)

	ix.mu.RLock()
	e := ix.entries[path]
	if e != nil && e.file != nil && e.digest == digest {
		ix.mu.RUnlock()
		return e.file, nil
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	e = ix.entries[path]
	if e != nil && e.file != nil && e.digest == digest {
		return e.file, nil
	}
	var version uint64 = 1
	if e != nil {
		version = e.version + 1
	}
	f, err := bundle.Parse(path, version, data)
	if err != nil {
		return nil, err
	}
	ix.entries[path] = &entry{version: version, digest: digest, file: f}
	log.Debug().Str("file", path).Uint64("version", version).Msg("indexed")
	return f, nil
}

// Invalidate drops the snapshot of path. The next Load reparses it with a
// higher version.
func (ix *Index) Invalidate(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if e := ix.entries[path]; e != nil {
		e.file = nil
	}
}

// Version returns the content version of path, or 0 if it was never
// loaded.
func (ix *Index) Version(path string) uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e := ix.entries[path]; e != nil {
		return e.version
	}
	return 0
}

// Cached returns the current snapshot of path without reading it.
func (ix *Index) Cached(path string) (resource.File, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e := ix.entries[path]; e != nil && e.file != nil {
		return e.file, true
	}
	return nil, false
}

func (ix *Index) ordering() Ordering {
	if ix.Order != nil {
		return ix.Order
	}
	return ByPath
}

// Files loads every file of scope in scope order. XML files that are not
// <properties> documents are skipped.
func (ix *Index) Files(ctx context.Context, scope Scope) ([]resource.File, error) {
	paths, err := scope.Paths(ctx)
	if err != nil {
		return nil, err
	}
	paths = slices.Clone(paths)
	slices.SortStableFunc(paths, ix.ordering())

	loaded := make([]resource.File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if ix.Workers > 0 {
		g.SetLimit(ix.Workers)
	} else {
		g.SetLimit(runtime.GOMAXPROCS(0))
	}
	for i, p := range paths {
		g.Go(func() error {
			f, err := ix.Load(ctx, p)
			if errors.Is(err, xmlprop.ErrNotProperties) {
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
	return slices.DeleteFunc(loaded, func(f resource.File) bool { return f == nil }), nil
}

// Occurrence is a property found in a file.
type Occurrence struct {
	File     resource.File
	Property resource.Property
}

// FindByKey returns every property with key in scope: files in scope order,
// properties of one file in source order.
func (ix *Index) FindByKey(ctx context.Context, scope Scope, key string) ([]Occurrence, error) {
	files, err := ix.Files(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []Occurrence
	for _, f := range files {
		for _, p := range f.FindByKey(key) {
			out = append(out, Occurrence{File: f, Property: p})
		}
	}
	return out, nil
}
