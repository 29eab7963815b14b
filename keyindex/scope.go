package keyindex

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/minios-linux/propkit/bundle"
)

// Scope is the set of files a query runs over.
type Scope interface {
	Paths(ctx context.Context) ([]string, error)
}

// ScopeFunc adapts a function to Scope.
type ScopeFunc func(ctx context.Context) ([]string, error)

func (f ScopeFunc) Paths(ctx context.Context) ([]string, error) { return f(ctx) }

// FileScope is a fixed list of files.
func FileScope(paths ...string) Scope {
	return ScopeFunc(func(context.Context) ([]string, error) { return paths, nil })
}

// TreeScope is every properties file under root, dot directories excluded.
// It stands for both module and project scopes; they differ only in root.
func TreeScope(fsys fs.FS, root string) Scope {
	return ScopeFunc(func(ctx context.Context) ([]string, error) {
		var paths []string
		err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
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
			if d.Type().IsRegular() && bundle.IsPropertiesName(d.Name()) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		return paths, nil
	})
}

// BundleScope is the current member list of b. It is recomputed on every
// query.
func BundleScope(r *bundle.Resolver, b bundle.Bundle) Scope {
	return ScopeFunc(func(context.Context) ([]string, error) { return r.FileNames(b) })
}
