package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/i18n"
	"github.com/minios-linux/propkit/keyindex"
	"github.com/minios-linux/propkit/lockfile"
	"github.com/minios-linux/propkit/propfile"
	"github.com/minios-linux/propkit/resource"
)

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

// issue is one line of `propkit check` output.
type issue struct {
	Path string
	Line int
	Kind string
	Msg  string
}

func (i issue) String() string {
	return fmt.Sprintf("%s:%d: [%s] %s", i.Path, i.Line, i.Kind, i.Msg)
}

func newCheckCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report malformed escapes, duplicates and missing keys",
		Long: `Check every properties file under the configured roots.

Per file: malformed \uXXXX escapes, lines without a key and (when enabled)
trailing whitespace in keys and values.

Per scope: keys defined twice in one file, values shared by several
properties and keys with differing values. The scope (file, bundle, module,
project) comes from .propkit.yaml unless --scope is given.

Per bundle: keys some locale files lack.

Exits non-zero when any issue is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootDir)
			if err != nil {
				return err
			}
			if scope != "" {
				a.cfg.Scope = scope
			}
			issues, err := a.check(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), issues)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "Scope of cross-file checks: file, bundle, module, project")
	return cmd
}

func report(out io.Writer, issues []issue) error {
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s%s%s\n", colorGreen, i18n.T("No issues found"), colorReset)
		return nil
	}
	for _, is := range issues {
		fmt.Fprintln(out, is)
	}
	fmt.Fprintf(out, "%s%s%s\n", colorRed, fmt.Sprintf(i18n.N("%d issue", "%d issues", len(issues)), len(issues)), colorReset)
	return errIssues
}

// check runs every enabled analysis and returns the issues sorted by path
// and line.
func (a *app) check(ctx context.Context) ([]issue, error) {
	var issues []issue

	scopes, err := a.scopes(ctx, a.cfg.Scope)
	if err != nil {
		return nil, err
	}

	// Per-file checks run over the union of all scopes.
	seen := map[string]bool{}
	for _, s := range scopes {
		files, err := a.index.Files(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			pf, ok := f.(*propfile.File)
			if !ok || seen[pf.Path()] {
				continue
			}
			seen[pf.Path()] = true
			issues = append(issues, a.fileIssues(pf)...)
		}
	}

	checks := keyindex.Checks{
		DuplicateKeys:   a.cfg.Checks.DuplicateKeys,
		DuplicateValues: a.cfg.Checks.DuplicateValues,
		DifferentValues: a.cfg.Checks.DifferentValues,
	}
	if checks != (keyindex.Checks{}) {
		for _, s := range scopes {
			findings, err := a.index.Duplicates(ctx, s, checks)
			if err != nil {
				return nil, err
			}
			for _, fd := range findings {
				issues = append(issues, findingIssues(fd)...)
			}
		}
	}

	if a.cfg.Checks.MissingKeys {
		bundles, err := a.bundles(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range bundles {
			gaps, err := a.resolver.Gaps(ctx, b)
			if errors.Is(err, bundle.ErrEmptyBundle) {
				continue
			}
			if err != nil {
				return nil, err
			}
			for _, g := range gaps {
				for _, p := range g.Missing {
					issues = append(issues, issue{Path: p, Kind: "missing-key", Msg: i18n.Tf("key %q is missing", g.Key)})
				}
			}
		}
	}

	if a.cfg.Checks.StaleTranslations {
		stale, err := a.staleIssues(ctx)
		if err != nil {
			return nil, err
		}
		issues = append(issues, stale...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Kind < issues[j].Kind
	})
	return issues, nil
}

func (a *app) fileIssues(f *propfile.File) []issue {
	var out []issue
	for _, d := range f.Diagnostics() {
		kind := "syntax"
		if errors.Is(d.Err, propfile.ErrMalformedEscape) {
			kind = "malformed-escape"
		}
		out = append(out, issue{Path: f.Path(), Line: d.Line, Kind: kind, Msg: d.Err.Error()})
	}
	if a.cfg.Checks.TrailingWhitespace {
		for _, ts := range f.TrailingSpaces() {
			where := i18n.T("key")
			if ts.InValue {
				where = i18n.T("value")
			}
			out = append(out, issue{
				Path: f.Path(),
				Line: ts.Property.Line(),
				Kind: "trailing-whitespace",
				Msg:  i18n.Tf("trailing whitespace in %s of %q", where, ts.Property.UnescapedKey()),
			})
		}
	}
	return out
}

// staleIssues reports translations whose default value changed since the
// value recorded in the lock file.
func (a *app) staleIssues(ctx context.Context) ([]issue, error) {
	lock, err := lockfile.Load(a.root)
	if err != nil {
		return nil, err
	}
	if targets, _ := lock.Stats(); targets == 0 {
		return nil, nil
	}

	bundles, err := a.bundles(ctx)
	if err != nil {
		return nil, err
	}
	var out []issue
	for _, b := range bundles {
		files, err := a.resolver.Files(ctx, b)
		if err != nil {
			return nil, err
		}
		if len(files) < 2 {
			continue
		}
		def := files[0]
		for _, f := range files[1:] {
			seen := map[string]bool{}
			for _, p := range def.Properties() {
				key := p.UnescapedKey()
				if seen[key] {
					continue
				}
				seen[key] = true
				q, ok := resource.First(f, key)
				if !ok || q.Value() == "" || !lock.IsStale(f.Path(), key, p.Value()) {
					continue
				}
				out = append(out, issue{
					Path: f.Path(),
					Line: lineOf(q),
					Kind: "stale-translation",
					Msg:  i18n.Tf("default value of %q changed since the last sync", key),
				})
			}
		}
	}
	return out, nil
}

// findingIssues reports a finding once per occurrence so each location is
// listed on its own line.
func findingIssues(fd keyindex.Finding) []issue {
	locs := make([]string, len(fd.Occurrences))
	for i, o := range fd.Occurrences {
		locs[i] = fmt.Sprintf("%s:%d", o.File.Path(), lineOf(o.Property))
	}

	var msg string
	switch fd.Kind {
	case keyindex.DuplicateKey:
		msg = i18n.Tf("key %q is defined %d times", fd.Key, len(fd.Occurrences))
	case keyindex.DuplicateValue:
		msg = i18n.Tf("value %q is shared by %d properties", fd.Value, len(fd.Occurrences))
	case keyindex.KeyDifferentValues:
		msg = i18n.Tf("key %q has different values", fd.Key)
	}

	out := make([]issue, len(fd.Occurrences))
	for i, o := range fd.Occurrences {
		others := append(append([]string{}, locs[:i]...), locs[i+1:]...)
		out[i] = issue{
			Path: o.File.Path(),
			Line: lineOf(o.Property),
			Kind: fd.Kind.String(),
			Msg:  msg + " (" + i18n.T("also at") + " " + strings.Join(others, ", ") + ")",
		}
	}
	return out
}
