package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/config"
	"github.com/minios-linux/propkit/i18n"
	"github.com/minios-linux/propkit/locale"
	"github.com/minios-linux/propkit/lockfile"
	"github.com/minios-linux/propkit/propfile"
	"github.com/minios-linux/propkit/resource"
)

// ---------------------------------------------------------------------------
// bundles (read-only: bundle membership + completeness)
// ---------------------------------------------------------------------------

func newBundlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundles",
		Short: "List bundles with their locales and completeness",
		Long: `List every resource bundle under the configured roots. For each
member file the locale, its native name and the share of the default file's
keys that have a non-empty value are shown. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootDir)
			if err != nil {
				return err
			}
			return runBundles(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func runBundles(ctx context.Context, a *app, out io.Writer) error {
	bundles, err := a.bundles(ctx)
	if err != nil {
		return err
	}
	if len(bundles) == 0 {
		log.Info().Msg(i18n.T("No resource bundles found"))
		return nil
	}

	for _, b := range bundles {
		files, err := a.resolver.Files(ctx, b)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s  (%s)\n", b, fmt.Sprintf(i18n.N("%d file", "%d files", len(files)), len(files)))

		def := files[0]
		for _, f := range files {
			loc := locale.Resolve(f.Path())
			name := loc.Locale.String()
			display := loc.Locale.DisplayName()
			if loc.IsDefault() {
				name, display = i18n.T("(default)"), ""
			}
			if loc.Ambiguous {
				display += " ?"
			}
			fmt.Fprintf(out, "  %-10s %-24s %s  %s\n", name, display, progressBar(coverage(def, f), 20), resource.Name(f))
		}
	}
	return nil
}

// coverage is the percentage of def's keys that have a non-empty value in f.
func coverage(def, f resource.File) int {
	props := def.Properties()
	if len(props) == 0 {
		return 100
	}
	keys := map[string]bool{}
	for _, p := range props {
		keys[p.UnescapedKey()] = true
	}
	filled := 0
	for k := range keys {
		if p, ok := resource.First(f, k); ok && p.Value() != "" {
			filled++
		}
	}
	return filled * 100 / len(keys)
}

// ---------------------------------------------------------------------------
// find
// ---------------------------------------------------------------------------

func newFindCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "find KEY",
		Short: "Find a key across files",
		Long: `Print every property with the given (unescaped) key as
path:line: value. Files are visited in path order and properties of one file
in source order. The scope defaults to the whole project.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootDir)
			if err != nil {
				return err
			}
			return runFind(cmd.Context(), a, cmd.OutOrStdout(), scope, args[0])
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", config.ScopeProject, "Scope: file, bundle, module, project")
	return cmd
}

func runFind(ctx context.Context, a *app, out io.Writer, scope, key string) error {
	scopes, err := a.scopes(ctx, scope)
	if err != nil {
		return err
	}
	found := 0
	for _, s := range scopes {
		occ, err := a.index.FindByKey(ctx, s, key)
		if err != nil {
			return err
		}
		for _, o := range occ {
			fmt.Fprintf(out, "%s:%d: %s\n", o.File.Path(), lineOf(o.Property), o.Property.UnescapedValue())
		}
		found += len(occ)
	}
	if found > 0 {
		return nil
	}

	var hints []string
	for _, s := range scopes {
		sugg, err := a.index.Similar(ctx, s, key, 3)
		if err != nil {
			return err
		}
		for _, sg := range sugg {
			if !slices.Contains(hints, sg.Key) {
				hints = append(hints, sg.Key)
			}
		}
	}
	if len(hints) > 0 {
		return errors.New(i18n.Tf("key %q not found, did you mean: %s?", key, strings.Join(hints, ", ")))
	}
	return errors.New(i18n.Tf("key %q not found", key))
}

// ---------------------------------------------------------------------------
// sync (align locale files with the default file)
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	var (
		dryRun bool
		accept bool
		add    []string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Align locale files with the default file",
		Long: `Rewrite every locale file of every bundle so it has exactly the
default file's keys, order and comments. Existing values are kept, new keys
get empty values and keys the default file no longer has are removed.

--add LOCALE creates an empty locale file in every bundle that lacks one.
Only .properties files are rewritten; XML members are left alone.

The default value each translation was made from is recorded in
.propkit.lock so check can report stale translations. Recorded values are
kept across runs; --accept marks every current translation as up to date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootDir)
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), a, add, accept, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report changes without writing")
	cmd.Flags().BoolVar(&accept, "accept", false, "Mark all current translations as up to date")
	cmd.Flags().StringSliceVar(&add, "add", nil, "Create missing locale files (e.g. --add de,fr_CA)")
	return cmd
}

func runSync(ctx context.Context, a *app, add []string, accept, dryRun bool) error {
	bundles, err := a.bundles(ctx)
	if err != nil {
		return err
	}
	lock, err := lockfile.Load(a.root)
	if err != nil {
		return err
	}

	changed := 0
	for _, b := range bundles {
		def, err := a.resolver.Default(ctx, b)
		if errors.Is(err, bundle.ErrEmptyBundle) {
			continue
		}
		if err != nil {
			return err
		}
		src, ok := def.(*propfile.File)
		if !ok || !locale.Resolve(src.Path()).IsDefault() {
			log.Warn().Str("bundle", b.String()).Msg(i18n.T("no default .properties file, skipping"))
			continue
		}

		files, err := a.resolver.Files(ctx, b)
		if err != nil {
			return err
		}
		for _, f := range files[1:] {
			target, ok := f.(*propfile.File)
			if !ok {
				continue
			}
			out := propfile.Sync(src, target)
			recordLock(lock, src, out, accept)
			if out.Content() == target.Content() {
				continue
			}
			if err := a.write(out, dryRun); err != nil {
				return err
			}
			log.Info().Str("file", out.Path()).Msg(i18n.T("updated"))
			changed++
		}

		for _, tag := range add {
			p := path.Join(b.Dir, b.BaseName+"_"+locale.Parse(tag).String()+".properties")
			if _, err := fs.Stat(a.fsys, p); err == nil {
				continue
			}
			if err := a.write(propfile.Skeleton(src, p), dryRun); err != nil {
				return err
			}
			log.Info().Str("file", p).Msg(i18n.T("created"))
			changed++
		}
	}

	log.Info().Msg(fmt.Sprintf(i18n.N("%d file changed", "%d files changed", changed), changed))
	if dryRun {
		return nil
	}
	return lock.Save()
}

// recordLock stores the default values target's translations stand for.
// Empty translations get no record.
func recordLock(lock *lockfile.LockFile, src, target *propfile.File, accept bool) {
	untranslated := map[string]bool{}
	for _, k := range target.EmptyValueKeys() {
		untranslated[k] = true
	}
	lock.Record(target.Path(), src.NamesMap(), untranslated, accept)
}

func (a *app) write(f *propfile.File, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := f.WriteFile(a.osPath(f.Path())); err != nil {
		return err
	}
	a.index.Invalidate(f.Path())
	return nil
}
