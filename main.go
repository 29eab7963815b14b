// Command propkit inspects and maintains Java .properties resource bundles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/config"
	"github.com/minios-linux/propkit/i18n"
	"github.com/minios-linux/propkit/keyindex"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
)

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "propkit",
		Short: "Inspect and maintain .properties resource bundles",
		Long: `propkit reads Java .properties files (and their XML <properties>
siblings), groups them into per-locale resource bundles and checks them.

Commands:
  parse       Show the properties of a file
  escape      Escape text for use as a key or value
  unescape    Decode an escaped key or value
  bundles     List bundles with their locales and completeness
  find        Find a key across files
  check       Report malformed escapes, duplicates and missing keys
  sync        Align locale files with the default file
  watch       Re-check bundles whenever their files change`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), verbose)
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newParseCmd(),
		newEscapeCmd(),
		newUnescapeCmd(),
		newBundlesCmd(),
		newFindCmd(),
		newCheckCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

func setupLogging(w io.Writer, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w}).Level(level)
}

func main() {
	i18n.Init("")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "propkit version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Project wiring
// ---------------------------------------------------------------------------

// app ties the configuration, file system, bundle resolver and key index of
// one project together. The index doubles as the resolver's loader so every
// command shares parsed snapshots.
type app struct {
	root     string
	cfg      *config.File
	fsys     fs.FS
	resolver *bundle.Resolver
	index    *keyindex.Index
}

func newApp(root string) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	fsys := os.DirFS(root)

	ix := keyindex.New(fsys)
	ix.Workers = cfg.Workers

	r := bundle.New(fsys)
	r.Loader = ix
	r.Locales = cfg.Locales()
	r.Workers = cfg.Workers

	return &app{root: root, cfg: cfg, fsys: fsys, resolver: r, index: ix}, nil
}

// rel converts an OS path to a slash path inside the project file system.
func (a *app) rel(p string) (string, error) {
	absRoot, err := filepath.Abs(a.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", p, a.root)
	}
	return filepath.ToSlash(rel), nil
}

// osPath converts a project slash path back to an OS path.
func (a *app) osPath(p string) string {
	return filepath.Join(a.root, filepath.FromSlash(p))
}

// bundles returns every bundle under the configured roots.
func (a *app) bundles(ctx context.Context) ([]bundle.Bundle, error) {
	seen := map[bundle.Bundle]bool{}
	var all []bundle.Bundle
	for _, root := range a.cfg.SlashRoots() {
		found, err := a.resolver.Discover(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, b := range found {
			if !seen[b] {
				seen[b] = true
				all = append(all, b)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })
	return all, nil
}

// scopes splits the project into the query scopes named by name.
func (a *app) scopes(ctx context.Context, name string) ([]keyindex.Scope, error) {
	roots := a.cfg.SlashRoots()
	switch name {
	case config.ScopeBundle:
		bundles, err := a.bundles(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]keyindex.Scope, len(bundles))
		for i, b := range bundles {
			out[i] = keyindex.BundleScope(a.resolver, b)
		}
		return out, nil
	case config.ScopeModule:
		out := make([]keyindex.Scope, len(roots))
		for i, r := range roots {
			out[i] = keyindex.TreeScope(a.fsys, r)
		}
		return out, nil
	case config.ScopeFile, config.ScopeProject:
		var paths []string
		for _, r := range roots {
			p, err := keyindex.TreeScope(a.fsys, r).Paths(ctx)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p...)
		}
		if name == config.ScopeProject {
			return []keyindex.Scope{keyindex.FileScope(paths...)}, nil
		}
		out := make([]keyindex.Scope, len(paths))
		for i, p := range paths {
			out[i] = keyindex.FileScope(p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown scope %q (valid: file, bundle, module, project)", name)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// progressBar renders a colored completion bar followed by the percentage.
func progressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

// readInput joins args, or reads stdin when there are none. A single
// trailing newline from stdin is dropped.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

// errIssues makes the process exit non-zero after issues were printed.
var errIssues = errors.New("issues found")
