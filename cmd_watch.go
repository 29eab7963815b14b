package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/i18n"
)

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check bundles whenever their files change",
		Long: `Run check once, then watch the configured roots and run it again
whenever a properties file is created, written, renamed or removed. Only
changed files are parsed again. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootDir)
			if err != nil {
				return err
			}
			return a.watch(cmd.Context(), cmd.OutOrStdout(), debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Wait this long after the last change before re-checking")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	for _, root := range a.cfg.SlashRoots() {
		if err := a.addTree(w, a.osPath(root)); err != nil {
			return err
		}
	}

	recheck := func() error {
		issues, err := a.check(ctx)
		if err != nil {
			return err
		}
		if err := report(out, issues); err != nil && !errors.Is(err, errIssues) {
			return err
		}
		return nil
	}
	if err := recheck(); err != nil {
		return err
	}
	log.Info().Msg(i18n.T("Watching for changes"))

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := a.addTree(w, ev.Name); err != nil {
						log.Warn().Err(err).Str("dir", ev.Name).Msg(i18n.T("cannot watch directory"))
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) || !bundle.IsPropertiesName(filepath.Base(ev.Name)) {
				continue
			}
			rel, err := a.rel(ev.Name)
			if err != nil {
				continue
			}
			log.Debug().Str("file", rel).Str("op", ev.Op.String()).Msg("changed")
			a.index.Invalidate(rel)
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg(i18n.T("watcher error"))
		case <-timer.C:
			if err := recheck(); err != nil {
				return err
			}
		}
	}
}

// addTree watches dir and every directory below it except hidden ones.
func (a *app) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
