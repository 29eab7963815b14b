package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/propkit/bundle"
	"github.com/minios-linux/propkit/escape"
	"github.com/minios-linux/propkit/i18n"
	"github.com/minios-linux/propkit/locale"
	"github.com/minios-linux/propkit/propfile"
	"github.com/minios-linux/propkit/resource"
)

// ---------------------------------------------------------------------------
// parse
// ---------------------------------------------------------------------------

type propertyView struct {
	Line  int    `yaml:"line,omitempty"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	Raw   string `yaml:"raw,omitempty"`
	Doc   string `yaml:"doc,omitempty"`
}

type fileView struct {
	Path       string         `yaml:"path"`
	Format     string         `yaml:"format"`
	Locale     string         `yaml:"locale,omitempty"`
	Properties []propertyView `yaml:"properties"`
}

func newParseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Show the properties of a file",
		Long: `Parse .properties or XML properties files and print every property
with its line, unescaped key and value, and doc comment.

Malformed \uXXXX escapes and lines without a key are reported as warnings;
parsing always continues.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			views := make([]fileView, 0, len(args))
			for _, path := range args {
				v, err := parseForDisplay(path)
				if err != nil {
					return err
				}
				views = append(views, v)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return err
				}
				return enc.Close()
			case "text":
				for _, v := range views {
					fmt.Fprintf(out, "# %s (%s)\n", v.Path, v.Format)
					for _, p := range v.Properties {
						fmt.Fprintf(out, "%d\t%q = %q\n", p.Line, p.Key, p.Value)
					}
				}
				return nil
			}
			return fmt.Errorf("unknown format %q (valid: text, yaml)", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, yaml")
	return cmd
}

func parseForDisplay(path string) (fileView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileView{}, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := bundle.Parse(filepath.ToSlash(path), 1, data)
	if err != nil {
		return fileView{}, err
	}

	v := fileView{Path: f.Path(), Format: f.Kind().String()}
	if pf, ok := f.(*propfile.File); ok {
		for _, d := range pf.Diagnostics() {
			log.Warn().Str("file", path).Int("line", d.Line).Msg(d.Err.Error())
		}
	}
	v.Locale = locale.Of(f.Path()).String()
	for _, p := range f.Properties() {
		pv := propertyView{Line: lineOf(p), Key: p.UnescapedKey(), Value: p.UnescapedValue()}
		if p.Value() != pv.Value {
			pv.Raw = p.Value()
		}
		pv.Doc, _ = p.DocComment()
		v.Properties = append(v.Properties, pv)
	}
	return v, nil
}

// lineOf returns the source line of p when the format tracks it.
func lineOf(p resource.Property) int {
	if l, ok := p.(interface{ Line() int }); ok {
		return l.Line()
	}
	return 0
}

// ---------------------------------------------------------------------------
// escape / unescape
// ---------------------------------------------------------------------------

func newEscapeCmd() *cobra.Command {
	var key bool

	cmd := &cobra.Command{
		Use:   "escape [TEXT...]",
		Short: "Escape text for use as a key or value",
		Long: `Escape text the way it must be written in a .properties file.
Arguments are joined with spaces; without arguments stdin is read.

Values get leading whitespace, '#', '!', '=', ':' and line breaks escaped,
and non-ASCII characters written as \uXXXX. A backslash followed by 'n' is
kept as is. With --key, separators and whitespace are escaped anywhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if key {
				fmt.Fprintln(cmd.OutOrStdout(), escape.EscapeKey(in))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), escape.Escape(in))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&key, "key", "k", false, "Escape as a key instead of a value")
	return cmd
}

func newUnescapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unescape [TEXT...]",
		Short: "Decode an escaped key or value",
		Long: `Decode \uXXXX, \t, \n, \r, \f, escaped characters and line
continuations. Arguments are joined with spaces; without arguments stdin is
read. Malformed escapes are kept literally and reported as a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out, ok := escape.Unescape(in)
			if !ok {
				log.Warn().Msg(i18n.T("input contains a malformed \\uXXXX escape"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
