// Package config loads the .propkit.yaml project configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// .propkit.yaml (or .propkit.toml) in the project root, then PROPKIT_*
// environment variables (a .env file next to the config file is loaded into
// the environment first).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/propkit/locale"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// File is the top-level .propkit.yaml (or .propkit.toml) structure.
type File struct {
	// Roots are the directories scanned for bundles, relative to the
	// project root (default ".").
	Roots []string `yaml:"roots,omitempty" toml:"roots,omitempty"`
	// DefaultLocale is the fallback locale for bundle lookups, e.g. "en_US".
	// Empty means detect it from LANGUAGE/LC_ALL/LC_MESSAGES/LANG.
	DefaultLocale string `yaml:"default_locale,omitempty" toml:"default_locale,omitempty"`
	// Workers bounds parallel file loads (0 = GOMAXPROCS).
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`
	// Scope is the default scope of cross-file checks: file, bundle,
	// module or project.
	Scope string `yaml:"scope,omitempty" toml:"scope,omitempty"`
	// Checks toggles the individual analyses of `propkit check`.
	Checks Checks `yaml:"checks" toml:"checks"`
}

// Checks mirrors the analyses of `propkit check`. The two value analyses
// are off by default: in bundle scope every translated key has values that
// differ across locales.
type Checks struct {
	DuplicateKeys      bool `yaml:"duplicate_keys" toml:"duplicate_keys"`
	DuplicateValues    bool `yaml:"duplicate_values" toml:"duplicate_values"`
	DifferentValues    bool `yaml:"different_values" toml:"different_values"`
	TrailingWhitespace bool `yaml:"trailing_whitespace" toml:"trailing_whitespace"`
	MissingKeys        bool `yaml:"missing_keys" toml:"missing_keys"`
	// StaleTranslations reports locale values whose default value changed
	// since the last sync, as recorded in .propkit.lock.
	StaleTranslations  bool `yaml:"stale_translations" toml:"stale_translations"`
}

// Scope names.
const (
	ScopeFile    = "file"
	ScopeBundle  = "bundle"
	ScopeModule  = "module"
	ScopeProject = "project"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".propkit.yaml"

// TOMLFileName is read when FileName does not exist.
const TOMLFileName = ".propkit.toml"

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Roots: []string{"."},
		Scope: ScopeBundle,
		Checks: Checks{
			DuplicateKeys:      true,
			TrailingWhitespace: true,
			MissingKeys:        true,
			StaleTranslations:  true,
		},
	}
}

// Load builds the configuration for the project in rootDir. A missing
// config file or .env is not an error.
func Load(rootDir string) (*File, error) {
	cfg := Default()

	path, err := cfg.read(rootDir)
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(rootDir, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}
	cfg.applyEnv()

	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// read unmarshals the first existing config file over f and returns its
// path, or the YAML path when there is none.
func (f *File) read(rootDir string) (string, error) {
	decoders := []struct {
		name      string
		unmarshal func([]byte, any) error
	}{
		{FileName, yaml.Unmarshal},
		{TOMLFileName, toml.Unmarshal},
	}
	for _, d := range decoders {
		path := filepath.Join(rootDir, d.name)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			// Unmarshal over the defaults so absent keys keep them.
			if err := d.unmarshal(data, f); err != nil {
				return "", fmt.Errorf("parsing %s: %w", path, err)
			}
			return path, nil
		case errors.Is(err, os.ErrNotExist):
			continue
		default:
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	path := filepath.Join(rootDir, FileName)
	log.Debug().Str("path", path).Msg("no config file, using defaults")
	return path, nil
}

func (f *File) applyEnv() {
	if v := getEnv("PROPKIT_ROOTS", ""); v != "" {
		f.Roots = splitList(v)
	}
	f.DefaultLocale = getEnv("PROPKIT_DEFAULT_LOCALE", f.DefaultLocale)
	f.Scope = getEnv("PROPKIT_SCOPE", f.Scope)
	f.Workers = getEnvInt("PROPKIT_WORKERS", f.Workers)
}

func (f *File) validate() error {
	switch f.Scope {
	case ScopeFile, ScopeBundle, ScopeModule, ScopeProject:
	default:
		return fmt.Errorf("unknown scope %q (valid: file, bundle, module, project)", f.Scope)
	}
	if f.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", f.Workers)
	}
	for _, r := range f.Roots {
		if filepath.IsAbs(r) || strings.HasPrefix(filepath.Clean(r), "..") {
			return fmt.Errorf("root %q must be inside the project", r)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-numeric value")
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Derived settings
// ---------------------------------------------------------------------------

// Locales returns the default-locale provider described by the config.
func (f *File) Locales() locale.Provider {
	if f.DefaultLocale != "" {
		return locale.Fixed(locale.Parse(f.DefaultLocale))
	}
	return locale.SystemProvider{}
}

// SlashRoots returns the roots as clean slash-separated paths for use with
// an fs.FS rooted at the project directory.
func (f *File) SlashRoots() []string {
	out := make([]string, len(f.Roots))
	for i, r := range f.Roots {
		out[i] = filepath.ToSlash(filepath.Clean(r))
	}
	return out
}
