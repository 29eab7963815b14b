package locale

import (
	"os"
	"strings"

	golocale "github.com/jeandeaual/go-locale"
)

// Provider supplies the current default locale. It is consulted only as a
// tie-break when looking up a bundle file for a locale.
type Provider interface {
	Default() Locale
}

// Fixed is a Provider that always returns the same locale.
type Fixed Locale

func (f Fixed) Default() Locale { return Locale(f) }

// EnvProvider reads the default locale from LANGUAGE, LC_ALL, LC_MESSAGES
// and LANG, in that order, matching GNU gettext. "C" and "POSIX" are
// skipped. Getenv defaults to os.Getenv.
type EnvProvider struct {
	Getenv func(string) string
}

func (p EnvProvider) Default() Locale {
	l, _ := FromEnv(p.Getenv)
	return l
}

// SystemProvider prefers the gettext environment variables and falls back
// to the operating system's user locale (the registry on Windows, the user
// defaults on macOS).
type SystemProvider struct{}

func (SystemProvider) Default() Locale {
	if l, ok := FromEnv(nil); ok {
		return l
	}
	if tag, err := golocale.GetLocale(); err == nil && tag != "" {
		return Parse(tag)
	}
	return Root
}

// FromEnv returns the first usable locale from the environment, or false.
func FromEnv(getenv func(string) string) (Locale, bool) {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if i := strings.IndexByte(val, '.'); i >= 0 {
			val = val[:i]
		}
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return Parse(val), true
	}
	return Root, false
}
