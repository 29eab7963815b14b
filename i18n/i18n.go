// Package i18n provides internationalization support for propkit itself.
//
// It wraps the gotext library to provide simple T() and N() functions
// for translating propkit's user-facing strings. Translations are embedded
// in the binary via //go:embed and loaded at startup via Init().
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("No issues found"))
//	fmt.Println(i18n.N("%d issue", "%d issues", count))
package i18n

import (
	"embed"
	"fmt"

	"github.com/leonelquinteros/gotext"

	"github.com/minios-linux/propkit/locale"
)

// locales embeds the translation catalogues.
// Directory structure: locales/{lang}/LC_MESSAGES/propkit.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for propkit.
const domain = "propkit"

var po *gotext.Locale

// Init initializes the i18n system. If lang is empty, it is detected from
// the environment the same way as the default bundle locale.
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage(nil)
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string. If no translation is available, returns the
// original string unchanged (standard gettext passthrough behavior).
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	// Get and GetN format only when given arguments; msgid is a catalogue
	// key, so they are called as method values.
	get := po.Get
	return get(msgid)
}

// Tf translates a format string and applies args.
func Tf(msgid string, args ...any) string {
	return fmt.Sprintf(T(msgid), args...)
}

// N translates a string with plural forms. The singular form is used
// when n == 1, the plural form otherwise (exact rules depend on the
// target language's plural formula).
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	getN := po.GetN
	return getN(singular, plural, n)
}

func detectLanguage(getenv func(string) string) string {
	if l, ok := locale.FromEnv(getenv); ok {
		return l.String()
	}
	return "en"
}
