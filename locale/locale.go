// Package locale derives bundle base names and locales from properties file
// names that follow the <base>[_<lang>[_<COUNTRY>[_<variant>]]] convention.
//
// The base name is a greedy "longest non-locale prefix": the first
// underscore-separated segment of exactly two characters starts the locale
// suffix. This is a naming heuristic, not a BCP 47 parse.
package locale

import (
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Extensions recognised as properties files.
var Extensions = []string{".properties", ".xml"}

// Locale identifies a language, an optional two-letter country and an
// optional variant.
type Locale struct {
	Language string
	Country  string
	Variant  string
}

// Root is the empty locale of the default file.
var Root = Locale{}

func (l Locale) IsRoot() bool { return l == Root }

// String renders the locale the way it appears in file names, e.g. "en_US".
func (l Locale) String() string {
	s := l.Language
	if l.Country != "" || l.Variant != "" {
		s += "_" + l.Country
	}
	if l.Variant != "" {
		s += "_" + l.Variant
	}
	return s
}

// Tag converts the language and country to a BCP 47 tag. The variant is
// dropped because file-name variants are rarely valid BCP 47 subtags.
func (l Locale) Tag() language.Tag {
	if l.Language == "" {
		return language.Und
	}
	s := l.Language
	if l.Country != "" {
		s += "-" + l.Country
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und
	}
	return tag
}

// DisplayName returns the locale's name in its own language, e.g.
// "Deutsch (Deutschland)". Unknown locales fall back to String.
func (l Locale) DisplayName() string {
	if l.IsRoot() {
		return ""
	}
	tag := l.Tag()
	if tag == language.Und {
		return l.String()
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return l.String()
}

// Parse reads a locale written as "en_US", "en-US", "ru_RU.UTF-8" or
// "de_DE@euro". The codeset is dropped and the modifier becomes the variant
// when no other variant is given.
func Parse(s string) Locale {
	var modifier string
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s, modifier = s[:i], s[i+1:]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "-", "_")
	if s == "" {
		return Root
	}
	l, _ := fromSegments(strings.Split(s, "_"))
	if l.Variant == "" {
		l.Variant = modifier
	}
	return l
}

// fromSegments maps language, country and variant segments onto a Locale.
// A second segment that is not two characters long leaves country and
// variant empty and reports the result as ambiguous.
func fromSegments(segs []string) (Locale, bool) {
	l := Locale{Language: strings.ToLower(segs[0])}
	if len(segs) < 2 {
		return l, false
	}
	if utf8.RuneCountInString(segs[1]) != 2 {
		return l, true
	}
	l.Country = strings.ToUpper(segs[1])
	l.Variant = strings.Join(segs[2:], "_")
	return l, false
}

// Stem returns the file name without directory and properties extension.
func Stem(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// BaseName returns the bundle base name of a stem. Splitting keeps empty
// segments, so the result is always a prefix of stem.
func BaseName(stem string) string {
	parts := strings.Split(stem, "_")
	if len(parts) == 1 {
		return stem
	}
	n := len(parts[0])
	for _, p := range parts[1:] {
		if utf8.RuneCountInString(p) == 2 {
			break
		}
		n += 1 + len(p)
	}
	return stem[:n]
}

// Suffix returns the locale suffix of stem including its leading '_', or ""
// for a default file.
func Suffix(stem string) string {
	return stem[len(BaseName(stem)):]
}

// Resolution is everything derived from one file name.
type Resolution struct {
	BaseName string
	Suffix   string
	Locale   Locale
	// Ambiguous is set when the suffix could not be read unambiguously: a
	// second segment that is not a two-letter country, or a stem with
	// underscores but no two-letter segment such as "messages_deutsch".
	Ambiguous bool
}

// IsDefault reports whether the file carries no locale suffix.
func (r Resolution) IsDefault() bool { return r.Suffix == "" }

// Resolve derives base name, suffix and locale from a file name.
func Resolve(fileName string) Resolution {
	stem := Stem(fileName)
	r := Resolution{BaseName: BaseName(stem)}
	r.Suffix = stem[len(r.BaseName):]

	tail := strings.TrimPrefix(r.Suffix, "_")
	if tail == "" {
		// The greedy base name swallowed every segment. Read what follows
		// the first segment as the locale anyway so messages_deutsch yields
		// language "deutsch".
		i := strings.IndexByte(stem, '_')
		if i < 0 || i == len(stem)-1 {
			return r
		}
		r.Locale, _ = fromSegments(strings.Split(stem[i+1:], "_"))
		r.Ambiguous = true
		return r
	}
	r.Locale, r.Ambiguous = fromSegments(strings.Split(tail, "_"))
	return r
}

// Of returns the locale of a file name.
func Of(fileName string) Locale { return Resolve(fileName).Locale }
