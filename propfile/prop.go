// Package propfile implements reading, querying and editing of Java
// .properties files.
//
// Format: key/value pairs separated by '=', ':' or whitespace. Lines whose
// first non-blank character is '#' or '!' are comments; comment lines
// directly above a key (no blank line in between) become that property's doc
// comment. Values may span several lines with a trailing unescaped backslash.
// Keys and values are kept exactly as written; the unescaped forms are
// computed on demand by package escape.
//
// A File is an immutable snapshot. Edits (SetValue, AddProperty, ...) return
// a new File with the next content version, and serialising a File
// reproduces its source byte for byte.
package propfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"

	"github.com/minios-linux/propkit/escape"
	"github.com/minios-linux/propkit/lexer"
	"github.com/minios-linux/propkit/resource"
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

var (
	// ErrMalformedEscape marks a \u escape with fewer than four hex digits.
	ErrMalformedEscape = errors.New("malformed \\uXXXX escape")
	// ErrEmptyKey marks a line with a separator or value but no key. Such a
	// line stays in the content but is not a property.
	ErrEmptyKey = errors.New("property has an empty key")
)

// Diagnostic is a recoverable problem found while parsing.
type Diagnostic struct {
	Err    error
	Line   int // 1-based
	Offset int // byte offset in the content
	Text   string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %v: %q", d.Line, d.Err, d.Text)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// Encoding is the byte encoding a file was read with; Marshal writes it back
// the same way.
type Encoding int

const (
	UTF8    Encoding = iota
	UTF8BOM          // UTF-8 with a leading byte order mark
	Latin1           // ISO-8859-1, the historical .properties encoding
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Property is one key/value entry of a File.
type Property struct {
	key, value string
	comment    string
	hasComment bool

	span, keySpan, sepSpan, valueSpan escape.Span
	line                              int
}

var _ resource.Property = (*Property)(nil)

func (p *Property) Kind() resource.Kind { return resource.KindText }

// Key returns the raw key.
func (p *Property) Key() string { return p.key }

// Value returns the raw value, continuation lines included.
func (p *Property) Value() string { return p.value }

func (p *Property) UnescapedKey() string {
	s, _ := escape.Unescape(p.key)
	return s
}

func (p *Property) UnescapedValue() string {
	s, _ := escape.Unescape(p.value)
	return s
}

func (p *Property) DocComment() (string, bool) { return p.comment, p.hasComment }

// Span is the byte range of the whole property in the file content.
func (p *Property) Span() escape.Span { return p.span }

// KeySpan and ValueSpan are the byte ranges of the raw key and value. An
// absent part has an empty span at the position it would occupy.
func (p *Property) KeySpan() escape.Span   { return p.keySpan }
func (p *Property) ValueSpan() escape.Span { return p.valueSpan }

// Line is the 1-based line the property starts on.
func (p *Property) Line() int { return p.line }

// File represents a parsed .properties file.
type File struct {
	path    string
	version uint64
	content string
	enc     Encoding

	// props holds the properties with non-empty keys in document order.
	props []*Property
	diags []Diagnostic

	once  sync.Once
	byKey map[string][]*Property
}

var _ resource.File = (*File)(nil)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .properties file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseAt(filepath.ToSlash(path), 1, data), nil
}

// Parse parses .properties content from a byte slice. It never fails;
// problems are reported by Diagnostics.
func Parse(data []byte) *File {
	return ParseAt("", 1, data)
}

// ParseAt parses data as the given version of the file at path.
func ParseAt(path string, version uint64, data []byte) *File {
	content, enc := decode(data)
	return build(path, version, content, enc)
}

func decode(data []byte) (string, Encoding) {
	if bytes.HasPrefix(data, bom) && utf8.Valid(data[len(bom):]) {
		return string(data[len(bom):]), UTF8BOM
	}
	if utf8.Valid(data) {
		return string(data), UTF8
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�"), UTF8
	}
	return string(s), Latin1
}

func build(path string, version uint64, content string, enc Encoding) *File {
	f := &File{path: path, version: version, content: content, enc: enc}
	lines := newLineIndex(content)
	toks := lexer.Tokenize(content)

	var comments []string
	for i := 0; i < len(toks); {
		t := toks[i]
		switch t.Kind {
		case lexer.Whitespace:
			if lineBreaks(t.Text(content)) >= 2 {
				comments = nil
			}
			i++
			continue
		case lexer.LineComment:
			comments = append(comments, commentText(t.Text(content)))
			i++
			continue
		}

		p := &Property{line: lines.line(t.Start)}
		p.keySpan = escape.Span{Start: t.Start, End: t.Start}
		if t.Kind == lexer.KeyChars {
			p.keySpan.End = t.End
			i++
		}
		p.sepSpan = escape.Span{Start: p.keySpan.End, End: p.keySpan.End}
		if i < len(toks) && toks[i].Kind == lexer.Separator {
			p.sepSpan = escape.Span{Start: toks[i].Start, End: toks[i].End}
			i++
		}
		p.valueSpan = escape.Span{Start: p.sepSpan.End, End: p.sepSpan.End}
		if i < len(toks) && toks[i].Kind == lexer.ValueChars {
			p.valueSpan = escape.Span{Start: toks[i].Start, End: toks[i].End}
			i++
		}
		p.span = escape.Span{Start: t.Start, End: toks[i-1].End}
		p.key = content[p.keySpan.Start:p.keySpan.End]
		p.value = content[p.valueSpan.Start:p.valueSpan.End]
		if comments != nil {
			p.comment, p.hasComment = strings.Join(comments, "\n"), true
			comments = nil
		}
		f.check(p, lines)
	}
	return f
}

// check records diagnostics for p and keeps it if it has a key.
func (f *File) check(p *Property, lines lineIndex) {
	key, keyOK := escape.Unescape(p.key)
	if !keyOK {
		f.diagnose(ErrMalformedEscape, p.keySpan, lines)
	}
	if _, ok := escape.Unescape(p.value); !ok {
		f.diagnose(ErrMalformedEscape, p.valueSpan, lines)
	}
	if key == "" {
		f.diagnose(ErrEmptyKey, p.span, lines)
		return
	}
	f.props = append(f.props, p)
}

func (f *File) diagnose(err error, s escape.Span, lines lineIndex) {
	f.diags = append(f.diags, Diagnostic{
		Err:    err,
		Line:   lines.line(s.Start),
		Offset: s.Start,
		Text:   f.content[s.Start:s.End],
	})
}

func commentText(s string) string {
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "!")
	return strings.TrimSpace(s)
}

// lineBreaks counts LF, CR and CRLF line breaks in s.
func lineBreaks(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		}
	}
	return n
}

// lineIndex holds the offsets at which lines start.
type lineIndex []int

func newLineIndex(s string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			idx = append(idx, i+1)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) line(offset int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > offset })
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (f *File) Kind() resource.Kind { return resource.KindText }

// Path returns the slash-separated path the file was parsed from.
func (f *File) Path() string { return f.path }

// Version returns the content version of this snapshot.
func (f *File) Version() uint64 { return f.version }

// Content returns the decoded text of the file.
func (f *File) Content() string { return f.content }

// Encoding returns the encoding the content was read with.
func (f *File) Encoding() Encoding { return f.enc }

// Diagnostics returns the problems found while parsing, in source order.
func (f *File) Diagnostics() []Diagnostic { return f.diags }

// Entries returns all properties in document order.
func (f *File) Entries() []*Property { return f.props }

// Properties implements resource.File.
func (f *File) Properties() []resource.Property {
	out := make([]resource.Property, len(f.props))
	for i, p := range f.props {
		out[i] = p
	}
	return out
}

// keyMap returns the unescaped key → properties multimap, building it on
// first use. A File never changes, so one build per snapshot is enough.
func (f *File) keyMap() map[string][]*Property {
	f.once.Do(func() {
		m := make(map[string][]*Property, len(f.props))
		for _, p := range f.props {
			k := p.UnescapedKey()
			m[k] = append(m[k], p)
		}
		f.byKey = m
	})
	return f.byKey
}

// Lookup returns all properties with the given unescaped key in document
// order.
func (f *File) Lookup(key string) []*Property { return f.keyMap()[key] }

// FindByKey implements resource.File.
func (f *File) FindByKey(key string) []resource.Property {
	found := f.Lookup(key)
	out := make([]resource.Property, len(found))
	for i, p := range found {
		out[i] = p
	}
	return out
}

// First returns the first property with the given key.
func (f *File) First(key string) (*Property, bool) {
	if found := f.Lookup(key); len(found) > 0 {
		return found[0], true
	}
	return nil, false
}

// Keys returns the unescaped keys in document order, each once.
func (f *File) Keys() []string {
	seen := make(map[string]bool, len(f.props))
	keys := make([]string, 0, len(f.props))
	for _, p := range f.props {
		k := p.UnescapedKey()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// EmptyValueKeys returns keys whose first value is empty.
func (f *File) EmptyValueKeys() []string {
	var keys []string
	for _, k := range f.Keys() {
		if p, _ := f.First(k); p.value == "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Get returns the unescaped value for key and whether it was found.
func (f *File) Get(key string) (string, bool) {
	if p, ok := f.First(key); ok {
		return p.UnescapedValue(), true
	}
	return "", false
}

// NamesMap returns unescaped key → raw value. For duplicated keys the first
// occurrence wins.
func (f *File) NamesMap() map[string]string {
	m := make(map[string]string, len(f.props))
	for _, p := range f.props {
		k := p.UnescapedKey()
		if _, ok := m[k]; !ok {
			m[k] = p.value
		}
	}
	return m
}

// Stats returns (total, filled, percentFilled) over distinct keys.
func (f *File) Stats() (int, int, float64) {
	keys := f.Keys()
	total := len(keys)
	filled := total - len(f.EmptyValueKeys())
	pct := 0.0
	if total > 0 {
		pct = float64(filled) / float64(total) * 100
	}
	return total, filled, pct
}

// TrailingSpace reports a key or value that ends in whitespace.
type TrailingSpace struct {
	Property *Property
	InValue  bool
	// Span is absolute within the file content.
	Span escape.Span
}

// TrailingSpaces lists keys and values ending in literal or escaped
// whitespace.
func (f *File) TrailingSpaces() []TrailingSpace {
	var out []TrailingSpace
	for _, p := range f.props {
		if s, ok := escape.TrailingWhitespace(p.key); ok {
			out = append(out, TrailingSpace{Property: p, Span: shift(s, p.keySpan.Start)})
		}
		if s, ok := escape.TrailingWhitespace(p.value); ok {
			out = append(out, TrailingSpace{Property: p, InValue: true, Span: shift(s, p.valueSpan.Start)})
		}
	}
	return out
}

func shift(s escape.Span, by int) escape.Span {
	return escape.Span{Start: s.Start + by, End: s.End + by}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the file in the encoding it was read with.
func (f *File) Marshal() ([]byte, error) {
	switch f.enc {
	case UTF8BOM:
		return append(append([]byte{}, bom...), f.content...), nil
	case Latin1:
		out, err := charmap.ISO8859_1.NewEncoder().String(f.content)
		if err != nil {
			log.Warn().Str("path", f.path).Err(err).Msg("content no longer fits ISO-8859-1, writing UTF-8")
			return []byte(f.content), nil
		}
		return []byte(out), nil
	}
	return []byte(f.content), nil
}

// WriteFile serialises and writes to path, creating parent directories
// with 0755 permissions.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
