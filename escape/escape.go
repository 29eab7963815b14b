// Package escape implements the escape syntax of Java .properties files.
//
// Raw text is what sits on disk: backslash escapes, \uXXXX code units and
// backslash-newline continuations. Logical text is what the escapes stand
// for. Unescape and Decode go from raw to logical; Escape and EscapeKey go
// back. The two directions are not exact inverses for every input (see
// Escape), matching the behaviour of the legacy Properties tooling.
package escape

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Decoded is the result of Decode.
type Decoded struct {
	// Text is the logical string.
	Text string
	// Offsets maps a byte index of Text to the byte offset in the raw input
	// where the producing character (or escape) starts. It has len(Text)+1
	// entries; the last one is len(raw).
	Offsets []int
	// WellFormed is false when at least one \u escape was malformed.
	WellFormed bool
}

// Unescape decodes raw properties text into its logical form. ok is false
// when a \u escape has fewer than four hex digits; the malformed escape is
// then reproduced literally and decoding continues.
func Unescape(raw string) (logical string, ok bool) {
	d := decoder{raw: raw, ok: true}
	d.run()
	return d.out.String(), d.ok
}

// Decode is Unescape plus an offset map from decoded to source positions.
func Decode(raw string) Decoded {
	d := decoder{raw: raw, ok: true, offsets: make([]int, 0, len(raw)+1)}
	d.run()
	d.offsets = append(d.offsets, len(raw))
	return Decoded{Text: d.out.String(), Offsets: d.offsets, WellFormed: d.ok}
}

type decoder struct {
	raw     string
	out     strings.Builder
	offsets []int
	ok      bool

	// high holds a pending \u high surrogate and the offset of its escape.
	high    rune
	highSrc int
}

func (d *decoder) run() {
	raw := d.raw
	i := 0
	for i < len(raw) {
		start := i
		c, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		if c != '\\' {
			d.emit(c, start)
			continue
		}
		if i >= len(raw) {
			// Backslash at the very end continues onto a line that never comes.
			break
		}
		c, size = utf8.DecodeRuneInString(raw[i:])
		i += size
		switch c {
		case 'u':
			value, n := 0, 0
			for n < 4 && i < len(raw) {
				h := hexValue(raw[i])
				if h < 0 {
					break
				}
				value = value<<4 | h
				i++
				n++
			}
			if n < 4 {
				d.ok = false
				d.emitString(raw[start:i], start)
				continue
			}
			d.unit(rune(value), start)
		case '\n':
			i = skipIndent(raw, i)
		case '\r':
			if i < len(raw) && raw[i] == '\n' {
				i = skipIndent(raw, i+1)
				continue
			}
			d.emit('\r', start)
		case 't':
			d.emit('\t', start)
		case 'r':
			d.emit('\r', start)
		case 'n':
			d.emit('\n', start)
		case 'f':
			d.emit('\f', start)
		default:
			d.emit(c, start)
		}
	}
	d.flush()
}

// unit handles one UTF-16 code unit produced by a \u escape.
func (d *decoder) unit(u rune, src int) {
	switch {
	case utf16.IsSurrogate(u) && u < 0xDC00:
		d.flush()
		d.high, d.highSrc = u, src
	case utf16.IsSurrogate(u):
		if d.high != 0 {
			r := utf16.DecodeRune(d.high, u)
			src = d.highSrc
			d.high = 0
			d.write(r, src)
			return
		}
		d.write(utf8.RuneError, src)
	default:
		d.emit(u, src)
	}
}

func (d *decoder) emit(r rune, src int) {
	d.flush()
	d.write(r, src)
}

func (d *decoder) emitString(s string, src int) {
	d.flush()
	for _, r := range s {
		d.write(r, src)
	}
}

// flush writes a pending unpaired high surrogate as U+FFFD.
func (d *decoder) flush() {
	if d.high == 0 {
		return
	}
	d.high = 0
	d.write(utf8.RuneError, d.highSrc)
}

func (d *decoder) write(r rune, src int) {
	n, _ := d.out.WriteRune(r)
	if d.offsets != nil {
		for ; n > 0; n-- {
			d.offsets = append(d.offsets, src)
		}
	}
}

func skipIndent(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// Escape converts a logical value into raw text for writing.
//
// Leading space or tab is escaped only at position 0. A line feed becomes a
// backslash followed by a literal line feed, which reads back as a
// continuation. '#', '!', '=' and ':' are escaped everywhere and non-ASCII
// characters become upper-case \uXXXX escapes (surrogate pairs above the BMP).
// A backslash is doubled unless the next character is 'n': text such as
// `a\nb` typed by a user is kept as the escape it looks like. That heuristic
// is intentional and makes Escape lossy for logical strings containing a
// backslash followed by 'n'.
func Escape(logical string) string {
	var b strings.Builder
	b.Grow(len(logical))
	for i, c := range logical {
		switch {
		case i == 0 && (c == ' ' || c == '\t'), c == '\n', c == '#', c == '!', c == '=', c == ':':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c == '\\':
			if next := i + 1; next >= len(logical) || logical[next] != 'n' {
				b.WriteByte('\\')
			}
			b.WriteByte('\\')
		case c > 127:
			writeUnicode(&b, c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func writeUnicode(b *strings.Builder, c rune) {
	if c > 0xFFFF {
		hi, lo := utf16.EncodeRune(c)
		fmt.Fprintf(b, "\\u%04X\\u%04X", hi, lo)
		return
	}
	fmt.Fprintf(b, "\\u%04X", c)
}

// EscapeKey converts a logical key into raw text. A leading '#' or '!' is
// escaped so the line does not read as a comment; '=', ':', space and tab are
// escaped everywhere unless already preceded by a backslash.
func EscapeKey(name string) string {
	if strings.HasPrefix(name, "#") {
		name = escapeChar(name, '#')
	}
	if strings.HasPrefix(name, "!") {
		name = escapeChar(name, '!')
	}
	for _, c := range []byte{'=', ':', ' ', '\t'} {
		name = escapeChar(name, c)
	}
	return name
}

func escapeChar(s string, c byte) string {
	offset := 0
	for {
		i := strings.IndexByte(s[offset:], c)
		if i < 0 {
			return s
		}
		i += offset
		if i == 0 || s[i-1] != '\\' {
			s = s[:i] + "\\" + s[i:]
			i++
		}
		offset = i + 1
	}
}

// Span is a half-open byte range [Start, End) in raw text.
type Span struct {
	Start, End int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// TrailingWhitespace reports the raw span after which only whitespace
// follows, literal or escaped (\t \r \n \f, escaped spaces, \u escapes of
// whitespace). The text is never materialised.
func TrailingWhitespace(raw string) (Span, bool) {
	start := -1
	mark := func(at int) {
		if start == -1 {
			start = at
		}
	}
	i := 0
	for i < len(raw) {
		at := i
		c, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		if c != '\\' {
			if isWhitespace(c) {
				mark(at)
			} else {
				start = -1
			}
			continue
		}
		mark(at)
		if i >= len(raw) {
			break
		}
		c, size = utf8.DecodeRuneInString(raw[i:])
		i += size
		switch c {
		case 'u':
			value, n := 0, 0
			for n < 4 && i < len(raw) {
				h := hexValue(raw[i])
				if h < 0 {
					break
				}
				value = value<<4 | h
				i++
				n++
			}
			if n < 4 || !isWhitespace(rune(value)) {
				start = -1
			}
		case '\n':
			i = skipIndent(raw, i)
		case '\r':
			if i < len(raw) && raw[i] == '\n' {
				i = skipIndent(raw, i+1)
			}
		case 't', 'r', 'n', 'f':
		default:
			if !isWhitespace(c) {
				start = -1
			}
		}
	}
	if start == -1 {
		return Span{}, false
	}
	return Span{Start: start, End: len(raw)}, true
}

// isWhitespace follows the legacy definition, which excludes non-breaking
// spaces.
func isWhitespace(r rune) bool {
	switch r {
	case '\u00A0', '\u2007', '\u202F', '\u0085':
		return false
	case '\u001C', '\u001D', '\u001E', '\u001F':
		return true
	}
	return unicode.IsSpace(r)
}

// EndsWithContinuation reports whether line ends with an odd number of
// backslashes. Each pair is one escaped backslash; a single leftover one
// continues the logical line.
func EndsWithContinuation(line string) bool {
	odd := false
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		odd = !odd
	}
	return odd
}
