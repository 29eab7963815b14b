// Package lexer tokenizes .properties text.
//
// Tokens cover the input without gaps, so concatenating the text of every
// token reproduces the source byte for byte. The lexer never fails: any input
// produces some token stream.
package lexer

import "fmt"

// Kind is a token kind.
type Kind int

const (
	Whitespace  Kind = iota // indentation, line breaks, blank lines
	LineComment             // '#' or '!' up to the end of the line
	KeyChars                // raw key text
	Separator               // '=', ':' or whitespace between key and value
	ValueChars              // raw value text, continuation lines included
)

var kindNames = [...]string{
	Whitespace:  "WHITESPACE",
	LineComment: "LINE_COMMENT",
	KeyChars:    "KEY_CHARS",
	Separator:   "SEPARATOR",
	ValueChars:  "VALUE_CHARS",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a half-open byte range [Start, End) of the source.
type Token struct {
	Kind  Kind
	Start int
	End   int
}

// Text returns the token's source text.
func (t Token) Text(src string) string { return src[t.Start:t.End] }

type state int

const (
	stateLineStart state = iota
	stateKey
	stateSeparator
	stateValue
)

// Lexer produces tokens from src one at a time.
type Lexer struct {
	src   string
	pos   int
	state state
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize returns every token of src.
func Tokenize(src string) []Token {
	lx := New(src)
	var toks []Token
	for {
		tok, ok := lx.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

// Next returns the next token, or false at the end of input.
func (lx *Lexer) Next() (Token, bool) {
	for lx.pos < len(lx.src) {
		start := lx.pos
		switch lx.state {
		case stateLineStart:
			lx.pos = lx.skipBlank(lx.pos)
			if lx.pos > start {
				return lx.token(Whitespace, start), true
			}
			if c := lx.src[lx.pos]; c == '#' || c == '!' {
				lx.pos = lx.lineEnd(lx.pos)
				return lx.token(LineComment, start), true
			}
			lx.state = stateKey

		case stateKey:
			lx.pos = lx.scanKey(lx.pos)
			lx.state = stateSeparator
			if lx.pos > start {
				return lx.token(KeyChars, start), true
			}

		case stateSeparator:
			lx.pos = lx.scanSeparator(lx.pos)
			lx.state = stateValue
			if lx.pos > start {
				return lx.token(Separator, start), true
			}

		case stateValue:
			lx.pos = lx.scanValue(lx.pos)
			lx.state = stateLineStart
			if lx.pos > start {
				return lx.token(ValueChars, start), true
			}
		}
	}
	return Token{}, false
}

func (lx *Lexer) token(k Kind, start int) Token {
	return Token{Kind: k, Start: start, End: lx.pos}
}

// skipBlank consumes spaces, tabs, form feeds and line breaks.
func (lx *Lexer) skipBlank(i int) int {
	for i < len(lx.src) {
		switch lx.src[i] {
		case ' ', '\t', '\f', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func (lx *Lexer) lineEnd(i int) int {
	for i < len(lx.src) && !isLineBreak(lx.src[i]) {
		i++
	}
	return i
}

// scanKey stops at an unescaped '=', ':', whitespace or line break. A
// backslash always takes the next byte with it, and a backslash-newline
// continues the key on the next line.
func (lx *Lexer) scanKey(i int) int {
	for i < len(lx.src) {
		c := lx.src[i]
		switch {
		case c == '\\':
			i = lx.skipEscape(i)
		case c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' || isLineBreak(c):
			return i
		default:
			i++
		}
	}
	return i
}

// scanSeparator consumes whitespace, at most one '=' or ':', then more
// whitespace. Line breaks are never part of a separator.
func (lx *Lexer) scanSeparator(i int) int {
	i = lx.skipInline(i)
	if i < len(lx.src) && (lx.src[i] == '=' || lx.src[i] == ':') {
		i = lx.skipInline(i + 1)
	}
	return i
}

func (lx *Lexer) skipInline(i int) int {
	for i < len(lx.src) && (lx.src[i] == ' ' || lx.src[i] == '\t' || lx.src[i] == '\f') {
		i++
	}
	return i
}

// scanValue runs to the first line break not consumed by an escape.
func (lx *Lexer) scanValue(i int) int {
	for i < len(lx.src) {
		c := lx.src[i]
		switch {
		case c == '\\':
			i = lx.skipEscape(i)
		case isLineBreak(c):
			return i
		default:
			i++
		}
	}
	return i
}

// skipEscape steps over a backslash and the byte after it. When that byte
// is a line break (LF, CR or CRLF) the indentation of the following line is
// consumed as well. Counting consecutive backslashes two at a time gives the
// odd-parity continuation rule for free.
func (lx *Lexer) skipEscape(i int) int {
	i++
	if i >= len(lx.src) {
		return i
	}
	switch lx.src[i] {
	case '\r':
		i++
		if i < len(lx.src) && lx.src[i] == '\n' {
			i++
		}
		return lx.skipInline(i)
	case '\n':
		return lx.skipInline(i + 1)
	}
	return i + 1
}

func isLineBreak(c byte) bool { return c == '\n' || c == '\r' }
