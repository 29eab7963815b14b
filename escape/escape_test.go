package escape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnescape(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "escaped colon", raw: `a\:b`, want: "a:b", ok: true},
		{name: "escaped space", raw: `c\ d`, want: "c d", ok: true},
		{name: "unicode", raw: `\u1234`, want: "\u1234", ok: true},
		{name: "unicode mixed case", raw: `va\u006Cue\u006c`, want: "valuel", ok: true},
		{name: "truncated unicode", raw: `\u12`, want: `\u12`, ok: false},
		{name: "bad hex resyncs", raw: `\u12G4x`, want: `\u12G4x`, ok: false},
		{name: "named escapes", raw: `\t\r\n\f`, want: "\t\r\n\f", ok: true},
		{name: "any char may be escaped", raw: `\#\!\=\q`, want: "#!=q", ok: true},
		{name: "escaped backslash", raw: `a\\b`, want: `a\b`, ok: true},
		{name: "continuation", raw: "b\\\n  c", want: "bc", ok: true},
		{name: "continuation tabs", raw: "b\\\n\t  c", want: "bc", ok: true},
		{name: "crlf continuation", raw: "b\\\r\n  c", want: "bc", ok: true},
		{name: "trailing backslash dropped", raw: `abc\`, want: "abc", ok: true},
		{name: "surrogate pair", raw: `\uD83D\uDE00`, want: "\U0001F600", ok: true},
		{name: "lone high surrogate", raw: `\uD83Dx`, want: "\uFFFDx", ok: true},
		{name: "lone low surrogate", raw: `\uDE00`, want: "\uFFFD", ok: true},
		{name: "utf-8 passthrough", raw: "привет", want: "привет", ok: true},
		{name: "empty", raw: "", want: "", ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Unescape(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestDecodeOffsets(t *testing.T) {
	d := Decode(`a\tb\u0063`)
	require.True(t, d.WellFormed)
	assert.Equal(t, "a\tbc", d.Text)
	assert.Equal(t, []int{0, 1, 3, 4, 10}, d.Offsets)

	d = Decode("é\\u00e9")
	assert.Equal(t, "éé", d.Text)
	// Each UTF-8 byte of a decoded rune points at the start of its source.
	assert.Equal(t, []int{0, 0, 2, 2, 8}, d.Offsets)
	assert.Len(t, d.Offsets, len(d.Text)+1)
}

func TestEscape(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: " lead", want: `\ lead`},
		{in: "\tlead", want: "\\\tlead"},
		{in: "in between", want: "in between"},
		{in: "a#b!c=d:e", want: `a\#b\!c\=d\:e`},
		{in: "line1\nline2", want: "line1\\\nline2"},
		{in: "é", want: `\u00E9`},
		{in: "\U0001F600", want: `\uD83D\uDE00`},
		{in: `back\slash`, want: `back\\slash`},
		{in: `trailing\`, want: `trailing\\`},
		// Backslash before 'n' is left alone on purpose.
		{in: `keep\n`, want: `keep\n`},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Escape(tc.in), "Escape(%q)", tc.in)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		" leading space",
		"\tleading tab",
		"key=value: #1 !",
		"Grüße, 世界",
		"emoji \U0001F600",
		`C:\temp\dir`,
		`trailing\`,
		"tab\tin\tmiddle",
	}
	for _, s := range inputs {
		got, ok := Unescape(Escape(s))
		require.True(t, ok, "Escape(%q) produced malformed text", s)
		assert.Equal(t, s, got, "round trip of %q", s)
	}
}

func TestEscapeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "simple.key", want: "simple.key"},
		{in: "#hash", want: `\#hash`},
		{in: "!bang", want: `\!bang`},
		{in: "a=b:c d\te", want: "a\\=b\\:c\\ d\\\te"},
		{in: `already\=escaped`, want: `already\=escaped`},
		{in: "==", want: `\=\=`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EscapeKey(tc.in), "EscapeKey(%q)", tc.in)
	}

	for _, key := range []string{"a b", "x=y", "k:v", "#c", "!c"} {
		got, _ := Unescape(EscapeKey(key))
		assert.Equal(t, key, got)
	}
}

func TestTrailingWhitespace(t *testing.T) {
	cases := []struct {
		raw  string
		want Span
		ok   bool
	}{
		{raw: "value", ok: false},
		{raw: "value  ", want: Span{5, 7}, ok: true},
		{raw: `value\t`, want: Span{5, 7}, ok: true},
		{raw: `value\ \ `, want: Span{5, 9}, ok: true},
		{raw: `value\u0020`, want: Span{5, 11}, ok: true},
		{raw: `value\u0041`, ok: false},
		{raw: `  x`, ok: false},
		{raw: "a \tb", ok: false},
		{raw: `value\u00`, ok: false},
		{raw: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := TrailingWhitespace(tc.raw)
		assert.Equal(t, tc.ok, ok, "TrailingWhitespace(%q)", tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got, "TrailingWhitespace(%q)", tc.raw)
		}
	}
}

func TestEndsWithContinuation(t *testing.T) {
	cases := map[string]bool{
		`abc`:     false,
		`abc\`:    true,
		`abc\\`:   false,
		`abc\\\`:  true,
		`\`:       true,
		``:        false,
		`abc\\\\`: false,
	}
	for line, want := range cases {
		assert.Equal(t, want, EndsWithContinuation(line), "EndsWithContinuation(%q)", line)
	}
}
