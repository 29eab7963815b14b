package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tok struct {
	kind Kind
	text string
}

func lex(src string) []tok {
	var out []tok
	for _, t := range Tokenize(src) {
		out = append(out, tok{t.Kind, t.Text(src)})
	}
	return out
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []tok
	}{
		{
			name: "equals separator",
			src:  "key = value\n",
			want: []tok{{KeyChars, "key"}, {Separator, " = "}, {ValueChars, "value"}, {Whitespace, "\n"}},
		},
		{
			name: "colon separator",
			src:  "key:value",
			want: []tok{{KeyChars, "key"}, {Separator, ":"}, {ValueChars, "value"}},
		},
		{
			name: "whitespace separator",
			src:  "key value with spaces",
			want: []tok{{KeyChars, "key"}, {Separator, " "}, {ValueChars, "value with spaces"}},
		},
		{
			name: "comments",
			src:  "# one\n  ! two\nk=v",
			want: []tok{
				{LineComment, "# one"}, {Whitespace, "\n  "}, {LineComment, "! two"}, {Whitespace, "\n"},
				{KeyChars, "k"}, {Separator, "="}, {ValueChars, "v"},
			},
		},
		{
			name: "escaped separators stay in key",
			src:  `a\=b\:c\ d=e`,
			want: []tok{{KeyChars, `a\=b\:c\ d`}, {Separator, "="}, {ValueChars, "e"}},
		},
		{
			name: "continuation keeps value together",
			src:  "key2:val2\\\n  more\nnext=1",
			want: []tok{
				{KeyChars, "key2"}, {Separator, ":"}, {ValueChars, "val2\\\n  more"}, {Whitespace, "\n"},
				{KeyChars, "next"}, {Separator, "="}, {ValueChars, "1"},
			},
		},
		{
			name: "even backslashes end the line",
			src:  "a=b\\\\\nc=d",
			want: []tok{
				{KeyChars, "a"}, {Separator, "="}, {ValueChars, `b\\`}, {Whitespace, "\n"},
				{KeyChars, "c"}, {Separator, "="}, {ValueChars, "d"},
			},
		},
		{
			name: "crlf continuation",
			src:  "a=b\\\r\n c\r\n",
			want: []tok{{KeyChars, "a"}, {Separator, "="}, {ValueChars, "b\\\r\n c"}, {Whitespace, "\r\n"}},
		},
		{
			name: "key without value",
			src:  "lonely\n",
			want: []tok{{KeyChars, "lonely"}, {Whitespace, "\n"}},
		},
		{
			name: "stray separator",
			src:  "=orphan",
			want: []tok{{Separator, "="}, {ValueChars, "orphan"}},
		},
		{
			name: "comment marker inside value",
			src:  "k=v # not a comment",
			want: []tok{{KeyChars, "k"}, {Separator, "="}, {ValueChars, "v # not a comment"}},
		},
		{
			name: "blank lines",
			src:  "\n\n  \n",
			want: []tok{{Whitespace, "\n\n  \n"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lex(tc.src))
		})
	}
}

func TestTokensCoverInput(t *testing.T) {
	inputs := []string{
		"",
		"# hello\nkey1 = va\\u006cue1\nkey2:val2\\\n  more\n",
		"a\\\n b=c\\",
		"\\",
		"k\\",
		"x = y = z\n\n!c\n=\n:",
		"ключ=значение\n",
	}
	for _, src := range inputs {
		var b strings.Builder
		prev := 0
		for _, tk := range Tokenize(src) {
			assert.Equal(t, prev, tk.Start, "gap before %v in %q", tk, src)
			assert.Greater(t, tk.End, tk.Start, "empty token in %q", src)
			b.WriteString(tk.Text(src))
			prev = tk.End
		}
		assert.Equal(t, src, b.String())
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "KEY_CHARS", KeyChars.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
