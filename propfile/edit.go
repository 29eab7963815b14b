package propfile

import (
	"sort"
	"strings"

	"github.com/minios-linux/propkit/escape"
)

// edit replaces content[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// apply returns the next version of f with edits applied. Edits must not
// overlap.
func (f *File) apply(edits ...edit) *File {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	content := f.content
	for _, e := range edits {
		content = content[:e.start] + e.text + content[e.end:]
	}
	return build(f.path, f.version+1, content, f.enc)
}

// valueEdit rewrites the raw value of p, adding a separator when p has none.
func valueEdit(p *Property, raw string) edit {
	if p.sepSpan.Len() == 0 {
		return edit{start: p.keySpan.End, end: p.valueSpan.End, text: "=" + raw}
	}
	return edit{start: p.valueSpan.Start, end: p.valueSpan.End, text: raw}
}

func (f *File) owns(p *Property) bool {
	for _, q := range f.props {
		if q == p {
			return true
		}
	}
	return false
}

// newLinePrefix returns what must precede a property appended to content.
func newLinePrefix(content string) string {
	switch {
	case content == "":
		return ""
	case strings.HasSuffix(content, "\n") || strings.HasSuffix(content, "\r"):
		return ""
	case escape.EndsWithContinuation(content):
		// A bare newline would be taken as a continuation.
		return "\n\n"
	}
	return "\n"
}

func propertyText(key, value string) string {
	return escape.EscapeKey(key) + "=" + escape.Escape(value)
}

// SetValue sets the value of the first property with key. The value is
// logical text and is escaped before it is stored. It reports false when
// the key is not present.
func (f *File) SetValue(key, value string) (*File, bool) {
	p, ok := f.First(key)
	if !ok {
		return f, false
	}
	return f.apply(valueEdit(p, escape.Escape(value))), true
}

// RenameKey renames every property with key oldKey to newKey.
func (f *File) RenameKey(oldKey, newKey string) (*File, bool) {
	found := f.Lookup(oldKey)
	if len(found) == 0 {
		return f, false
	}
	raw := escape.EscapeKey(newKey)
	edits := make([]edit, len(found))
	for i, p := range found {
		edits[i] = edit{start: p.keySpan.Start, end: p.keySpan.End, text: raw}
	}
	return f.apply(edits...), true
}

// AddProperty appends key=value at the end of the file.
func (f *File) AddProperty(key, value string) *File {
	end := len(f.content)
	return f.apply(edit{start: end, end: end, text: newLinePrefix(f.content) + propertyText(key, value)})
}

// AddPropertyAfter inserts key=value on the line after anchor. A nil anchor
// inserts before the first property. An anchor that does not belong to f is
// ignored and the property is appended.
func (f *File) AddPropertyAfter(key, value string, anchor *Property) *File {
	text := propertyText(key, value)
	if anchor == nil {
		if len(f.props) == 0 {
			return f.AddProperty(key, value)
		}
		at := f.props[0].span.Start
		return f.apply(edit{start: at, end: at, text: text + "\n"})
	}
	if !f.owns(anchor) {
		return f.AddProperty(key, value)
	}
	at, ok := afterLineBreak(f.content, anchor.span.End)
	if !ok {
		return f.AddProperty(key, value)
	}
	return f.apply(edit{start: at, end: at, text: text + "\n"})
}

// afterLineBreak returns the offset just past the line break at i.
func afterLineBreak(s string, i int) (int, bool) {
	switch {
	case strings.HasPrefix(s[i:], "\r\n"):
		return i + 2, true
	case strings.HasPrefix(s[i:], "\n"), strings.HasPrefix(s[i:], "\r"):
		return i + 1, true
	}
	return i, false
}

// RemoveProperties deletes every property with key together with the line
// break that ends it. Doc comments are left in place.
func (f *File) RemoveProperties(key string) (*File, bool) {
	found := f.Lookup(key)
	if len(found) == 0 {
		return f, false
	}
	edits := make([]edit, len(found))
	for i, p := range found {
		end, _ := afterLineBreak(f.content, p.span.End)
		edits[i] = edit{start: p.span.Start, end: end}
	}
	return f.apply(edits...), true
}

// ---------------------------------------------------------------------------
// Skeleton / Sync
// ---------------------------------------------------------------------------

// Skeleton returns a copy of src with every value cleared, stored at path.
// Comments, key order and blank lines are preserved.
func Skeleton(src *File, path string) *File {
	edits := make([]edit, 0, len(src.props))
	for _, p := range src.props {
		if p.valueSpan.Len() > 0 {
			edits = append(edits, edit{start: p.valueSpan.Start, end: p.valueSpan.End})
		}
	}
	out := src.apply(edits...)
	out.path = path
	out.version = 1
	return out
}

// Sync lays target's values onto src's structure: the result has src's
// keys, order and comments. Keys missing from target get empty values and
// keys only in target are dropped.
func Sync(src, target *File) *File {
	edits := make([]edit, 0, len(src.props))
	for _, p := range src.props {
		raw := ""
		if q, ok := target.First(p.UnescapedKey()); ok {
			raw = q.value
		}
		if raw == p.value {
			continue
		}
		edits = append(edits, valueEdit(p, raw))
	}
	out := src.apply(edits...)
	out.path = target.path
	out.version = target.version + 1
	out.enc = target.enc
	return out
}
