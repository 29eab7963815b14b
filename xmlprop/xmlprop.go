// Package xmlprop reads the XML flavour of properties files:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<!DOCTYPE properties SYSTEM "http://java.sun.com/dtd/properties.dtd">
//	<properties>
//	  <comment>optional</comment>
//	  <entry key="greeting">Hello</entry>
//	</properties>
//
// A document is accepted only when its root element is <properties>.
// Entries are exposed through the same resource interfaces as text files;
// XML does its own escaping, so raw and unescaped forms are identical.
package xmlprop

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"

	"github.com/minios-linux/propkit/resource"
)

// ErrNotProperties is returned for well-formed XML whose root element is not
// <properties>.
var ErrNotProperties = errors.New("not a <properties> document")

// Entry is one <entry key="..."> element.
type Entry struct {
	key, value string
	line       int
}

var _ resource.Property = (*Entry)(nil)

func (e *Entry) Kind() resource.Kind        { return resource.KindXML }
func (e *Entry) Key() string                { return e.key }
func (e *Entry) Value() string              { return e.value }
func (e *Entry) UnescapedKey() string       { return e.key }
func (e *Entry) UnescapedValue() string     { return e.value }
func (e *Entry) DocComment() (string, bool) { return "", false }

// Line is the line of the opening <entry> tag.
func (e *Entry) Line() int { return e.line }

// File is a parsed <properties> document.
type File struct {
	path    string
	version uint64
	comment string
	entries []*Entry

	once  sync.Once
	byKey map[string][]*Entry
}

var _ resource.File = (*File)(nil)

// ParseFile reads and parses an XML properties file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseAt(filepath.ToSlash(path), 1, data)
}

// Parse parses an XML properties document.
func Parse(data []byte) (*File, error) {
	return ParseAt("", 1, data)
}

// ParseAt parses data as the given version of the file at path.
func ParseAt(path string, version uint64, data []byte) (*File, error) {
	f := &File{path: path, version: version}
	dec := newDecoder(data)

	root, err := rootElement(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if root.Name.Local != "properties" {
		return nil, fmt.Errorf("parsing %s: %w (root <%s>)", path, ErrNotProperties, root.Name.Local)
	}

	for {
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		elem, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var body struct {
			Text string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&body, &elem); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		switch elem.Name.Local {
		case "comment":
			f.comment = body.Text
		case "entry":
			key, ok := attr(elem, "key")
			if !ok || key == "" {
				continue
			}
			f.entries = append(f.entries, &Entry{key: key, value: body.Text, line: line})
		}
	}
}

// IsProperties reports whether data is XML with a <properties> root.
func IsProperties(data []byte) bool {
	root, err := rootElement(newDecoder(data))
	return err == nil && root.Name.Local == "properties"
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(label) {
		case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		case "us-ascii", "ascii":
			return input, nil
		}
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return dec
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, ErrNotProperties
			}
			return xml.StartElement{}, err
		}
		if elem, ok := tok.(xml.StartElement); ok {
			return elem, nil
		}
	}
}

func attr(elem xml.StartElement, name string) (string, bool) {
	for _, a := range elem.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (f *File) Kind() resource.Kind { return resource.KindXML }
func (f *File) Path() string        { return f.path }
func (f *File) Version() uint64     { return f.version }

// Comment returns the text of the optional <comment> element.
func (f *File) Comment() string { return f.comment }

// Entries returns all entries in document order.
func (f *File) Entries() []*Entry { return f.entries }

func (f *File) Properties() []resource.Property {
	out := make([]resource.Property, len(f.entries))
	for i, e := range f.entries {
		out[i] = e
	}
	return out
}

func (f *File) FindByKey(key string) []resource.Property {
	f.once.Do(func() {
		f.byKey = make(map[string][]*Entry, len(f.entries))
		for _, e := range f.entries {
			f.byKey[e.key] = append(f.byKey[e.key], e)
		}
	})
	found := f.byKey[key]
	out := make([]resource.Property, len(found))
	for i, e := range found {
		out[i] = e
	}
	return out
}

// Get returns the value of the first entry with key.
func (f *File) Get(key string) (string, bool) {
	if p, ok := resource.First(f, key); ok {
		return p.Value(), true
	}
	return "", false
}
