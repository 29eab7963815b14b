// Package resource defines what every properties file format shares: a
// property with raw and unescaped key/value, and a file that enumerates and
// finds properties by key. Text .properties files (package propfile) and XML
// <properties> documents (package xmlprop) both satisfy these interfaces.
package resource

import "path"

// Kind tags the concrete format behind a Property or File.
type Kind int

const (
	KindText Kind = iota // .properties text
	KindXML              // <properties><entry key="..."> document
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "properties"
	case KindXML:
		return "xml"
	}
	return "unknown"
}

// Property is a single key/value pair.
type Property interface {
	Kind() Kind
	// Key and Value return the text as stored in the file.
	Key() string
	Value() string
	// UnescapedKey and UnescapedValue return the logical text.
	UnescapedKey() string
	UnescapedValue() string
	// DocComment returns the comment attached to the property, if any.
	DocComment() (string, bool)
}

// File is an immutable snapshot of a properties file.
type File interface {
	Kind() Kind
	// Path is the slash-separated path of the file within its file system.
	Path() string
	// Version increases every time the content behind Path changes.
	Version() uint64
	// Properties returns all properties in source order.
	Properties() []Property
	// FindByKey returns every property whose unescaped key equals key, in
	// source order.
	FindByKey(key string) []Property
}

// Name returns the base name of f, extension included.
func Name(f File) string { return path.Base(f.Path()) }

// First returns the first property of f with the given key.
func First(f File, key string) (Property, bool) {
	props := f.FindByKey(key)
	if len(props) == 0 {
		return nil, false
	}
	return props[0], true
}
