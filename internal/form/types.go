// Package form provides form-state extraction from HTML documents and the
// ordered field mapping submitted back to the server.
package form

import (
	"net/url"
	"strings"
)

// FieldKind identifies the kind of form control a field came from.
type FieldKind int

const (
	// KindText covers text-like inputs (text, email, number, password, ...).
	KindText FieldKind = iota
	// KindHidden is a hidden input, typically a token or session marker.
	KindHidden
	// KindCheckbox is a checkbox input.
	KindCheckbox
	// KindRadio is a radio input.
	KindRadio
	// KindSelect is a select element.
	KindSelect
	// KindTextarea is a textarea element.
	KindTextarea
)

// String returns the string representation of FieldKind.
func (k FieldKind) String() string {
	switch k {
	case KindHidden:
		return "hidden"
	case KindCheckbox:
		return "checkbox"
	case KindRadio:
		return "radio"
	case KindSelect:
		return "select"
	case KindTextarea:
		return "textarea"
	default:
		return "text"
	}
}

// Field describes one submittable form control.
type Field struct {
	Name  string
	Kind  FieldKind
	Value string
}

// Data is an ordered mapping of field name to value. Insertion order is
// preserved so the encoded body matches document order; some servers use
// field ordering in anti-automation heuristics.
type Data struct {
	keys   []string
	values map[string]string
}

// NewData creates an empty field mapping.
func NewData() *Data {
	return &Data{
		keys:   make([]string, 0, 8),
		values: make(map[string]string),
	}
}

// Set stores a value. A new key is appended, an existing key keeps its
// position and is overwritten.
func (d *Data) Set(name, value string) {
	if _, ok := d.values[name]; !ok {
		d.keys = append(d.keys, name)
	}
	d.values[name] = value
}

// Get returns the value for a field name.
func (d *Data) Get(name string) (string, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Has reports whether the field name is present.
func (d *Data) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Len returns the number of fields.
func (d *Data) Len() int {
	return len(d.keys)
}

// Keys returns the field names in insertion order.
func (d *Data) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Clone returns a deep copy preserving order.
func (d *Data) Clone() *Data {
	clone := &Data{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]string, len(d.values)),
	}
	copy(clone.keys, d.keys)
	for k, v := range d.values {
		clone.values[k] = v
	}
	return clone
}

// Merge returns a new Data combining d with overrides. Override values
// strictly dominate on key collision; override keys not present in d are
// appended at the end. Injecting fields the form never declared is allowed,
// callers may be supplying a value client-side script would have set.
// Merge(Merge(d, o), o) == Merge(d, o).
func (d *Data) Merge(overrides *Data) *Data {
	merged := d.Clone()
	if overrides == nil {
		return merged
	}
	for _, k := range overrides.keys {
		merged.Set(k, overrides.values[k])
	}
	return merged
}

// Encode returns the application/x-www-form-urlencoded body with fields in
// insertion order. url.Values is not used because it sorts keys.
func (d *Data) Encode() string {
	var b strings.Builder
	for i, k := range d.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(d.values[k]))
	}
	return b.String()
}

// Map returns an unordered copy of the mapping.
func (d *Data) Map() map[string]string {
	m := make(map[string]string, len(d.values))
	for k, v := range d.values {
		m[k] = v
	}
	return m
}

// FromMap builds a Data from a plain map. Map iteration order is not
// deterministic; callers needing a specific order should use Set directly.
func FromMap(m map[string]string) *Data {
	d := NewData()
	for k, v := range m {
		d.Set(k, v)
	}
	return d
}

// Target is the resolved submission target for a form: the action URL
// (already resolved against the page base) and the HTTP method. Immutable
// once derived from an extraction.
type Target struct {
	Action string
	Method string
}
