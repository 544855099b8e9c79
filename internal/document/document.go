package document

import (
	"fmt"
	"slices"
	"strings"
)

// Field is one named value.
type Field struct {
	Name  string
	Value Value
}

// F builds a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Document is an ordered set of fields with unique names. A nil *Document
// reads as empty; only Set needs a non-nil receiver.
type Document struct {
	fields []Field
}

// New builds a document from fields in order. A repeated name replaces the
// earlier value in place.
func New(fields ...Field) *Document {
	d := &Document{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		d.Set(f.Name, f.Value)
	}
	return d
}

// FromMap builds a document from m with fields ordered by name.
func FromMap(m map[string]any) (*Document, error) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)

	d := &Document{fields: make([]Field, 0, len(m))}
	for _, name := range names {
		v, err := ValueOf(m[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		d.fields = append(d.fields, Field{Name: name, Value: v})
	}
	return d, nil
}

// Set assigns name, keeping its position when already present.
func (d *Document) Set(name string, v Value) {
	for i := range d.fields {
		if d.fields[i].Name == name {
			d.fields[i].Value = v
			return
		}
	}
	d.fields = append(d.fields, Field{Name: name, Value: v})
}

// Get returns the value stored under name.
func (d *Document) Get(name string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// Fields returns a copy of the fields in order.
func (d *Document) Fields() []Field {
	if d == nil {
		return nil
	}
	return slices.Clone(d.fields)
}

// Clone returns an independent copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{fields: slices.Clone(d.fields)}
}

// Map returns the fields as plain Go values.
func (d *Document) Map() map[string]any {
	m := make(map[string]any, d.Len())
	if d == nil {
		return m
	}
	for _, f := range d.fields {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

// Equal reports whether both documents hold the same fields in the same order.
func (d *Document) Equal(o *Document) bool {
	if d.Len() != o.Len() {
		return false
	}
	for i := range d.Len() {
		a, b := d.fields[i], o.fields[i]
		if a.Name != b.Name || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

func (d *Document) String() string {
	if d.Len() == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s:%#v", f.Name, f.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}
