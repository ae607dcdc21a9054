// Package manifest loads package descriptors and normalizes them into build configurations.
//
// A descriptor is an ordered mapping from field name to value. Most fields are
// Debian control fields and end up, in declaration order, in DEBIAN/control.
// A few orchestration fields (target, out, verbose, changelog and the
// maintainer scripts) drive the build instead and never reach the control file.
package manifest

import (
	"strings"

	"github.com/etnz/smartdeb/deb"
)

// Descriptor is an ordered mapping of field names to values.
//
// Values are scalars (string, bool, numbers), sequences ([]any) or nested
// mappings (*Descriptor). Scalars decoded from a file keep their source
// spelling, so "1.0" stays "1.0".
type Descriptor struct {
	keys   []string
	values map[string]any
}

// NewDescriptor returns an empty descriptor.
func NewDescriptor() *Descriptor {
	return &Descriptor{values: make(map[string]any)}
}

// Set assigns value to key. An existing key keeps its position; a new key is appended.
func (d *Descriptor) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key.
func (d *Descriptor) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the field names in declaration order.
func (d *Descriptor) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of fields.
func (d *Descriptor) Len() int { return len(d.keys) }

// Clone returns a copy of d. Nested descriptors are cloned too; sequences are shared.
func (d *Descriptor) Clone() *Descriptor {
	c := NewDescriptor()
	for _, k := range d.keys {
		v := d.values[k]
		if sub, ok := v.(*Descriptor); ok {
			v = sub.Clone()
		}
		c.Set(k, v)
	}
	return c
}

// Override sets an orchestration field, replacing it under whatever spelling
// the descriptor already uses ("_out", "Out"...). The receiver is modified.
func (d *Descriptor) Override(field deb.ControlField, value any) {
	for _, k := range d.keys {
		if strings.EqualFold(strings.TrimLeft(k, "_"), string(field)) {
			d.values[k] = value
			return
		}
	}
	d.Set(strings.ToLower(string(field)), value)
}

// Descriptor implements Source for in-memory descriptors.
func (d *Descriptor) Descriptor() (*Descriptor, error) { return d, nil }

// field looks a control field up, ignoring case.
func (d *Descriptor) field(name deb.ControlField) (any, bool) {
	for _, k := range d.keys {
		if strings.EqualFold(k, string(name)) {
			return d.values[k], true
		}
	}
	return nil, false
}

// orchestration looks an orchestration field up, ignoring case and leading underscores.
func (d *Descriptor) orchestration(name deb.ControlField) (any, bool) {
	for _, k := range d.keys {
		if strings.EqualFold(strings.TrimLeft(k, "_"), string(name)) {
			return d.values[k], true
		}
	}
	return nil, false
}

// Source provides a descriptor, either directly or from a store.
type Source interface {
	Descriptor() (*Descriptor, error)
}

// File is a Source backed by a descriptor file on disk. See Load.
type File string

// Descriptor loads the file.
func (f File) Descriptor() (*Descriptor, error) { return Load(string(f)) }
