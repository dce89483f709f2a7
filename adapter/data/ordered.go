package data

import (
	"iter"
	"slices"

	"github.com/dadi/api-filestore/domain"
)

// E is a single field of a [D].
type E struct {
	Key   string
	Value any
}

// D implements domain.Document keeping the insertion order of its fields.
// Use it for filters whose expression order matters. D is a slice, so Set
// on a missing key only affects the receiver when called through a pointer;
// value receivers replace existing keys in place and ignore new ones.
type D []E

func (d D) index(key string) int {
	return slices.IndexFunc(d, func(e E) bool { return e.Key == key })
}

// ID implements domain.Document.
func (d D) ID() any {
	return d.Get(domain.FieldID)
}

// D implements domain.Document.
func (d D) D(key string) domain.Document {
	if doc, ok := d.Get(key).(domain.Document); ok {
		return doc
	}
	return nil
}

// Get implements domain.Document.
func (d D) Get(key string) any {
	if i := d.index(key); i >= 0 && d[i].Value != domain.Undefined {
		return d[i].Value
	}
	return nil
}

// Set implements domain.Document.
func (d D) Set(key string, value any) {
	if i := d.index(key); i >= 0 {
		d[i].Value = value
	}
}

// Unset implements domain.Document. Like Set, it cannot shrink the slice
// through a value receiver, so the key is blanked instead.
func (d D) Unset(key string) {
	if i := d.index(key); i >= 0 {
		d[i].Value = domain.Undefined
	}
}

// Iter implements domain.Document.
func (d D) Iter() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range d {
			if e.Value == domain.Undefined {
				continue
			}
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys implements domain.Document.
func (d D) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for k := range d.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values implements domain.Document.
func (d D) Values() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range d.Iter() {
			if !yield(v) {
				return
			}
		}
	}
}

// Has implements domain.Document.
func (d D) Has(key string) bool {
	i := d.index(key)
	return i >= 0 && d[i].Value != domain.Undefined
}

// Len implements domain.Document.
func (d D) Len() int {
	n := 0
	for range d.Iter() {
		n++
	}
	return n
}

// M converts d to an unordered document. Nested values are shared.
func (d D) M() M {
	res := make(M, len(d))
	for k, v := range d.Iter() {
		res[k] = v
	}
	return res
}
