// Package data contains the default [domain.Document] implementations and
// the helpers used to build documents out of maps and structs.
package data

import (
	"fmt"
	"iter"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/dadi/api-filestore/domain"
)

// TagName is the struct tag read when converting structs to documents.
const TagName = "filestore"

var (
	timeTyp = goreflect.TypeOf(*new(time.Time))
)

// M implements domain.Document by using a hashed map. Duplicates replace old
// values.
type M map[string]any

// NewDocument returns a new instance of [domain.Document]. Nested maps are
// converted to [M] and nested slices to []any, so every level of the result
// can be navigated the same way.
func NewDocument(in any) (domain.Document, error) {
	switch t := in.(type) {
	case nil:
		return M{}, nil
	case D:
		return t, nil
	case domain.Document:
		return t, nil
	case map[string]any:
		return convertMap(t)
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == reflect.Pointer {
		if r.IsNil() {
			return M{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if k != goreflect.Struct && k != goreflect.Map {
		return nil, fmt.Errorf("%w: expected map or struct, got %s", domain.ErrDocumentType, r.Type().String())
	}
	doc, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	return doc.(domain.Document), nil
}

func convertMap(in map[string]any) (M, error) {
	res := make(M, len(in))
	for k, v := range in {
		var err error
		if res[k], err = convertValue(v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func convertValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return convertMap(t)
	case M:
		return convertMap(t)
	case []any:
		res := make([]any, len(t))
		for i, item := range t {
			var err error
			if res[i], err = convertValue(item); err != nil {
				return nil, err
			}
		}
		return res, nil
	case nil, string, bool, float64, int, int64, time.Time, D, *regexp.Regexp, Regex, domain.Getter:
		return v, nil
	default:
		r := goreflect.ValueNoEscapeOf(v)
		switch r.Kind() {
		case goreflect.Map, goreflect.Struct, goreflect.Slice, goreflect.Array, goreflect.Ptr:
			return parseReflect(r)
		default:
			return v, nil
		}
	}
}

func parseReflect(r goreflect.Value) (any, error) {
	if r.IsValid() && r.CanInterface() {
		if rx, ok := r.Interface().(*regexp.Regexp); ok {
			return rx, nil
		}
	}
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		if r.Type().Elem().Kind() == reflect.Uint8 {
			return r.Interface(), nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		if v, ok := r.Interface().(Regex); ok {
			return v, nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMapReflect(r)
	case goreflect.Chan, goreflect.Func:
		if r.IsNil() {
			return nil, nil
		}
		return r.Interface(), nil
	default:
		return convertValue(r.Interface())
	}
}

func parseStruct(r goreflect.Value) (domain.Document, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(M, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}

		fieldInfo, err := parseField(r.Field(n), field)
		if err != nil {
			return nil, err
		}
		if fieldInfo == nil {
			continue
		}
		res[fieldInfo.name] = fieldInfo.value
	}
	return res, nil
}

func parseMapReflect(v goreflect.Value) (domain.Document, error) {
	res := make(M, v.Len())
	for _, k := range v.MapKeys() {
		if k.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys should be strings, got %s", domain.ErrDocumentType, k.Type().String())
		}
		var err error
		if res[k.String()], err = parseReflect(v.MapIndex(k)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type field struct {
	name  string
	value any
}

func parseField(r goreflect.Value, typ goreflect.StructField) (*field, error) {
	name := typ.Name
	var tagSegments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return nil, nil
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return nil, nil
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return nil, nil
	}

	value, err := parseReflect(r)
	if err != nil {
		return nil, err
	}

	return &field{name: name, value: value}, nil
}

func parseList(r goreflect.Value) (any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		v, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}

// ID implements domain.Document
func (d M) ID() any {
	return d[domain.FieldID]
}

// Get implements domain.Document
func (d M) Get(key string) any {
	return d[key]
}

// Set implements domain.Document
func (d M) Set(key string, value any) {
	d[key] = value
}

// Unset implements domain.Document
func (d M) Unset(key string) {
	delete(d, key)
}

// D implements domain.Document
func (d M) D(key string) domain.Document {
	if doc, ok := d[key].(domain.Document); ok {
		return doc
	}
	return nil
}

// Iter implements domain.Document. Keys are yielded in sorted order.
func (d M) Iter() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range slices.Sorted(maps.Keys(d)) {
			if !yield(k, d[k]) {
				return
			}
		}
	}
}

// Keys implements domain.Document. Keys are yielded in sorted order.
func (d M) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range slices.Sorted(maps.Keys(d)) {
			if !yield(k) {
				return
			}
		}
	}
}

// Len implements domain.Document.
func (d M) Len() int {
	return len(d)
}

// Values implements domain.Document.
func (d M) Values() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, k := range slices.Sorted(maps.Keys(d)) {
			if !yield(d[k]) {
				return
			}
		}
	}
}

// Has implements domain.Document.
func (d M) Has(key string) bool {
	_, has := d[key]
	return has
}
