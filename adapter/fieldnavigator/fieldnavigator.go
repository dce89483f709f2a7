// Package fieldnavigator resolves dotted field addresses inside documents.
//
// Numeric address parts index arrays. Any other part applied to an array is
// applied to each of its elements, so "tags.name" reads the name of every
// tag. Arrays are only expanded once per address.
package fieldnavigator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dadi/api-filestore/domain"
)

// ErrNotTraversable is returned by EnsureField when an intermediate value is
// neither a document nor an array.
type ErrNotTraversable struct {
	Part string
	Type string
}

// Error implements [error].
func (e ErrNotTraversable) Error() string {
	return fmt.Sprintf("cannot create field %q in element of type %s", e.Part, e.Type)
}

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct {
	docFac domain.DocumentFactory
}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator(docFac domain.DocumentFactory) domain.FieldNavigator {
	return &FieldNavigator{
		docFac: docFac,
	}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	if field == "" {
		return nil, fmt.Errorf("empty field address")
	}
	return strings.Split(field, "."), nil
}

// GetField implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetField(obj any, fieldParts ...string) ([]domain.GetSetter, bool, error) {
	if obj == nil || len(fieldParts) == 0 {
		return []domain.GetSetter{NewGetSetterEmpty()}, false, nil
	}
	res, expanded := fn.get(obj, fieldParts, true)
	return res, expanded, nil
}

func (fn *FieldNavigator) get(obj any, parts []string, expandable bool) ([]domain.GetSetter, bool) {
	part, rest := parts[0], parts[1:]

	switch t := obj.(type) {
	case domain.Document:
		if !t.Has(part) {
			return []domain.GetSetter{NewGetSetterEmpty()}, false
		}
		if len(rest) == 0 {
			return []domain.GetSetter{NewGetSetterWithDoc(t, part)}, false
		}
		return fn.get(t.Get(part), rest, true)
	case []any:
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 || i >= len(t) {
				return []domain.GetSetter{NewGetSetterEmpty()}, false
			}
			if len(rest) == 0 {
				return []domain.GetSetter{NewGetSetterWithArrayIndex(t, i)}, false
			}
			return fn.get(t[i], rest, true)
		}
		if !expandable {
			return []domain.GetSetter{NewGetSetterEmpty()}, false
		}
		res := make([]domain.GetSetter, 0, len(t))
		for _, item := range t {
			sub, _ := fn.get(item, parts, false)
			res = append(res, sub...)
		}
		return res, true
	default:
		return []domain.GetSetter{NewGetSetterEmpty()}, false
	}
}

// EnsureField implements [domain.FieldNavigator]. Missing intermediate keys
// are created as empty documents. A missing last key is left unset, so the
// returned [domain.GetSetter] reports it as undefined until it is Set.
// Arrays are never expanded.
func (fn *FieldNavigator) EnsureField(obj any, fieldParts ...string) ([]domain.GetSetter, error) {
	if len(fieldParts) == 0 {
		return []domain.GetSetter{NewGetSetterEmpty()}, nil
	}

	curr := obj
	for idx, part := range fieldParts {
		last := idx == len(fieldParts)-1
		switch t := curr.(type) {
		case domain.Document:
			if !t.Has(part) {
				if last {
					return []domain.GetSetter{NewGetSetterWithDoc(t, part)}, nil
				}
				newDoc, err := fn.docFac(nil)
				if err != nil {
					return nil, err
				}
				t.Set(part, newDoc)
			}
			if last {
				return []domain.GetSetter{NewGetSetterWithDoc(t, part)}, nil
			}
			curr = t.Get(part)
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(t) {
				return nil, ErrNotTraversable{Part: part, Type: "array"}
			}
			if last {
				return []domain.GetSetter{NewGetSetterWithArrayIndex(t, i)}, nil
			}
			curr = t[i]
		default:
			return nil, ErrNotTraversable{Part: part, Type: fmt.Sprintf("%T", curr)}
		}
	}
	return []domain.GetSetter{NewGetSetterEmpty()}, nil
}
