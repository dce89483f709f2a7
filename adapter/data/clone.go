package data

import (
	"maps"
	"time"

	"github.com/dadi/api-filestore/domain"
)

// Clone returns a deep copy of a document value. Documents are copied into
// [M], slices into []any, other values are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case M:
		res := make(M, len(t))
		for k, item := range t {
			res[k] = Clone(item)
		}
		return res
	case D:
		res := make(M, len(t))
		for k, item := range t.Iter() {
			res[k] = Clone(item)
		}
		return res
	case map[string]any:
		return Clone(M(t))
	case domain.Document:
		res := make(M, t.Len())
		for k, item := range t.Iter() {
			res[k] = Clone(item)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for i, item := range t {
			res[i] = Clone(item)
		}
		return res
	case time.Time:
		return t
	default:
		return v
	}
}

// CloneDocument returns a deep copy of the document.
func CloneDocument(doc domain.Document) M {
	if doc == nil {
		return M{}
	}
	return Clone(doc).(M)
}

// Without returns a shallow copy of the document without the given keys.
func Without(doc M, keys ...string) M {
	res := maps.Clone(doc)
	for _, k := range keys {
		delete(res, k)
	}
	return res
}
