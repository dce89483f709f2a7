// Package projector contains the default [domain.Projector] implementation.
//
// A projection is expanded into a tree of dotted paths. Inclusion trees copy
// only the named leaves, exclusion trees copy everything but the named
// leaves. The "_id" field is always kept.
package projector

import (
	"maps"
	"slices"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/domain"
)

type node struct {
	leaf bool
	keep bool
	sub  tree
}

type tree map[string]*node

type plan struct {
	tree    tree
	exclude bool
}

// Projector implements [domain.Projector].
type Projector struct {
	fn     domain.FieldNavigator
	docFac domain.DocumentFactory
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...Option) domain.Projector {
	p := Projector{docFac: data.NewDocument}
	for _, opt := range opts {
		opt(&p)
	}
	if p.fn == nil {
		p.fn = fieldnavigator.NewFieldNavigator(p.docFac)
	}
	return &p
}

// Project implements [domain.Projector].
func (q *Projector) Project(proj domain.Projection, docs []domain.Document) ([]domain.Document, error) {
	pl, err := q.plan(proj)
	if err != nil || pl == nil {
		return docs, err
	}

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = q.projectDoc(doc, pl)
	}
	return res, nil
}

// ProjectOne implements [domain.Projector].
func (q *Projector) ProjectOne(proj domain.Projection, doc domain.Document) (domain.Document, error) {
	pl, err := q.plan(proj)
	if err != nil || pl == nil {
		return doc, err
	}
	return q.projectDoc(doc, pl), nil
}

type entry struct {
	path string
	keep bool
}

func (q *Projector) entries(proj domain.Projection) []entry {
	switch p := proj.(type) {
	case domain.FieldList:
		if len(p) == 0 {
			return nil
		}
		res := make([]entry, 0, len(p)+1)
		for _, field := range p {
			res = append(res, entry{path: field, keep: true})
		}
		if !slices.Contains(p, domain.FieldID) {
			res = append(res, entry{path: domain.FieldID, keep: true})
		}
		return res
	case domain.FieldMap:
		res := make([]entry, 0, len(p))
		for _, field := range slices.Sorted(maps.Keys(p)) {
			res = append(res, entry{path: field, keep: p[field] != 0})
		}
		return res
	default:
		return nil
	}
}

// plan returns nil when the projection is empty.
func (q *Projector) plan(proj domain.Projection) (*plan, error) {
	entries := q.entries(proj)
	if len(entries) == 0 {
		return nil, nil
	}

	root := tree{}
	for _, e := range entries {
		addr, err := q.fn.GetAddress(e.path)
		if err != nil {
			return nil, err
		}
		root.insert(addr, e.keep)
	}

	var include, exclude bool
	root.walk(true, func(top bool, key string, n *node) {
		if top && key == domain.FieldID {
			return
		}
		if n.keep {
			include = true
		} else {
			exclude = true
		}
	})
	if include && exclude {
		return nil, domain.ErrMixedProjection
	}
	if !include && !exclude {
		// only _id was named
		if id := root[domain.FieldID]; id != nil && !id.keep {
			exclude = true
		}
	}
	return &plan{tree: root, exclude: exclude}, nil
}

// insert adds a path to the tree. A later definition replaces an earlier
// one sharing its prefix.
func (t tree) insert(addr []string, keep bool) {
	curr := t
	for i, part := range addr {
		if i == len(addr)-1 {
			curr[part] = &node{leaf: true, keep: keep}
			return
		}
		n := curr[part]
		if n == nil || n.leaf {
			n = &node{sub: tree{}}
			curr[part] = n
		}
		curr = n.sub
	}
}

func (t tree) walk(top bool, fn func(top bool, key string, n *node)) {
	for key, n := range t {
		if n.leaf {
			fn(top, key, n)
			continue
		}
		n.sub.walk(false, fn)
	}
}

func (q *Projector) projectDoc(doc domain.Document, pl *plan) domain.Document {
	res := q.rebuild(doc, pl.tree, pl.exclude)
	if doc.Has(domain.FieldID) {
		res[domain.FieldID] = data.Clone(doc.ID())
	}
	return res
}

func (q *Projector) rebuild(doc domain.Document, t tree, exclude bool) data.M {
	res := make(data.M)
	if exclude {
		for key, value := range doc.Iter() {
			n, named := t[key]
			switch {
			case !named:
				res[key] = data.Clone(value)
			case n.leaf:
			default:
				res[key] = q.nested(value, n.sub, exclude)
			}
		}
		return res
	}

	for key, n := range t {
		if !doc.Has(key) {
			continue
		}
		value := doc.Get(key)
		if n.leaf {
			res[key] = data.Clone(value)
			continue
		}
		if v, ok := q.nestedInclude(value, n.sub); ok {
			res[key] = v
		}
	}
	return res
}

func (q *Projector) nested(value any, t tree, exclude bool) any {
	switch v := value.(type) {
	case domain.Document:
		return q.rebuild(v, t, exclude)
	case []any:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = q.nested(item, t, exclude)
		}
		return res
	default:
		return data.Clone(value)
	}
}

// nestedInclude applies an inclusion subtree. Values that are neither
// documents nor arrays have none of the requested fields and are dropped.
func (q *Projector) nestedInclude(value any, t tree) (any, bool) {
	switch v := value.(type) {
	case domain.Document:
		return q.rebuild(v, t, false), true
	case []any:
		res := make([]any, 0, len(v))
		for _, item := range v {
			if projected, ok := q.nestedInclude(item, t); ok {
				res = append(res, projected)
			}
		}
		return res, true
	default:
		return nil, false
	}
}
