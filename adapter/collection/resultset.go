package collection

import (
	"context"
	"regexp"
	"slices"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/domain"
)

type stepKind uint8

const (
	stepFind stepKind = iota
	stepSort
	stepOffset
	stepLimit
)

type step struct {
	kind  stepKind
	query any
	sort  domain.SortPlan
	n     int
}

// Resultset implements [domain.Resultset]. Steps are recorded by the builder
// methods and run, in order, by the terminal ones.
type Resultset struct {
	coll  *Collection
	steps []step
}

func (r *Resultset) with(s step) domain.Resultset {
	r.steps = append(r.steps, s)
	return r
}

// Find implements [domain.Resultset].
func (r *Resultset) Find(query any) domain.Resultset {
	return r.with(step{kind: stepFind, query: query})
}

// Branch implements [domain.Resultset].
func (r *Resultset) Branch() domain.Resultset {
	return &Resultset{coll: r.coll, steps: slices.Clone(r.steps)}
}

// SimpleSort implements [domain.Resultset].
func (r *Resultset) SimpleSort(property string, descending bool) domain.Resultset {
	return r.with(step{kind: stepSort, sort: domain.SortPlan{Property: property, Descending: descending}})
}

// Offset implements [domain.Resultset].
func (r *Resultset) Offset(n int) domain.Resultset {
	return r.with(step{kind: stepOffset, n: n})
}

// Limit implements [domain.Resultset].
func (r *Resultset) Limit(n int) domain.Resultset {
	return r.with(step{kind: stepLimit, n: n})
}

// Count implements [domain.Resultset].
func (r *Resultset) Count(ctx context.Context) (int, error) {
	if err := r.coll.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer r.coll.executor.Unlock()

	docs, err := r.run()
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Data implements [domain.Resultset].
func (r *Resultset) Data(ctx context.Context) ([]domain.Document, error) {
	if err := r.coll.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer r.coll.executor.Unlock()

	docs, err := r.run()
	if err != nil {
		return nil, err
	}
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = data.CloneDocument(doc)
	}
	return res, nil
}

// Remove implements [domain.Resultset].
func (r *Resultset) Remove(ctx context.Context) (int, error) {
	if err := r.coll.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer r.coll.executor.Unlock()

	docs, err := r.run()
	if err != nil {
		return 0, err
	}
	if err := r.coll.removeDocs(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (r *Resultset) run() ([]domain.Document, error) {
	steps := r.steps
	var docs []domain.Document
	var err error

	if len(steps) > 0 && steps[0].kind == stepFind {
		docs, err = r.coll.candidates(steps[0].query)
	} else {
		docs = r.coll.allData()
	}
	if err != nil {
		return nil, err
	}

	q := r.coll.querier
	for _, s := range steps {
		switch s.kind {
		case stepFind:
			docs, err = q.Filter(docs, s.query)
		case stepSort:
			docs, err = q.Sort(docs, s.sort)
		case stepOffset:
			docs = q.Window(docs, s.n, 0)
		case stepLimit:
			if s.n > 0 {
				docs = q.Window(docs, 0, s.n)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// candidates narrows the documents to check with an index when the query is a
// single equality or $in on an indexed field. The query is still applied to
// the candidates afterwards.
func (c *Collection) candidates(query any) ([]domain.Document, error) {
	doc, ok := query.(domain.Document)
	if !ok || doc.Len() != 1 {
		return c.allData(), nil
	}

	var field string
	var value any
	for k, v := range doc.Iter() {
		field, value = k, v
	}
	idx, ok := c.indexes[field]
	if !ok {
		return c.allData(), nil
	}

	values, ok := indexableValues(value)
	if !ok {
		return c.allData(), nil
	}

	lokis, err := idx.GetMatching(values...)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(lokis))
	for _, loki := range lokis {
		if rec, found := c.records.Get(record{loki: loki}); found {
			res = append(res, rec.doc)
		}
	}
	return res, nil
}

// indexableValues returns the values an index lookup must match.
func indexableValues(value any) ([]any, bool) {
	if sub, ok := value.(domain.Document); ok {
		if sub.Len() != 1 {
			return nil, false
		}
		switch {
		case sub.Has("$eq"):
			return indexableValues(sub.Get("$eq"))
		case sub.Has("$in"):
			list, ok := sub.Get("$in").([]any)
			if !ok {
				return nil, false
			}
			for _, item := range list {
				if !scalar(item) {
					return nil, false
				}
			}
			return list, true
		}
		return nil, false
	}
	if !scalar(value) {
		return nil, false
	}
	return []any{value}, true
}

func scalar(v any) bool {
	switch v.(type) {
	case nil, domain.Document, []any, domain.Getter, data.Regex, *regexp.Regexp:
		return false
	}
	return true
}
