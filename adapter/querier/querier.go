// Package querier runs the steps of a query pipeline over documents: filter,
// single-property sort and offset/limit windows.
package querier

import (
	"fmt"
	"slices"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/adapter/matcher"
	"github.com/dadi/api-filestore/domain"
)

// Querier filters, sorts and slices lists of documents.
type Querier struct {
	matcherFac domain.MatcherFactory
	cmpr       domain.Comparer
	fn         domain.FieldNavigator
	docFac     domain.DocumentFactory
}

// NewQuerier returns a new Querier.
func NewQuerier(opts ...Option) *Querier {
	q := Querier{
		docFac: data.NewDocument,
		cmpr:   comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.fn == nil {
		q.fn = fieldnavigator.NewFieldNavigator(q.docFac)
	}
	if q.matcherFac == nil {
		q.matcherFac = func() domain.Matcher {
			return matcher.NewMatcher(
				matcher.WithComparer(q.cmpr),
				matcher.WithDocumentFactory(q.docFac),
				matcher.WithFieldNavigator(q.fn),
			)
		}
	}
	return &q
}

// Filter returns the documents matching the engine query, keeping their
// order. A nil query matches every document.
func (q *Querier) Filter(docs []domain.Document, query any) ([]domain.Document, error) {
	if query == nil {
		return docs, nil
	}
	mtchr := q.matcherFac()
	if err := mtchr.SetQuery(query); err != nil {
		return nil, err
	}

	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		matches, err := mtchr.Match(doc)
		if err != nil {
			return nil, fmt.Errorf("matching document: %w", err)
		}
		if matches {
			res = append(res, doc)
		}
	}
	return res, nil
}

// Sort returns a copy of docs ordered by the plan property. Equal values keep
// their previous order.
func (q *Querier) Sort(docs []domain.Document, plan domain.SortPlan) ([]domain.Document, error) {
	addr, err := q.fn.GetAddress(plan.Property)
	if err != nil {
		return nil, fmt.Errorf("getting address: %w", err)
	}

	type keyed struct {
		doc domain.Document
		key any
	}
	items := make([]keyed, len(docs))
	for n, doc := range docs {
		items[n].doc = doc
		if items[n].key, err = q.sortKey(doc, addr); err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		if err != nil {
			return 0
		}
		comp, cErr := q.cmpr.Compare(a.key, b.key)
		if cErr != nil {
			err = fmt.Errorf("comparing: %w", cErr)
			return 0
		}
		if plan.Descending {
			return -comp
		}
		return comp
	})
	if err != nil {
		return nil, err
	}

	res := make([]domain.Document, len(items))
	for n, item := range items {
		res[n] = item.doc
	}
	return res, nil
}

func (q *Querier) sortKey(doc domain.Document, addr []string) (any, error) {
	values, expanded, err := q.fn.GetField(doc, addr...)
	if err != nil {
		return nil, fmt.Errorf("getting field: %w", err)
	}
	if !expanded {
		if len(values) == 0 {
			return domain.Undefined, nil
		}
		return values[0], nil
	}
	res := make([]any, 0, len(values))
	for _, v := range values {
		if val, ok := v.Get(); ok {
			res = append(res, val)
		}
	}
	return res, nil
}

// Window returns the documents after skipping the first skip ones, with at
// most limit documents. A non-positive limit keeps every remaining document.
func (q *Querier) Window(docs []domain.Document, skip, limit int) []domain.Document {
	length := len(docs)

	skip = max(skip, 0)      // skip cannot be negative
	skip = min(skip, length) // cannot skip more than length

	end := length
	if limit > 0 {
		end = min(skip+limit, length)
	}

	return docs[skip:end]
}
