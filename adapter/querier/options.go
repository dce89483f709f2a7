package querier

import "github.com/dadi/api-filestore/domain"

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(q *Querier) {
		q.docFac = df
	}
}

// WithMatcherFactory sets the constructor of the matchers used to
// filter documents.
func WithMatcherFactory(m domain.MatcherFactory) Option {
	return func(q *Querier) {
		q.matcherFac = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.cmpr = c
	}
}

// WithFieldNavigator sets the field getter for accessing document
// fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) {
		q.fn = f
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
