package matcher

import "github.com/dadi/api-filestore/domain"

// WithDocumentFactory sets the document factory used to read query objects.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(mo *Matcher) {
		mo.documentFactory = d
	}
}

// WithComparer sets the comparer implementation for value comparisons during
// matching.
func WithComparer(c domain.Comparer) Option {
	return func(mo *Matcher) {
		mo.comparer = c
	}
}

// WithFieldNavigator sets the field getter for accessing document fields during
// matching.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(mo *Matcher) {
		mo.fieldNavigator = f
	}
}

// WithCompoundQueries allows query and operator objects holding more than
// one expression, which are then joined with "and". The engine default only
// accepts single-expression objects.
func WithCompoundQueries(allow bool) Option {
	return func(mo *Matcher) {
		mo.compound = allow
	}
}

// Option configures matcher behavior through the functional options pattern.
type Option func(*Matcher)
