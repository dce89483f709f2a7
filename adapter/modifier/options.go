package modifier

import "github.com/dadi/api-filestore/domain"

// WithComparer sets the [domain.Comparer] used by $addToSet, $max and $min.
func WithComparer(c domain.Comparer) Option {
	return func(m *Modifier) {
		m.comp = c
	}
}

// WithDocumentFactory sets the [domain.DocumentFactory] used to read update
// expressions and to create intermediate documents.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(m *Modifier) {
		m.docFac = d
	}
}

// WithFieldNavigator sets the [domain.FieldNavigator] used to resolve field
// addresses.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Modifier) {
		m.fieldNavigator = f
	}
}

// WithMatcherFactory sets the factory of the [domain.Matcher] used by $pull.
func WithMatcherFactory(f domain.MatcherFactory) Option {
	return func(m *Modifier) {
		m.matcherFac = f
	}
}

// Option configures modifier behavior through the functional options
// pattern.
type Option func(*Modifier)
