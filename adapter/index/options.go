package index

import "github.com/dadi/api-filestore/domain"

// WithComparer sets the [domain.Comparer] used to order the index keys.
func WithComparer(c domain.Comparer) Option {
	return func(i *Index) {
		i.comparer = c
	}
}

// WithFieldNavigator sets the [domain.FieldNavigator] used to read the
// indexed field.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(i *Index) {
		i.fieldNavigator = f
	}
}

// Option configures index behavior through the functional options pattern.
type Option func(*Index)
