package normalizer

import "github.com/dadi/api-filestore/domain"

// WithDocumentFactory sets the document factory used to read filters.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(n *Normalizer) {
		n.documentFactory = d
	}
}

// Option configures normalizer behavior through the functional options
// pattern.
type Option func(*Normalizer)
