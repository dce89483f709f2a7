package collection

import (
	"github.com/dadi/api-filestore/adapter/querier"
	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/pkg/ctxsync"
)

// WithExecutor sets the mutex serializing the collection operations. The
// owning database shares its own executor with every collection.
func WithExecutor(m *ctxsync.Mutex) Option {
	return func(c *Collection) {
		c.executor = m
	}
}

// WithIndexFactory sets the constructor of the collection indexes.
func WithIndexFactory(f domain.IndexFactory) Option {
	return func(c *Collection) {
		c.indexFactory = f
	}
}

// WithIDGenerator sets the generator of missing "_id" values.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(c *Collection) {
		c.idGenerator = g
	}
}

// WithTimeGetter sets the clock used for document metadata.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(c *Collection) {
		c.timeGetter = t
	}
}

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(c *Collection) {
		c.docFac = df
	}
}

// WithFieldNavigator sets the field navigator used for dotted paths.
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(c *Collection) {
		c.fn = fn
	}
}

// WithComparer sets the comparer used by queries and indexes.
func WithComparer(cmp domain.Comparer) Option {
	return func(c *Collection) {
		c.comparer = cmp
	}
}

// WithQuerier sets the querier running the resultset steps.
func WithQuerier(q *querier.Querier) Option {
	return func(c *Collection) {
		c.querier = q
	}
}

// WithOnChange sets a callback run, under the executor, after every change
// to the collection.
func WithOnChange(f func()) Option {
	return func(c *Collection) {
		c.onChange = f
	}
}

// Option configures collection behavior through the functional options
// pattern.
type Option func(*Collection)
