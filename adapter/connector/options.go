package connector

import (
	"log/slog"

	"github.com/dadi/api-filestore/adapter/database"
	"github.com/dadi/api-filestore/domain"
)

// WithPath sets the directory holding the datafiles.
func WithPath(p string) Option {
	return func(c *Connector) {
		c.path = p
	}
}

// WithExtension sets the datafile extension, [DefaultExtension] by default.
func WithExtension(e string) Option {
	return func(c *Connector) {
		c.extension = e
	}
}

// WithDefaultDatabase sets the database opened by operations called before
// [Connector.Connect].
func WithDefaultDatabase(name string) Option {
	return func(c *Connector) {
		c.defaultDatabase = name
	}
}

// WithLogger sets the logger. It defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) {
		c.logger = l
	}
}

// WithDatabaseFactory replaces the function opening databases.
func WithDatabaseFactory(f domain.DatabaseFactory) Option {
	return func(c *Connector) {
		c.openDatabase = f
	}
}

// WithDatabaseOptions sets options for the default database factory.
func WithDatabaseOptions(opts ...database.Option) Option {
	return func(c *Connector) {
		c.databaseOptions = append(c.databaseOptions, opts...)
	}
}

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(c *Connector) {
		c.docFac = df
	}
}

// WithNormalizer sets the filter normalizer.
func WithNormalizer(n domain.Normalizer) Option {
	return func(c *Connector) {
		c.normalizer = n
	}
}

// WithProjector sets the projector applied to find results.
func WithProjector(p domain.Projector) Option {
	return func(c *Connector) {
		c.projector = p
	}
}

// WithPaginator sets the sort and window resolver.
func WithPaginator(p domain.Paginator) Option {
	return func(c *Connector) {
		c.paginator = p
	}
}

// WithModifier sets the update interpreter.
func WithModifier(m domain.Modifier) Option {
	return func(c *Connector) {
		c.modifier = m
	}
}

// Option configures connector behavior through the functional options
// pattern.
type Option func(*Connector)
