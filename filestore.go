// Package filestore provides a collection store backed by embedded,
// file-based databases.
//
// A [Connector] opens one database file per database name and exposes the
// usual data-layer operations over its collections: find with filter,
// projection, sort and pagination, insert, update with operator expressions,
// delete, index management and database drops.
//
// The basic usage starts with creating a new [Connector] by calling [New]
// and connecting it to a database with [Connector.Connect].
package filestore

import (
	"github.com/dadi/api-filestore/adapter/connector"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/database"
	"github.com/dadi/api-filestore/adapter/serializer"
	"github.com/dadi/api-filestore/domain"
)

var (
	// ErrNotConnected is returned when the connector has no database and
	// no default database to connect to.
	ErrNotConnected = domain.ErrNotConnected
	// ErrClosed is returned when using a closed [Connector].
	ErrClosed = domain.ErrClosed
	// ErrDatabaseLocked is returned when another owner holds the datafile.
	ErrDatabaseLocked = domain.ErrDatabaseLocked
	// ErrMixedProjection is returned for projections that include and
	// exclude fields at the same time.
	ErrMixedProjection = domain.ErrMixedProjection
	// ErrInvalidSort is returned when a sort names more than one property.
	ErrInvalidSort = domain.ErrInvalidSort
	// ErrInvalidWindow is returned for negative skip or limit values.
	ErrInvalidWindow = domain.ErrInvalidWindow
	// ErrCannotModifyID is returned by updates that would change a
	// document _id.
	ErrCannotModifyID = domain.ErrCannotModifyID
	// ErrDocumentType is returned when a value cannot be used as a
	// document.
	ErrDocumentType = domain.ErrDocumentType
)

// ErrDatabaseMismatch is returned when a connected [Connector] is asked for
// another database.
type ErrDatabaseMismatch = domain.ErrDatabaseMismatch

// ErrConstraintViolated is returned when a unique index already holds the
// inserted or updated value.
type ErrConstraintViolated = domain.ErrConstraintViolated

// ErrUnsupportedOperator is returned for unknown update operators and for
// replacement updates.
type ErrUnsupportedOperator = domain.ErrUnsupportedOperator

// ErrFieldName is returned for documents with reserved or forbidden field
// names.
type ErrFieldName = domain.ErrFieldName

// ErrCorruptFile is returned when a datafile cannot be decoded.
type ErrCorruptFile = domain.ErrCorruptFile

// Connector is the collection store facade.
type Connector = connector.Connector

// Option configures a [Connector].
type Option = connector.Option

// Document is a stored record.
type Document = domain.Document

// M is the default [Document] implementation.
type M = data.M

// Projection selects the returned fields, either as a [FieldList] or as a
// [FieldMap].
type Projection = domain.Projection

// FieldList lists the returned fields.
type FieldList = domain.FieldList

// FieldMap maps fields to 1 (include) or 0 (exclude).
type FieldMap = domain.FieldMap

// Parameter and result types of the [Connector] methods.
type (
	ConnectParams = domain.ConnectParams
	FindParams    = domain.FindParams
	FindOptions   = domain.FindOptions
	FindResult    = domain.FindResult
	InsertParams  = domain.InsertParams
	UpdateParams  = domain.UpdateParams
	UpdateResult  = domain.UpdateResult
	DeleteParams  = domain.DeleteParams
	DeleteResult  = domain.DeleteResult
	IndexSpec     = domain.IndexSpec
	IndexOptions  = domain.IndexOptions
	IndexResult   = domain.IndexResult
	IndexInfo     = domain.IndexInfo
	Stats         = domain.Stats
	Metadata      = domain.Metadata
)

// FindOption configures [FindOptions].
type FindOption = domain.FindOption

// NewFindOptions builds [FindOptions] from options such as [WithSkip],
// [WithLimit], [WithSort] and [WithFields].
func NewFindOptions(options ...FindOption) FindOptions {
	return domain.NewFindOptions(options...)
}

// WithSkip sets the number of skipped documents.
func WithSkip(s int) FindOption { return domain.WithSkip(s) }

// WithLimit sets the page size.
func WithLimit(l int) FindOption { return domain.WithLimit(l) }

// WithSort sets the sort property. The order is descending only when
// direction is -1.
func WithSort(property string, direction int) FindOption {
	return domain.WithSort(property, direction)
}

// WithFields sets the projection.
func WithFields(p Projection) FindOption { return domain.WithFields(p) }

// New creates a new, disconnected [Connector] with the provided options:
//
// - [WithPath]: sets the directory holding the datafiles.
//
// - [WithDefaultDatabase]: sets the database used before any Connect call.
//
// - [WithAutosave]: enables or disables the periodic flush.
//
// - [WithSerializationMode]: sets the datafile layout.
//
// Lower level options live in the connector and database packages.
func New(options ...Option) *Connector {
	return connector.NewConnector(options...)
}

// WithPath sets the directory holding the datafiles.
func WithPath(p string) Option { return connector.WithPath(p) }

// WithDefaultDatabase sets the database opened by operations called before
// [Connector.Connect].
func WithDefaultDatabase(name string) Option {
	return connector.WithDefaultDatabase(name)
}

// WithAutosave enables or disables flushing changes in the background.
func WithAutosave(enabled bool) Option {
	return connector.WithDatabaseOptions(database.WithAutosave(enabled))
}

// WithSerializationMode sets how datafiles are written: "normal",
// "pretty" or "compressed".
func WithSerializationMode(mode string) (Option, error) {
	m, err := serializer.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return connector.WithDatabaseOptions(database.WithSerializationMode(m)), nil
}
