package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMixedProjection is returned when a projection includes and
	// excludes fields at the same time.
	ErrMixedProjection = errors.New("cannot mix inclusion and exclusion in projection")
	// ErrMixedOperators is returned when a filter sub-document mixes
	// operators and plain fields.
	ErrMixedOperators = errors.New("cannot mix operators and normal fields")
	// ErrCompoundQuery is returned when an engine query object holds more
	// than one expression. Normalized filters never do.
	ErrCompoundQuery = errors.New("engine query objects must hold exactly one expression")
	// ErrInvalidSort is returned when a sort names more than one property.
	ErrInvalidSort = errors.New("sort must name a single property")
	// ErrInvalidWindow is returned for negative skip or limit values.
	ErrInvalidWindow = errors.New("skip and limit cannot be negative")
	// ErrNotConnected is returned when the connector has no database and no
	// default database to connect to.
	ErrNotConnected = errors.New("connector is not connected")
	// ErrClosed is returned for any use of a closed connector or database.
	ErrClosed = errors.New("connection closed")
	// ErrDatabaseLocked is returned when another owner holds the datafile.
	ErrDatabaseLocked = errors.New("database file is locked by another owner")
	// ErrCannotModifyID is returned when an update changes "_id" or
	// "$loki".
	ErrCannotModifyID = errors.New("you cannot change a document's _id")
	// ErrNoCollection is returned when an operation names no collection.
	ErrNoCollection = errors.New("collection name is required")
	// ErrDocumentType is returned when a value cannot be used as a document.
	ErrDocumentType = errors.New("value is not a document")
)

// ErrTargetNil is returned when the decode target is nil.
type ErrTargetNil struct{}

func (e ErrTargetNil) Error() string { return "target interface is nil" }

// ErrNonPointer is returned when the decode target is not a pointer.
type ErrNonPointer struct {
	Target any
}

func (e ErrNonPointer) Error() string {
	return fmt.Sprintf("decode target should be a pointer, got %T", e.Target)
}

// ErrUnsupportedOperator is returned for update operators outside the
// supported set.
type ErrUnsupportedOperator struct {
	Operator string
}

func (e ErrUnsupportedOperator) Error() string {
	return fmt.Sprintf("unsupported update operator %q", e.Operator)
}

// ErrUnknownOperator is returned for filter operators outside the supported
// set.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrModifierType is returned when an update operator meets a value of the
// wrong type.
type ErrModifierType struct {
	Operator string
	Field    string
	Reason   string
}

func (e ErrModifierType) Error() string {
	return fmt.Sprintf("%s on field %q: %s", e.Operator, e.Field, e.Reason)
}

// ErrDatabaseMismatch is returned when a connected connector is asked for a
// different database.
type ErrDatabaseMismatch struct {
	Connected string
	Requested string
}

func (e ErrDatabaseMismatch) Error() string {
	return fmt.Sprintf("connected to database %q, cannot switch to %q", e.Connected, e.Requested)
}

// ErrConstraintViolated is returned when a unique index already holds the
// value.
type ErrConstraintViolated struct {
	Field string
	Value any
}

func (e ErrConstraintViolated) Error() string {
	return fmt.Sprintf("duplicate key for unique index %q: %v", e.Field, e.Value)
}

// ErrFieldName is returned when a stored field name is not allowed.
type ErrFieldName struct {
	Field  string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// ErrCorruptFile is returned when the datafile cannot be decoded.
type ErrCorruptFile struct {
	Filename string
	Err      error
}

func (e ErrCorruptFile) Error() string {
	return fmt.Sprintf("corrupt datafile %q: %v", e.Filename, e.Err)
}

func (e ErrCorruptFile) Unwrap() error { return e.Err }

// ErrFlushToStorage is returned when a written datafile could not be synced
// or closed.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	var err error
	if e.ErrorOnFsync != nil {
		err = e.ErrorOnFsync
	} else {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error: ", err.Error())
}
