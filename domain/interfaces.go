// Package domain contains the interfaces and value types shared by the
// filestore adapters.
//
// This package defines the contracts implemented by every adapter package,
// from the query translation pieces (normalizer, projector, modifier,
// paginator) down to the embedded engine (database, collection, resultset,
// index, persistence and storage).
package domain

import (
	"context"
	"iter"
	"os"
	"time"
)

// Serializer converts a database snapshot to bytes for storage.
type Serializer interface {
	// Serialize converts a value to bytes for persistence.
	Serialize(context.Context, any) ([]byte, error)
}

// Deserializer converts bytes back to a database snapshot.
type Deserializer interface {
	// Deserialize reads bytes into the given target pointer.
	Deserialize(context.Context, []byte, any) error
}

// Unlocker releases a previously acquired lock.
type Unlocker interface {
	Unlock() error
}

// Storage provides low-level file operations with crash-safety guarantees.
type Storage interface {
	// Exists checks if a file exists.
	Exists(string) (bool, error)
	// EnsureParentDirectoryExists creates parent directories if needed.
	EnsureParentDirectoryExists(string, os.FileMode) error
	// EnsureDatafileIntegrity makes sure a datafile exists, recovering it
	// from an interrupted crash-safe write if possible.
	EnsureDatafileIntegrity(string, os.FileMode) error
	// CrashSafeWriteFile atomically replaces the file content.
	CrashSafeWriteFile(string, []byte, os.FileMode, os.FileMode) error
	// ReadFile reads the whole file.
	ReadFile(string) ([]byte, error)
	// Remove deletes a file.
	Remove(string) error
	// Lock acquires exclusive ownership of the given datafile.
	Lock(context.Context, string) (Unlocker, error)
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Comparer provides ordering and comparison operations for different data
// types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be compared with the
	// ordering operators.
	Comparable(any, any) bool
}

// TimeGetter provides current time for timestamping operations.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// IDGenerator creates identifiers for documents inserted without one.
type IDGenerator interface {
	GenerateID() (string, error)
}

// Getter represents a value that can be treated as undefined.
type Getter interface {
	// Get returns the value and a bool that indicates whether the value
	// counts as defined or not. An explicit nil is defined, an absent key is
	// not.
	Get() (value any, defined bool)
}

// GetSetter represents a value in a [Document] returned by a
// [FieldNavigator]. It is not concurrency safe.
type GetSetter interface {
	Getter
	// Set will set a new value for the address.
	Set(any)
	// Unset removes the value from the parent item (object or array).
	Unset()
}

// FieldNavigator provides field access operations with dot notation support.
type FieldNavigator interface {
	// GetField extracts values from nested documents, following path parts.
	// The bool result reports whether an array was expanded on the way.
	GetField(any, ...string) ([]GetSetter, bool, error)
	// EnsureField works like GetField, but creates the missing intermediate
	// documents.
	EnsureField(any, ...string) ([]GetSetter, error)
	// GetAddress splits a dotted field name into its path parts.
	GetAddress(field string) ([]string, error)
}

// Document represents a stored record. Documents are read by one goroutine at
// a time and don't need to be concurrency safe.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value for the given key.
	Set(string, any)
	// Unset removes the given key.
	Unset(string)
	// Iter iterates over the fields of the document.
	Iter() iter.Seq2[string, any]
	// Keys iterates over the keys of the document.
	Keys() iter.Seq[string]
	// Values iterates over the values of the document.
	Values() iter.Seq[any]
	// Has reports whether the key is set, even if its value is nil.
	Has(string) bool
	// Len returns the number of fields.
	Len() int
}

// Matcher checks documents against a compiled query.
type Matcher interface {
	// SetQuery compiles the query used by subsequent Match calls.
	SetQuery(any) error
	// Match reports whether the value satisfies the query.
	Match(any) (bool, error)
}

// Normalizer rewrites a caller filter into the single-expression query form
// accepted by the engine [Matcher].
type Normalizer interface {
	Normalize(filter any) (Document, error)
}

// Projector reshapes documents according to a [Projection].
type Projector interface {
	// Project applies the projection to every document.
	Project(Projection, []Document) ([]Document, error)
	// ProjectOne applies the projection to a single document.
	ProjectOne(Projection, Document) (Document, error)
}

// Modifier applies update operators to documents without mutating them.
type Modifier interface {
	// Modify returns a modified copy of the document.
	Modify(Document, any) (Document, error)
	// Apply returns modified copies of every document.
	Apply(any, []Document) ([]Document, error)
}

// Paginator resolves sort and window options.
type Paginator interface {
	// ResolveSort returns the sort property and direction.
	ResolveSort(FindOptions) (SortPlan, error)
	// Resolve returns the sort plan together with skip and limit.
	Resolve(FindOptions) (Page, error)
	// Metadata describes the page within a result set of the given size.
	Metadata(Page, int) Metadata
}

// Index keeps an ordered mapping from field values to document sequence
// numbers.
type Index interface {
	// FieldName returns the indexed field.
	FieldName() string
	// Unique reports whether the index rejects repeated values.
	Unique() bool
	// Insert adds the documents to the index. On failure, no document is
	// left in the index.
	Insert(context.Context, ...Document) error
	// Remove removes the documents from the index.
	Remove(context.Context, ...Document) error
	// Update replaces old documents by new ones. On failure, the index is
	// rolled back to its previous state.
	Update(context.Context, []Update) error
	// Reset clears the index and inserts the given documents.
	Reset(context.Context, ...Document) error
	// GetMatching returns the sequence numbers of the documents whose field
	// equals any of the given values.
	GetMatching(...any) ([]int64, error)
	// GetNumberOfKeys returns the number of distinct keys.
	GetNumberOfKeys() int
}

// Persistence loads and saves database snapshots.
type Persistence interface {
	// LoadDatabase reads the snapshot stored in the datafile. An empty
	// datafile returns an empty snapshot.
	LoadDatabase(context.Context) (*Snapshot, error)
	// PersistDatabase writes the snapshot to the datafile.
	PersistDatabase(context.Context, *Snapshot) error
}

// Database is a named, file-backed container of collections.
type Database interface {
	// Name returns the database name.
	Name() string
	// Filename returns the datafile path.
	Filename() string
	// GetCollection returns the named collection, if present.
	GetCollection(string) (Collection, bool)
	// AddCollection creates the named collection, or returns the existing
	// one.
	AddCollection(context.Context, string) (Collection, error)
	// Collections returns every collection in creation order.
	Collections() []Collection
	// Save flushes the database to its datafile.
	Save(context.Context) error
	// Close stops autosaving, flushes and releases the datafile.
	Close(context.Context) error
}

// Collection is an ordered set of documents inside a [Database].
type Collection interface {
	// Name returns the collection name.
	Name() string
	// Insert stores copies of the documents and returns them with the
	// engine fields assigned.
	Insert(context.Context, ...Document) ([]Document, error)
	// Update replaces stored documents by sequence number.
	Update(context.Context, ...Document) error
	// Chain starts a lazy query pipeline.
	Chain() Resultset
	// EnsureIndex creates a non-unique index on the field.
	EnsureIndex(context.Context, string) error
	// EnsureUniqueIndex creates a unique index on the field.
	EnsureUniqueIndex(context.Context, string) (Index, error)
	// Indexes lists the collection indexes.
	Indexes() []IndexInfo
	// Clear removes every document while keeping the indexes.
	Clear(context.Context) error
	// Count returns the number of stored documents.
	Count(context.Context) (int, error)
}

// Resultset is a lazy query pipeline over a [Collection]. Builder methods
// never fail; errors are reported by the terminal methods.
type Resultset interface {
	// Find narrows the pipeline with an engine query.
	Find(any) Resultset
	// Branch returns an independent copy of the pipeline.
	Branch() Resultset
	// SimpleSort orders the result by a single property.
	SimpleSort(property string, descending bool) Resultset
	// Offset skips the first n documents.
	Offset(int) Resultset
	// Limit keeps at most n documents.
	Limit(int) Resultset
	// Count returns the number of matching documents.
	Count(context.Context) (int, error)
	// Data returns copies of the matching documents.
	Data(context.Context) ([]Document, error)
	// Remove deletes the matching documents and returns how many were
	// removed.
	Remove(context.Context) (int, error)
}
