package domain

import "context"

// Update represents a pair of documents used in index update operations,
// containing both the old and new versions of a document.
type Update struct {
	OldDoc Document
	NewDoc Document
}

// Projection selects the fields returned by a query. It is either a
// [FieldList] or a [FieldMap].
type Projection interface {
	projection()
}

// FieldList lists the fields to include. "_id" is always included.
type FieldList []string

func (FieldList) projection() {}

// FieldMap maps dotted field paths to 1 (include) or 0 (exclude). Inclusion
// and exclusion cannot be mixed, except for "_id".
type FieldMap map[string]int

func (FieldMap) projection() {}

// FindOptions holds the window, order and projection of a find call.
type FindOptions struct {
	Skip   int            `filestore:"skip"`
	Limit  int            `filestore:"limit"`
	Sort   map[string]int `filestore:"sort"`
	Fields Projection     `filestore:"fields"`
}

// SortPlan is the resolved sort of a find call.
type SortPlan struct {
	Property   string
	Descending bool
}

// Page is the resolved sort and window of a find call.
type Page struct {
	Sort  SortPlan
	Skip  int
	Limit int
}

// Metadata describes a page of results.
type Metadata struct {
	Limit      int `json:"limit"`
	Page       int `json:"page"`
	Offset     int `json:"offset"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
	NextPage   int `json:"nextPage,omitempty"`
	PrevPage   int `json:"prevPage,omitempty"`
}

// ConnectParams names the database and, optionally, the collection of a
// connection.
type ConnectParams struct {
	Database   string
	Collection string
}

// FindParams are the arguments of a find call.
type FindParams struct {
	Query      any
	Collection string
	Options    FindOptions
	Schema     any
}

// FindResult is the outcome of a find call.
type FindResult struct {
	Results  []Document `json:"results"`
	Metadata Metadata   `json:"metadata"`
}

// InsertParams are the arguments of an insert call. Data holds one document
// or a slice of documents.
type InsertParams struct {
	Data       any
	Collection string
	Schema     any
}

// UpdateParams are the arguments of an update call.
type UpdateParams struct {
	Query      any
	Collection string
	Update     any
	Schema     any
}

// UpdateResult is the outcome of an update call.
type UpdateResult struct {
	MatchedCount int `json:"matchedCount"`
}

// DeleteParams are the arguments of a delete call.
type DeleteParams struct {
	Query      any
	Collection string
	Schema     any
}

// DeleteResult is the outcome of a delete call.
type DeleteResult struct {
	DeletedCount int `json:"deletedCount"`
}

// IndexSpec requests an index. Keys maps the field to its direction, which
// the engine ignores.
type IndexSpec struct {
	Keys    map[string]int `filestore:"keys"`
	Options IndexOptions   `filestore:"options"`
}

// IndexOptions configures an [IndexSpec].
type IndexOptions struct {
	Unique bool `filestore:"unique"`
}

// IndexResult reports a created index.
type IndexResult struct {
	Collection string `json:"collection"`
	Index      string `json:"index"`
}

// IndexInfo describes an existing index.
type IndexInfo struct {
	Name   string `json:"name"`
	Unique bool   `json:"unique,omitempty"`
}

// Stats summarizes a collection.
type Stats struct {
	Count   int         `json:"count"`
	Indexes []IndexInfo `json:"indexes"`
}

// Handshake is static adapter metadata.
type Handshake struct {
	Version string `json:"version"`
}

// ConnectionState is the lifecycle state of a connector.
type ConnectionState uint8

// Connection states.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Closed
)

func (c ConnectionState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionEvent is delivered to connection observers.
type ConnectionEvent struct {
	Database string
	Filename string
	State    ConnectionState
}

// Snapshot is the persisted form of a database.
type Snapshot struct {
	Filename            string               `json:"filename"`
	Collections         []CollectionSnapshot `json:"collections"`
	DatabaseVersion     float64              `json:"databaseVersion"`
	SerializationMethod string               `json:"serializationMethod"`
}

// CollectionSnapshot is the persisted form of a collection.
type CollectionSnapshot struct {
	Name          string           `json:"name"`
	Data          []map[string]any `json:"data"`
	MaxID         int64            `json:"maxId"`
	UniqueNames   []string         `json:"uniqueNames"`
	BinaryIndices []string         `json:"binaryIndices"`
}

// DocumentFactory represents a function that constructs [Document] instances
// from structured data types. If nil is provided, returns an empty document.
type DocumentFactory = func(any) (Document, error)

// MatcherFactory creates a fresh [Matcher]. Matchers keep the compiled query,
// so each pipeline uses its own.
type MatcherFactory = func() Matcher

// IndexFactory creates an [Index] on the field.
type IndexFactory = func(field string, unique bool) Index

// DatabaseFactory opens a database from its datafile.
type DatabaseFactory = func(ctx context.Context, name, filename string) (Database, error)

type undefined struct{}

func (undefined) Get() (any, bool) { return nil, false }

func (undefined) String() string { return "undefined" }

// Undefined stands for a missing field. As a query operand it matches
// absent fields only, so {"$ne": Undefined} selects documents in which the
// field is present, even if null.
var Undefined Getter = undefined{}

// Engine-owned document fields.
const (
	FieldLoki = "$loki"
	FieldMeta = "meta"
	FieldID   = "_id"
)
