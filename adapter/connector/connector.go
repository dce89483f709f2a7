// Package connector contains the collection store facade used by data-layer
// hosts.
//
// A [Connector] owns at most one open database. It translates the host
// filters, options and update expressions into engine calls: filters go
// through the normalizer, windows and order through the paginator, updates
// through the modifier, and results through the projector with the engine
// fields removed. Every operation connects to the default database first
// when the connector is not connected yet.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	goreflect "github.com/goccy/go-reflect"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/database"
	"github.com/dadi/api-filestore/adapter/modifier"
	"github.com/dadi/api-filestore/adapter/normalizer"
	"github.com/dadi/api-filestore/adapter/pagination"
	"github.com/dadi/api-filestore/adapter/projector"
	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/pkg/ctxsync"
)

// Version is reported by [Connector.Handshake].
const Version = "1.0.0"

// DefaultExtension is appended to database names to build datafile names.
const DefaultExtension = ".db"

// Connector is the collection store facade.
type Connector struct {
	path            string
	extension       string
	defaultDatabase string
	logger          *slog.Logger
	openDatabase    domain.DatabaseFactory
	databaseOptions []database.Option
	docFac          domain.DocumentFactory
	normalizer      domain.Normalizer
	projector       domain.Projector
	paginator       domain.Paginator
	modifier        domain.Modifier

	lifecycle *ctxsync.Mutex
	connected *ctxsync.Latch
	closed    *ctxsync.Latch
	state     domain.ConnectionState
	db        domain.Database

	observersMu sync.Mutex
	observers   map[int]func(domain.ConnectionEvent)
	nextID      int
}

// NewConnector returns a new, disconnected Connector.
func NewConnector(options ...Option) *Connector {
	c := &Connector{
		path:      ".",
		extension: DefaultExtension,
		docFac:    data.NewDocument,
		lifecycle: ctxsync.NewMutex(),
		connected: ctxsync.NewLatch(),
		closed:    ctxsync.NewLatch(),
		observers: make(map[int]func(domain.ConnectionEvent)),
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.openDatabase == nil {
		opts := append([]database.Option{database.WithLogger(c.logger)}, c.databaseOptions...)
		c.openDatabase = database.NewFactory(opts...)
	}
	if c.normalizer == nil {
		c.normalizer = normalizer.NewNormalizer(normalizer.WithDocumentFactory(c.docFac))
	}
	if c.projector == nil {
		c.projector = projector.NewProjector(projector.WithDocumentFactory(c.docFac))
	}
	if c.paginator == nil {
		c.paginator = pagination.NewPaginator()
	}
	if c.modifier == nil {
		c.modifier = modifier.NewModifier(modifier.WithDocumentFactory(c.docFac))
	}
	return c
}

// State returns the connection state.
func (c *Connector) State() domain.ConnectionState {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.state
}

// Filename returns the datafile of the named database.
func (c *Connector) Filename(name string) string {
	return filepath.Join(c.path, name+c.extension)
}

// Connect opens the database named in params, or the default database. It
// is idempotent: once connected, further calls for the same database return
// at once, and calls for another database fail with
// [domain.ErrDatabaseMismatch]. A named collection is created if missing.
func (c *Connector) Connect(ctx context.Context, params domain.ConnectParams) error {
	db, err := c.connect(ctx, params.Database)
	if err != nil {
		return err
	}
	if params.Collection != "" {
		if _, err := db.AddCollection(ctx, params.Collection); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) connect(ctx context.Context, name string) (domain.Database, error) {
	db, event, err := c.open(ctx, name)
	if err != nil {
		return nil, err
	}
	// observers run unlocked, so they may call back into the connector
	if event != nil {
		c.notify(*event)
		c.connected.Open()
	}
	return db, nil
}

// open returns the connected database. The event is set only when this call
// opened it.
func (c *Connector) open(ctx context.Context, name string) (domain.Database, *domain.ConnectionEvent, error) {
	if err := c.lifecycle.LockWithContext(ctx); err != nil {
		return nil, nil, err
	}
	defer c.lifecycle.Unlock()

	if name == "" {
		name = c.defaultDatabase
	}

	switch c.state {
	case domain.Closed:
		return nil, nil, domain.ErrClosed
	case domain.Connected:
		if name != "" && name != c.db.Name() {
			return nil, nil, domain.ErrDatabaseMismatch{Connected: c.db.Name(), Requested: name}
		}
		return c.db, nil, nil
	}

	if name == "" {
		return nil, nil, domain.ErrNotConnected
	}

	filename := c.Filename(name)
	c.state = domain.Connecting
	db, err := c.openDatabase(ctx, name, filename)
	if err != nil {
		c.state = domain.Disconnected
		return nil, nil, fmt.Errorf("opening database %q: %w", name, err)
	}
	c.db = db
	c.state = domain.Connected
	c.logger.Info("connected", "database", name, "file", filename)

	return db, &domain.ConnectionEvent{Database: name, Filename: filename, State: domain.Connected}, nil
}

func (c *Connector) notify(event domain.ConnectionEvent) {
	c.observersMu.Lock()
	ids := slices.Sorted(maps.Keys(c.observers))
	observers := make([]func(domain.ConnectionEvent), len(ids))
	for n, id := range ids {
		observers[n] = c.observers[id]
	}
	c.observersMu.Unlock()

	for _, observer := range observers {
		observer(event)
	}
}

// OnConnect registers fn to be called once the connector connects. Observers
// registered after the connection are not called. The returned function
// removes the observer.
func (c *Connector) OnConnect(fn func(domain.ConnectionEvent)) (unsubscribe func()) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() {
		c.observersMu.Lock()
		defer c.observersMu.Unlock()
		delete(c.observers, id)
	}
}

// WaitConnected blocks until the connector is connected or ctx is done. It
// returns [domain.ErrClosed] once the connector is closed.
func (c *Connector) WaitConnected(ctx context.Context) error {
	if c.closed.IsOpen() {
		return domain.ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed.Done():
		return domain.ErrClosed
	case <-c.connected.Done():
		if c.closed.IsOpen() {
			return domain.ErrClosed
		}
		return nil
	}
}

// GetCollection returns the named collection, creating it if missing.
func (c *Connector) GetCollection(ctx context.Context, name string) (domain.Collection, error) {
	if name == "" {
		return nil, domain.ErrNoCollection
	}
	db, err := c.connect(ctx, "")
	if err != nil {
		return nil, err
	}
	if coll, ok := db.GetCollection(name); ok {
		return coll, nil
	}
	return db.AddCollection(ctx, name)
}

// Find returns a page of the documents matching the query, with the page
// metadata.
func (c *Connector) Find(ctx context.Context, params domain.FindParams) (*domain.FindResult, error) {
	page, err := c.paginator.Resolve(params.Options)
	if err != nil {
		return nil, err
	}
	query, err := c.normalizer.Normalize(params.Query)
	if err != nil {
		return nil, err
	}
	coll, err := c.GetCollection(ctx, params.Collection)
	if err != nil {
		return nil, err
	}

	rs := coll.Chain()
	if query.Len() > 0 {
		rs = rs.Find(query)
	}
	total, err := rs.Branch().Count(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := rs.
		SimpleSort(page.Sort.Property, page.Sort.Descending).
		Offset(page.Skip).
		Limit(page.Limit).
		Data(ctx)
	if err != nil {
		return nil, err
	}

	results, err := c.projector.Project(params.Options.Fields, strip(docs))
	if err != nil {
		return nil, err
	}
	return &domain.FindResult{
		Results:  results,
		Metadata: c.paginator.Metadata(page, total),
	}, nil
}

// Insert stores one document or a list of documents and returns them with
// their "_id". Documents without "_id" get a generated one.
func (c *Connector) Insert(ctx context.Context, params domain.InsertParams) ([]domain.Document, error) {
	docs, err := c.documents(params.Data)
	if err != nil {
		return nil, err
	}
	coll, err := c.GetCollection(ctx, params.Collection)
	if err != nil {
		return nil, err
	}
	inserted, err := coll.Insert(ctx, docs...)
	if err != nil {
		return nil, err
	}
	return strip(inserted), nil
}

// Update applies the update expression to every document matching the query.
func (c *Connector) Update(ctx context.Context, params domain.UpdateParams) (*domain.UpdateResult, error) {
	query, err := c.normalizer.Normalize(params.Query)
	if err != nil {
		return nil, err
	}
	coll, err := c.GetCollection(ctx, params.Collection)
	if err != nil {
		return nil, err
	}

	rs := coll.Chain()
	if query.Len() > 0 {
		rs = rs.Find(query)
	}
	docs, err := rs.Data(ctx)
	if err != nil {
		return nil, err
	}

	// the update expression is validated even if nothing matches
	updated, err := c.modifier.Apply(params.Update, docs)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return &domain.UpdateResult{}, nil
	}
	if err := coll.Update(ctx, updated...); err != nil {
		return nil, err
	}
	return &domain.UpdateResult{MatchedCount: len(updated)}, nil
}

// Delete removes every document matching the query.
func (c *Connector) Delete(ctx context.Context, params domain.DeleteParams) (*domain.DeleteResult, error) {
	query, err := c.normalizer.Normalize(params.Query)
	if err != nil {
		return nil, err
	}
	coll, err := c.GetCollection(ctx, params.Collection)
	if err != nil {
		return nil, err
	}

	rs := coll.Chain()
	if query.Len() > 0 {
		rs = rs.Find(query)
	}
	n, err := rs.Remove(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.DeleteResult{DeletedCount: n}, nil
}

// Index creates the requested indexes. Each key of a spec creates one
// single-field index; the key direction is ignored.
func (c *Connector) Index(ctx context.Context, collection string, specs []domain.IndexSpec) ([]domain.IndexResult, error) {
	coll, err := c.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	var res []domain.IndexResult
	for _, spec := range specs {
		for _, field := range slices.Sorted(maps.Keys(spec.Keys)) {
			if spec.Options.Unique {
				_, err = coll.EnsureUniqueIndex(ctx, field)
			} else {
				err = coll.EnsureIndex(ctx, field)
			}
			if err != nil {
				return res, fmt.Errorf("indexing %q: %w", field, err)
			}
			res = append(res, domain.IndexResult{Collection: collection, Index: field})
		}
	}
	return res, nil
}

// GetIndexes lists the indexes of the collection.
func (c *Connector) GetIndexes(ctx context.Context, collection string) ([]domain.IndexInfo, error) {
	coll, err := c.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	return coll.Indexes(), nil
}

// DropDatabase removes every document of the named collection, or of every
// collection when name is empty, and saves the database. Collections and
// their indexes are kept.
func (c *Connector) DropDatabase(ctx context.Context, collection string) error {
	db, err := c.connect(ctx, "")
	if err != nil {
		return err
	}

	var colls []domain.Collection
	if collection == "" {
		colls = db.Collections()
	} else if coll, ok := db.GetCollection(collection); ok {
		colls = append(colls, coll)
	}
	for _, coll := range colls {
		if err := coll.Clear(ctx); err != nil {
			return err
		}
	}
	return db.Save(ctx)
}

// Stats returns the document count and indexes of the collection.
func (c *Connector) Stats(ctx context.Context, collection string) (*domain.Stats, error) {
	coll, err := c.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	count, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{Count: count, Indexes: coll.Indexes()}, nil
}

// Handshake returns the adapter metadata.
func (c *Connector) Handshake() domain.Handshake {
	return domain.Handshake{Version: Version}
}

// Close flushes and releases the database. A closed connector cannot be
// used again; closing it twice returns [domain.ErrClosed].
func (c *Connector) Close(ctx context.Context) error {
	if err := c.lifecycle.LockWithContext(ctx); err != nil {
		return err
	}
	defer c.lifecycle.Unlock()

	if c.state == domain.Closed {
		return domain.ErrClosed
	}
	c.state = domain.Closed
	c.closed.Open()
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(ctx); err != nil {
		return fmt.Errorf("closing database %q: %w", c.db.Name(), err)
	}
	c.logger.Info("closed", "database", c.db.Name())
	return nil
}

// documents converts a document or a list of documents.
func (c *Connector) documents(v any) ([]domain.Document, error) {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil, domain.ErrDocumentType
	case []domain.Document:
		return t, nil
	case []any:
		items = t
	case domain.Document, map[string]any:
		items = []any{t}
	default:
		r := goreflect.ValueNoEscapeOf(v)
		if k := r.Kind(); k == goreflect.Slice || k == goreflect.Array {
			items = make([]any, r.Len())
			for i := range items {
				items[i] = r.Index(i).Interface()
			}
		} else {
			items = []any{v}
		}
	}

	res := make([]domain.Document, len(items))
	for n, item := range items {
		if item == nil {
			return nil, domain.ErrDocumentType
		}
		doc, err := c.docFac(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDocumentType, err)
		}
		res[n] = doc
	}
	return res, nil
}

// strip removes the engine fields from the documents.
func strip(docs []domain.Document) []domain.Document {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = data.Without(data.CloneDocument(doc), domain.FieldLoki, domain.FieldMeta)
	}
	return res
}
