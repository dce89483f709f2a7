// Package collection contains the default [domain.Collection] and
// [domain.Resultset] implementations.
//
// Documents are kept in a B-tree ordered by their sequence number ("$loki").
// Every collection has a unique index on "_id"; more indexes can be added and
// are used to narrow single-field equality queries. All operations run under
// the executor shared with the owning database.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/btree"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/adapter/idgenerator"
	"github.com/dadi/api-filestore/adapter/index"
	"github.com/dadi/api-filestore/adapter/querier"
	"github.com/dadi/api-filestore/adapter/timegetter"
	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/pkg/ctxsync"
)

const btreeDegree = 32

// ErrUnknownDocument is returned when an update names a sequence number the
// collection does not hold.
var ErrUnknownDocument = errors.New("document is not in the collection")

type record struct {
	loki int64
	doc  domain.Document
}

func recordLess(a, b record) bool {
	return a.loki < b.loki
}

// Collection implements [domain.Collection].
type Collection struct {
	name         string
	executor     *ctxsync.Mutex
	records      *btree.BTreeG[record]
	maxID        int64
	indexes      map[string]domain.Index
	indexNames   []string
	indexFactory domain.IndexFactory
	idGenerator  domain.IDGenerator
	timeGetter   domain.TimeGetter
	docFac       domain.DocumentFactory
	fn           domain.FieldNavigator
	comparer     domain.Comparer
	querier      *querier.Querier
	onChange     func()
}

// NewCollection returns a new, empty collection.
func NewCollection(name string, options ...Option) *Collection {
	c := &Collection{
		name:     name,
		records:  btree.NewG(btreeDegree, recordLess),
		indexes:  make(map[string]domain.Index),
		docFac:   data.NewDocument,
		comparer: comparer.NewComparer(),
		onChange: func() {},
	}
	for _, option := range options {
		option(c)
	}
	if c.executor == nil {
		c.executor = ctxsync.NewMutex()
	}
	if c.fn == nil {
		c.fn = fieldnavigator.NewFieldNavigator(c.docFac)
	}
	if c.indexFactory == nil {
		c.indexFactory = index.NewFactory(index.WithComparer(c.comparer), index.WithFieldNavigator(c.fn))
	}
	if c.idGenerator == nil {
		c.idGenerator = idgenerator.NewIDGenerator()
	}
	if c.timeGetter == nil {
		c.timeGetter = timegetter.NewTimeGetter()
	}
	if c.querier == nil {
		c.querier = querier.NewQuerier(
			querier.WithComparer(c.comparer),
			querier.WithDocumentFactory(c.docFac),
			querier.WithFieldNavigator(c.fn),
		)
	}
	c.addIndex(c.indexFactory(domain.FieldID, true))
	return c
}

// Name implements [domain.Collection].
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) addIndex(idx domain.Index) {
	if _, ok := c.indexes[idx.FieldName()]; !ok {
		c.indexNames = append(c.indexNames, idx.FieldName())
	}
	c.indexes[idx.FieldName()] = idx
}

func (c *Collection) allData() []domain.Document {
	res := make([]domain.Document, 0, c.records.Len())
	c.records.Ascend(func(r record) bool {
		res = append(res, r.doc)
		return true
	})
	return res
}

func checkDocument(doc domain.Document, root bool) error {
	for k, v := range doc.Iter() {
		if root && k == domain.FieldLoki {
			continue
		}
		if strings.HasPrefix(k, "$") {
			return domain.ErrFieldName{Field: k, Reason: "field names cannot begin with the $ character"}
		}
		if strings.ContainsRune(k, '.') {
			return domain.ErrFieldName{Field: k, Reason: "field names cannot contain a '.'"}
		}
		if err := checkValue(v); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(v any) error {
	switch t := v.(type) {
	case domain.Document:
		return checkDocument(t, false)
	case []any:
		for _, item := range t {
			if err := checkValue(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collection) meta(doc domain.Document) domain.Document {
	m, _ := doc.Get(domain.FieldMeta).(domain.Document)
	if m == nil {
		m = data.M{}
	}
	return m
}

// Insert implements [domain.Collection].
func (c *Collection) Insert(ctx context.Context, docs ...domain.Document) ([]domain.Document, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer c.executor.Unlock()

	now := c.timeGetter.GetTime().UnixMilli()
	newDocs := make([]domain.Document, len(docs))
	for n, doc := range docs {
		if err := checkDocument(doc, false); err != nil {
			return nil, err
		}
		newDoc := data.CloneDocument(doc)
		if id, defined := newDoc[domain.FieldID]; !defined || id == nil {
			id, err := c.idGenerator.GenerateID()
			if err != nil {
				return nil, fmt.Errorf("generating id: %w", err)
			}
			newDoc[domain.FieldID] = id
		}
		newDoc[domain.FieldLoki] = c.maxID + int64(n) + 1
		newDoc[domain.FieldMeta] = data.M{
			"revision": 0,
			"created":  now,
			"version":  0,
		}
		newDocs[n] = newDoc
	}

	if err := c.addToIndexes(ctx, newDocs...); err != nil {
		return nil, err
	}

	c.maxID += int64(len(newDocs))
	res := make([]domain.Document, len(newDocs))
	for n, doc := range newDocs {
		c.records.ReplaceOrInsert(record{loki: doc.Get(domain.FieldLoki).(int64), doc: doc})
		res[n] = data.CloneDocument(doc)
	}
	if len(newDocs) > 0 {
		c.onChange()
	}
	return res, nil
}

func (c *Collection) addToIndexes(ctx context.Context, docs ...domain.Document) error {
	var failingIndex int
	var err error

	for i, key := range c.indexNames {
		if err = c.indexes[key].Insert(ctx, docs...); err != nil {
			failingIndex = i
			break
		}
	}

	if err != nil {
		ctx = context.WithoutCancel(ctx)
		for i := range failingIndex {
			if removeErr := c.indexes[c.indexNames[i]].Remove(ctx, docs...); removeErr != nil {
				return errors.Join(err, removeErr)
			}
		}
		return err
	}
	return nil
}

// Update implements [domain.Collection].
func (c *Collection) Update(ctx context.Context, docs ...domain.Document) error {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer c.executor.Unlock()

	now := c.timeGetter.GetTime().UnixMilli()
	updates := make([]domain.Update, len(docs))
	for n, doc := range docs {
		if err := checkDocument(doc, true); err != nil {
			return err
		}
		loki, ok := c.sequence(doc)
		if !ok {
			return ErrUnknownDocument
		}
		old, found := c.records.Get(record{loki: loki})
		if !found {
			return fmt.Errorf("%w: %d", ErrUnknownDocument, loki)
		}

		newDoc := data.CloneDocument(doc)
		newDoc[domain.FieldLoki] = loki
		m := data.CloneDocument(c.meta(old.doc))
		rev, _ := comparer.AsNumber(m.Get("revision"))
		revision := 0
		if rev != nil {
			r, _ := rev.Int64()
			revision = int(r)
		}
		m["revision"] = revision + 1
		m["updated"] = now
		newDoc[domain.FieldMeta] = m
		updates[n] = domain.Update{OldDoc: old.doc, NewDoc: newDoc}
	}

	if err := c.updateIndexes(ctx, updates); err != nil {
		return err
	}

	for _, upd := range updates {
		c.records.ReplaceOrInsert(record{loki: upd.NewDoc.Get(domain.FieldLoki).(int64), doc: upd.NewDoc})
	}
	if len(updates) > 0 {
		c.onChange()
	}
	return nil
}

func (c *Collection) updateIndexes(ctx context.Context, updates []domain.Update) error {
	var failingIndex int
	var err error

	for i, key := range c.indexNames {
		if err = c.indexes[key].Update(ctx, updates); err != nil {
			failingIndex = i
			break
		}
	}

	if err != nil {
		revert := make([]domain.Update, len(updates))
		for n, upd := range updates {
			revert[n] = domain.Update{OldDoc: upd.NewDoc, NewDoc: upd.OldDoc}
		}
		ctx = context.WithoutCancel(ctx)
		for i := range failingIndex {
			if revertErr := c.indexes[c.indexNames[i]].Update(ctx, revert); revertErr != nil {
				return errors.Join(err, revertErr)
			}
		}
		return err
	}
	return nil
}

func (c *Collection) sequence(doc domain.Document) (int64, bool) {
	n, ok := comparer.AsNumber(doc.Get(domain.FieldLoki))
	if !ok || !n.IsInt() {
		return 0, false
	}
	loki, _ := n.Int64()
	return loki, true
}

func (c *Collection) removeDocs(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, key := range c.indexNames {
		if err := c.indexes[key].Remove(ctx, docs...); err != nil {
			return err
		}
	}
	for _, doc := range docs {
		loki, _ := c.sequence(doc)
		c.records.Delete(record{loki: loki})
	}
	c.onChange()
	return nil
}

// Chain implements [domain.Collection].
func (c *Collection) Chain() domain.Resultset {
	return &Resultset{coll: c}
}

// EnsureIndex implements [domain.Collection].
func (c *Collection) EnsureIndex(ctx context.Context, field string) error {
	_, err := c.ensureIndex(ctx, field, false)
	return err
}

// EnsureUniqueIndex implements [domain.Collection].
func (c *Collection) EnsureUniqueIndex(ctx context.Context, field string) (domain.Index, error) {
	return c.ensureIndex(ctx, field, true)
}

func (c *Collection) ensureIndex(ctx context.Context, field string, unique bool) (domain.Index, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer c.executor.Unlock()

	if field == "" || strings.HasPrefix(field, "$") {
		return nil, domain.ErrFieldName{Field: field, Reason: "cannot be indexed"}
	}
	if _, err := c.fn.GetAddress(field); err != nil {
		return nil, err
	}

	if idx, exists := c.indexes[field]; exists && (idx.Unique() || !unique) {
		return idx, nil
	}

	idx := c.indexFactory(field, unique)
	if err := idx.Insert(ctx, c.allData()...); err != nil {
		return nil, err
	}
	c.addIndex(idx)
	c.onChange()
	return idx, nil
}

// Indexes implements [domain.Collection].
func (c *Collection) Indexes() []domain.IndexInfo {
	c.executor.Lock()
	defer c.executor.Unlock()
	res := make([]domain.IndexInfo, len(c.indexNames))
	for n, name := range c.indexNames {
		res[n] = domain.IndexInfo{Name: name, Unique: c.indexes[name].Unique()}
	}
	return res
}

// Clear implements [domain.Collection].
func (c *Collection) Clear(ctx context.Context) error {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer c.executor.Unlock()

	for _, key := range c.indexNames {
		if err := c.indexes[key].Reset(ctx); err != nil {
			return err
		}
	}
	c.records.Clear(false)
	c.maxID = 0
	c.onChange()
	return nil
}

// Count implements [domain.Collection].
func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer c.executor.Unlock()
	return c.records.Len(), nil
}

// Snapshot returns the persisted form of the collection. The caller must
// hold the executor.
func (c *Collection) Snapshot() domain.CollectionSnapshot {
	snap := domain.CollectionSnapshot{
		Name:          c.name,
		Data:          make([]map[string]any, 0, c.records.Len()),
		MaxID:         c.maxID,
		UniqueNames:   []string{},
		BinaryIndices: []string{},
	}
	c.records.Ascend(func(r record) bool {
		snap.Data = append(snap.Data, data.CloneDocument(r.doc))
		return true
	})
	for _, name := range c.indexNames {
		if c.indexes[name].Unique() {
			snap.UniqueNames = append(snap.UniqueNames, name)
		} else {
			snap.BinaryIndices = append(snap.BinaryIndices, name)
		}
	}
	return snap
}

// Restore replaces the content of the collection by the snapshot, rebuilding
// its indexes. The caller must hold the executor.
func (c *Collection) Restore(ctx context.Context, snap domain.CollectionSnapshot) error {
	docs := make([]domain.Document, 0, len(snap.Data))
	records := btree.NewG(btreeDegree, recordLess)
	maxID := snap.MaxID
	for _, m := range snap.Data {
		doc := data.CloneDocument(data.M(m))
		loki, ok := c.sequence(doc)
		if !ok {
			return fmt.Errorf("collection %q: %w", c.name, index.ErrNoSequence)
		}
		doc[domain.FieldLoki] = loki
		maxID = max(maxID, loki)
		records.ReplaceOrInsert(record{loki: loki, doc: doc})
		docs = append(docs, doc)
	}

	c.indexes = make(map[string]domain.Index)
	c.indexNames = nil
	c.addIndex(c.indexFactory(domain.FieldID, true))
	for _, name := range snap.UniqueNames {
		c.addIndex(c.indexFactory(name, true))
	}
	for _, name := range snap.BinaryIndices {
		if _, exists := c.indexes[name]; !exists {
			c.addIndex(c.indexFactory(name, false))
		}
	}
	for _, name := range c.indexNames {
		if err := c.indexes[name].Insert(ctx, docs...); err != nil {
			return fmt.Errorf("collection %q: %w", c.name, err)
		}
	}

	c.records = records
	c.maxID = maxID
	return nil
}
