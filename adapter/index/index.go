// Package index contains the default [domain.Index] implementation.
//
// An index maps the values of one field to the sequence numbers ("$loki") of
// the documents holding them. Array values are indexed element by element.
// Null and undefined values are not indexed, so they can never violate a
// unique index and lookups for them must scan the collection.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/domain"
)

// ErrNoSequence is returned when an indexed document has no valid "$loki".
var ErrNoSequence = errors.New("document has no sequence number")

// Index implements [domain.Index].
type Index struct {
	fieldName string
	address   []string
	unique    bool
	// Exported to allow testing. Should not be a problem because Index is
	// used as interface.
	Tree           bst.BST[any, int64]
	comparer       domain.Comparer
	bstComparer    bst.Comparer[any, int64]
	fieldNavigator domain.FieldNavigator
}

// NewIndex returns a new implementation of domain.Index.
func NewIndex(fieldName string, unique bool, options ...Option) (domain.Index, error) {
	i := &Index{
		fieldName: fieldName,
		unique:    unique,
		comparer:  comparer.NewComparer(),
	}
	for _, option := range options {
		option(i)
	}
	if i.fieldNavigator == nil {
		i.fieldNavigator = fieldnavigator.NewFieldNavigator(data.NewDocument)
	}

	addr, err := i.fieldNavigator.GetAddress(fieldName)
	if err != nil {
		return nil, err
	}
	i.address = addr
	i.bstComparer = NewBSTComparer(i.comparer)
	i.Tree = avl.NewBST(unique, 8, i.bstComparer)
	return i, nil
}

// NewFactory returns a [domain.IndexFactory] building indexes with the given
// options. Field names are validated by the collection beforehand, so an
// address error here is a programming error.
func NewFactory(options ...Option) domain.IndexFactory {
	return func(field string, unique bool) domain.Index {
		idx, err := NewIndex(field, unique, options...)
		if err != nil {
			panic(fmt.Errorf("creating index on %q: %w", field, err))
		}
		return idx
	}
}

// FieldName implements [domain.Index].
func (i *Index) FieldName() string {
	return i.fieldName
}

// Unique implements [domain.Index].
func (i *Index) Unique() bool {
	return i.unique
}

// Reset implements [domain.Index].
func (i *Index) Reset(ctx context.Context, newData ...domain.Document) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	i.Tree = avl.NewBST(i.unique, 8, i.bstComparer)
	return i.Insert(ctx, newData...)
}

// getKeys returns the distinct, indexable values of the field.
func (i *Index) getKeys(doc domain.Document) ([]any, error) {
	fieldValues, _, err := i.fieldNavigator.GetField(doc, i.address...)
	if err != nil {
		return nil, err
	}

	keys := make([]any, 0, len(fieldValues))
	for _, fieldValue := range fieldValues {
		value, defined := fieldValue.Get()
		if !defined {
			continue
		}
		if l, ok := value.([]any); ok {
			keys = append(keys, l...)
			continue
		}
		keys = append(keys, value)
	}
	keys = slices.DeleteFunc(keys, func(k any) bool { return k == nil })

	if err := i.sortKeys(keys); err != nil {
		return nil, err
	}
	return slices.CompactFunc(keys, func(a, b any) bool { return i.compareThings(a, b) == 0 }), nil
}

func (i *Index) sortKeys(keys []any) error {
	var err error
	slices.SortFunc(keys, func(a, b any) int {
		c, compErr := i.comparer.Compare(a, b)
		if compErr != nil && err == nil {
			err = compErr
		}
		return c
	})
	return err
}

// sequence returns the "$loki" of the document.
func sequence(doc domain.Document) (int64, error) {
	n, ok := comparer.AsNumber(doc.Get(domain.FieldLoki))
	if !ok || !n.IsInt() {
		return 0, ErrNoSequence
	}
	loki, _ := n.Int64()
	return loki, nil
}

type entry struct {
	key  any
	loki int64
}

// Insert implements [domain.Index].
func (i *Index) Insert(ctx context.Context, docs ...domain.Document) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	inserted := make([]entry, 0, len(docs))

	var err error
DocInsertion:
	for _, d := range docs {
		var loki int64
		if loki, err = sequence(d); err != nil {
			break
		}
		var keys []any
		if keys, err = i.getKeys(d); err != nil {
			break
		}

		for _, k := range keys {
			if err = i.Tree.Insert(k, loki); err != nil {
				if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
					err = fmt.Errorf("%w: %w", domain.ErrConstraintViolated{Field: i.fieldName, Value: k}, err)
				}
				break DocInsertion
			}

			inserted = append(inserted, entry{key: k, loki: loki})
		}
	}
	if err != nil {
		nErrs := make([]error, 1, len(inserted)+1)
		nErrs[0] = err
		for _, v := range inserted {
			if err := i.Tree.Delete(v.key, &v.loki); err != nil {
				nErrs = append(nErrs, err)
			}
		}
		if len(nErrs) > 1 {
			return errors.Join(nErrs...)
		}
		return err
	}
	return nil
}

// Remove implements [domain.Index].
func (i *Index) Remove(ctx context.Context, docs ...domain.Document) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	errs := make([]error, 0, len(docs))

	for _, d := range docs {
		loki, err := sequence(d)
		if err != nil {
			return err
		}
		keys, err := i.getKeys(d)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := i.Tree.Delete(k, &loki); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Update implements [domain.Index].
func (i *Index) Update(ctx context.Context, pairs []domain.Update) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var failingIndex int
	var err error

	subCtx := context.WithoutCancel(ctx)
	for _, pair := range pairs {
		if err = i.Remove(subCtx, pair.OldDoc); err != nil {
			break
		}
	}

	if err == nil {
	Loop:
		for n, pair := range pairs {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				failingIndex = n
				break Loop
			default:
			}

			if err = i.Insert(ctx, pair.NewDoc); err != nil {
				failingIndex = n
				break
			}
		}
	}

	if err != nil {
		errs := []error{err}
		ctx := context.WithoutCancel(ctx)
		for n := range failingIndex {
			if errRm := i.Remove(ctx, pairs[n].NewDoc); errRm != nil {
				errs = append(errs, errRm)
			}
		}
		for _, pair := range pairs {
			if errIns := i.Insert(ctx, pair.OldDoc); errIns != nil {
				errs = append(errs, errIns)
			}
		}
		if len(errs) > 1 {
			return errors.Join(errs...)
		}
	}

	return err
}

// GetMatching implements [domain.Index]. The result is sorted and holds no
// repeated sequence numbers.
func (i *Index) GetMatching(values ...any) ([]int64, error) {
	var res []int64
	for _, v := range values {
		if v == nil {
			continue
		}
		found, err := i.Tree.Search(v)
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}
		res = append(res, found.Values()...)
	}
	slices.Sort(res)
	return slices.Compact(res), nil
}

// GetNumberOfKeys implements [domain.Index].
func (i *Index) GetNumberOfKeys() int {
	return i.Tree.GetNumberOfKeys()
}

func (i *Index) compareThings(a any, b any) int {
	comp, _ := i.comparer.Compare(a, b)
	return comp
}
