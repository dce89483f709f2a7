package index

import (
	"github.com/vinicius-lino-figueiredo/bst"

	"github.com/dadi/api-filestore/domain"
)

type bstComparer struct {
	comparer domain.Comparer
}

// NewBSTComparer adapts a [domain.Comparer] to order index keys. Values are
// document sequence numbers and are equal when the numbers are.
func NewBSTComparer(comparer domain.Comparer) bst.Comparer[any, int64] {
	return &bstComparer{
		comparer: comparer,
	}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	return bc.comparer.Compare(a, b)
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a int64, b int64) (bool, error) {
	return a == b, nil
}
