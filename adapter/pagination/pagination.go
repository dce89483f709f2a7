// Package pagination contains the default [domain.Paginator], which turns
// the sort and window options of a find call into a [domain.Page] and
// describes the resulting page.
package pagination

import (
	"maps"
	"slices"

	"github.com/dadi/api-filestore/domain"
)

// DefaultLimit is the page size used when a find call sets no limit.
const DefaultLimit = 100

// Paginator implements [domain.Paginator].
type Paginator struct {
	defaultLimit int
	defaultSort  string
}

// NewPaginator returns a new implementation of [domain.Paginator].
func NewPaginator(opts ...Option) domain.Paginator {
	p := Paginator{
		defaultLimit: DefaultLimit,
		defaultSort:  domain.FieldLoki,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &p
}

// ResolveSort implements [domain.Paginator]. A direction of -1 sorts in
// descending order, any other value in ascending order.
func (p *Paginator) ResolveSort(opts domain.FindOptions) (domain.SortPlan, error) {
	switch len(opts.Sort) {
	case 0:
		return domain.SortPlan{Property: p.defaultSort}, nil
	case 1:
		prop := slices.Collect(maps.Keys(opts.Sort))[0]
		if prop == "" {
			return domain.SortPlan{}, domain.ErrInvalidSort
		}
		return domain.SortPlan{
			Property:   prop,
			Descending: opts.Sort[prop] == -1,
		}, nil
	default:
		return domain.SortPlan{}, domain.ErrInvalidSort
	}
}

// Resolve implements [domain.Paginator].
func (p *Paginator) Resolve(opts domain.FindOptions) (domain.Page, error) {
	if opts.Skip < 0 || opts.Limit < 0 {
		return domain.Page{}, domain.ErrInvalidWindow
	}
	sort, err := p.ResolveSort(opts)
	if err != nil {
		return domain.Page{}, err
	}
	limit := opts.Limit
	if limit == 0 {
		limit = p.defaultLimit
	}
	return domain.Page{Sort: sort, Skip: opts.Skip, Limit: limit}, nil
}

// Metadata implements [domain.Paginator].
func (p *Paginator) Metadata(page domain.Page, total int) domain.Metadata {
	limit := max(page.Limit, 1)
	meta := domain.Metadata{
		Limit:      page.Limit,
		Offset:     page.Skip,
		Page:       page.Skip/limit + 1,
		TotalCount: total,
		TotalPages: (total + limit - 1) / limit,
	}
	if meta.Page < meta.TotalPages {
		meta.NextPage = meta.Page + 1
	}
	if meta.Page > 1 {
		meta.PrevPage = meta.Page - 1
	}
	return meta
}
