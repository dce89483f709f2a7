package pagination

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/domain"
)

type PaginatorTestSuite struct {
	suite.Suite
	p *Paginator
}

func (s *PaginatorTestSuite) SetupTest() {
	s.p = NewPaginator().(*Paginator)
}

func (s *PaginatorTestSuite) TestDefaultSort() {
	plan, err := s.p.ResolveSort(domain.FindOptions{})
	s.NoError(err)
	s.Equal(domain.SortPlan{Property: "$loki"}, plan)

	s.p = NewPaginator(WithDefaultSort("_id")).(*Paginator)
	plan, err = s.p.ResolveSort(domain.FindOptions{Sort: map[string]int{}})
	s.NoError(err)
	s.Equal(domain.SortPlan{Property: "_id"}, plan)
}

func (s *PaginatorTestSuite) TestSortDirection() {
	plan, err := s.p.ResolveSort(domain.NewFindOptions(domain.WithSort("name", -1)))
	s.NoError(err)
	s.Equal(domain.SortPlan{Property: "name", Descending: true}, plan)

	plan, err = s.p.ResolveSort(domain.NewFindOptions(domain.WithSort("name", 1)))
	s.NoError(err)
	s.Equal(domain.SortPlan{Property: "name"}, plan)

	// anything but -1 is ascending
	plan, err = s.p.ResolveSort(domain.FindOptions{Sort: map[string]int{"age": 0}})
	s.NoError(err)
	s.Equal(domain.SortPlan{Property: "age"}, plan)
}

func (s *PaginatorTestSuite) TestInvalidSort() {
	_, err := s.p.ResolveSort(domain.FindOptions{Sort: map[string]int{"a": 1, "b": -1}})
	s.ErrorIs(err, domain.ErrInvalidSort)

	_, err = s.p.ResolveSort(domain.FindOptions{Sort: map[string]int{"": 1}})
	s.ErrorIs(err, domain.ErrInvalidSort)

	_, err = s.p.Resolve(domain.FindOptions{Sort: map[string]int{"a": 1, "b": 1}})
	s.ErrorIs(err, domain.ErrInvalidSort)
}

func (s *PaginatorTestSuite) TestResolve() {
	page, err := s.p.Resolve(domain.FindOptions{})
	s.NoError(err)
	s.Equal(domain.Page{Sort: domain.SortPlan{Property: "$loki"}, Limit: 100}, page)

	page, err = s.p.Resolve(domain.FindOptions{Skip: 20, Limit: 10, Sort: map[string]int{"n": -1}})
	s.NoError(err)
	s.Equal(domain.Page{Sort: domain.SortPlan{Property: "n", Descending: true}, Skip: 20, Limit: 10}, page)

	s.p = NewPaginator(WithDefaultLimit(5)).(*Paginator)
	page, err = s.p.Resolve(domain.FindOptions{})
	s.NoError(err)
	s.Equal(5, page.Limit)
}

func (s *PaginatorTestSuite) TestInvalidWindow() {
	_, err := s.p.Resolve(domain.FindOptions{Skip: -1})
	s.ErrorIs(err, domain.ErrInvalidWindow)

	_, err = s.p.Resolve(domain.FindOptions{Limit: -1})
	s.ErrorIs(err, domain.ErrInvalidWindow)
}

func (s *PaginatorTestSuite) TestMetadata() {
	page := domain.Page{Skip: 0, Limit: 10}
	s.Equal(domain.Metadata{
		Limit:      10,
		Page:       1,
		TotalCount: 25,
		TotalPages: 3,
		NextPage:   2,
	}, s.p.Metadata(page, 25))

	page = domain.Page{Skip: 10, Limit: 10}
	s.Equal(domain.Metadata{
		Limit:      10,
		Page:       2,
		Offset:     10,
		TotalCount: 25,
		TotalPages: 3,
		NextPage:   3,
		PrevPage:   1,
	}, s.p.Metadata(page, 25))

	page = domain.Page{Skip: 20, Limit: 10}
	s.Equal(domain.Metadata{
		Limit:      10,
		Page:       3,
		Offset:     20,
		TotalCount: 25,
		TotalPages: 3,
		PrevPage:   2,
	}, s.p.Metadata(page, 25))
}

func (s *PaginatorTestSuite) TestMetadataEmpty() {
	s.Equal(domain.Metadata{
		Limit: 100,
		Page:  1,
	}, s.p.Metadata(domain.Page{Limit: 100}, 0))
}

func TestPaginatorTestSuite(t *testing.T) {
	suite.Run(t, new(PaginatorTestSuite))
}
