package querier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/domain"
)

type M = data.M

type A = []any

type fieldNavigatorMock struct{ mock.Mock }

// EnsureField implements [domain.FieldNavigator].
func (f *fieldNavigatorMock) EnsureField(obj any, addr ...string) ([]domain.GetSetter, error) {
	call := f.Called(obj, addr)
	return call.Get(0).([]domain.GetSetter), call.Error(1)
}

// GetAddress implements [domain.FieldNavigator].
func (f *fieldNavigatorMock) GetAddress(field string) ([]string, error) {
	call := f.Called(field)
	return call.Get(0).([]string), call.Error(1)
}

// GetField implements [domain.FieldNavigator].
func (f *fieldNavigatorMock) GetField(obj any, addr ...string) ([]domain.GetSetter, bool, error) {
	call := f.Called(obj, addr)
	return call.Get(0).([]domain.GetSetter), call.Bool(1), call.Error(2)
}

type matcherMock struct{ mock.Mock }

// Match implements [domain.Matcher].
func (m *matcherMock) Match(v any) (bool, error) {
	call := m.Called(v)
	return call.Bool(0), call.Error(1)
}

// SetQuery implements [domain.Matcher].
func (m *matcherMock) SetQuery(q any) error {
	return m.Called(q).Error(0)
}

type QuerierTestSuite struct {
	suite.Suite
	q    *Querier
	docs []domain.Document
}

func (s *QuerierTestSuite) SetupTest() {
	s.q = NewQuerier()
	s.docs = []domain.Document{
		M{"$loki": 1, "name": "Oscar", "age": 57, "address": M{"city": "Sesame"}},
		M{"$loki": 2, "name": "Ernie", "age": 5},
		M{"$loki": 3, "name": "Bert", "age": 5, "address": M{"city": "Arkham"}},
		M{"$loki": 4, "name": "Elmo"},
	}
}

func (s *QuerierTestSuite) names(docs []domain.Document) []any {
	res := make([]any, len(docs))
	for n, doc := range docs {
		res[n] = doc.Get("name")
	}
	return res
}

func (s *QuerierTestSuite) TestFilter() {
	res, err := s.q.Filter(s.docs, M{"age": M{"$gte": 5}})
	s.NoError(err)
	s.Equal(A{"Oscar", "Ernie", "Bert"}, s.names(res))

	res, err = s.q.Filter(s.docs, M{"name": M{"$eq": "Nobody"}})
	s.NoError(err)
	s.Empty(res)

	res, err = s.q.Filter(s.docs, nil)
	s.NoError(err)
	s.Equal(s.docs, res)
}

func (s *QuerierTestSuite) TestFilterErrors() {
	_, err := s.q.Filter(s.docs, M{"age": M{"$nope": 1}})
	s.Error(err)

	errMatch := fmt.Errorf("match error")
	mtchr := new(matcherMock)
	mtchr.On("SetQuery", mock.Anything).Return(nil).Once()
	mtchr.On("Match", mock.Anything).Return(false, errMatch).Once()
	q := NewQuerier(WithMatcherFactory(func() domain.Matcher { return mtchr }))
	_, err = q.Filter(s.docs, M{})
	s.ErrorIs(err, errMatch)
	mtchr.AssertExpectations(s.T())
}

func (s *QuerierTestSuite) TestSort() {
	res, err := s.q.Sort(s.docs, domain.SortPlan{Property: "name"})
	s.NoError(err)
	s.Equal(A{"Bert", "Elmo", "Ernie", "Oscar"}, s.names(res))

	res, err = s.q.Sort(s.docs, domain.SortPlan{Property: "name", Descending: true})
	s.NoError(err)
	s.Equal(A{"Oscar", "Ernie", "Elmo", "Bert"}, s.names(res))

	// input order is left untouched
	s.Equal(A{"Oscar", "Ernie", "Bert", "Elmo"}, s.names(s.docs))
}

func (s *QuerierTestSuite) TestSortIsStableAndMissingFirst() {
	res, err := s.q.Sort(s.docs, domain.SortPlan{Property: "age"})
	s.NoError(err)
	s.Equal(A{"Elmo", "Ernie", "Bert", "Oscar"}, s.names(res))
}

func (s *QuerierTestSuite) TestSortNested() {
	res, err := s.q.Sort(s.docs, domain.SortPlan{Property: "address.city", Descending: true})
	s.NoError(err)
	s.Equal(A{"Oscar", "Bert", "Ernie", "Elmo"}, s.names(res))
}

func (s *QuerierTestSuite) TestSortErrors() {
	errAddr := fmt.Errorf("address error")
	fn := new(fieldNavigatorMock)
	fn.On("GetAddress", "name").Return([]string{}, errAddr).Once()
	q := NewQuerier(WithFieldNavigator(fn))
	_, err := q.Sort(s.docs, domain.SortPlan{Property: "name"})
	s.ErrorIs(err, errAddr)

	errField := fmt.Errorf("field error")
	fn.On("GetAddress", "name").Return([]string{"name"}, nil).Once()
	fn.On("GetField", mock.Anything, []string{"name"}).Return([]domain.GetSetter{}, false, errField).Once()
	_, err = q.Sort(s.docs, domain.SortPlan{Property: "name"})
	s.ErrorIs(err, errField)
	fn.AssertExpectations(s.T())
}

func (s *QuerierTestSuite) TestWindow() {
	s.Equal(s.docs, s.q.Window(s.docs, 0, 0))
	s.Equal(s.docs[1:3], s.q.Window(s.docs, 1, 2))
	s.Equal(s.docs[3:], s.q.Window(s.docs, 3, 10))
	s.Empty(s.q.Window(s.docs, 10, 1))
	s.Equal(s.docs[:1], s.q.Window(s.docs, -1, 1))
}

func (s *QuerierTestSuite) TestCustomNavigator() {
	q := NewQuerier(WithFieldNavigator(fieldnavigator.NewFieldNavigator(data.NewDocument)), WithDocumentFactory(data.NewDocument))
	res, err := q.Filter(s.docs, M{"address.city": M{"$eq": "Arkham"}})
	s.NoError(err)
	s.Equal(A{"Bert"}, s.names(res))
}

func TestQuerierTestSuite(t *testing.T) {
	suite.Run(t, new(QuerierTestSuite))
}
