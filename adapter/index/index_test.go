package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/adapter/data"
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

type IndexTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *IndexTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *IndexTestSuite) newIndex(field string, unique bool) *Index {
	idx, err := NewIndex(field, unique)
	s.Require().NoError(err)
	return idx.(*Index)
}

func (s *IndexTestSuite) TestInsertAndMatch() {
	idx := s.newIndex("colour", false)
	s.Equal("colour", idx.FieldName())
	s.False(idx.Unique())

	s.NoError(idx.Insert(s.ctx,
		M{"$loki": int64(1), "colour": "yellow"},
		M{"$loki": int64(2), "colour": "green"},
		M{"$loki": int64(3), "colour": "yellow"},
		M{"$loki": int64(4)},
		M{"$loki": int64(5), "colour": nil},
	))
	s.Equal(2, idx.GetNumberOfKeys())

	ids, err := idx.GetMatching("yellow")
	s.NoError(err)
	s.Equal([]int64{1, 3}, ids)

	ids, err = idx.GetMatching("green", "yellow", "green")
	s.NoError(err)
	s.Equal([]int64{1, 2, 3}, ids)

	ids, err = idx.GetMatching("blue", nil)
	s.NoError(err)
	s.Empty(ids)
}

func (s *IndexTestSuite) TestNestedAndArrayValues() {
	idx := s.newIndex("a.tags", false)
	s.NoError(idx.Insert(s.ctx,
		M{"$loki": 1, "a": M{"tags": A{"x", "y", "x"}}},
		M{"$loki": 2, "a": M{"tags": "y"}},
	))
	s.Equal(2, idx.GetNumberOfKeys())

	ids, err := idx.GetMatching("y")
	s.NoError(err)
	s.Equal([]int64{1, 2}, ids)

	s.NoError(idx.Remove(s.ctx, M{"$loki": 1, "a": M{"tags": A{"x", "y", "x"}}}))
	ids, err = idx.GetMatching("x", "y")
	s.NoError(err)
	s.Equal([]int64{2}, ids)
}

func (s *IndexTestSuite) TestUniqueViolation() {
	idx := s.newIndex("_id", true)
	s.True(idx.Unique())

	s.NoError(idx.Insert(s.ctx, M{"$loki": int64(1), "_id": "a"}))

	err := idx.Insert(s.ctx,
		M{"$loki": int64(2), "_id": "b"},
		M{"$loki": int64(3), "_id": "a"},
	)
	s.ErrorIs(err, domain.ErrConstraintViolated{Field: "_id", Value: "a"})

	// the whole batch is rolled back
	ids, err := idx.GetMatching("b")
	s.NoError(err)
	s.Empty(ids)
	s.Equal(1, idx.GetNumberOfKeys())

	// missing values never collide
	s.NoError(idx.Insert(s.ctx, M{"$loki": int64(4)}, M{"$loki": int64(5), "_id": nil}))
}

func (s *IndexTestSuite) TestNoSequence() {
	idx := s.newIndex("a", false)
	s.ErrorIs(idx.Insert(s.ctx, M{"a": 1}), ErrNoSequence)
	s.ErrorIs(idx.Insert(s.ctx, M{"$loki": "1", "a": 1}), ErrNoSequence)
	s.ErrorIs(idx.Remove(s.ctx, M{"a": 1}), ErrNoSequence)
}

func (s *IndexTestSuite) TestUpdate() {
	idx := s.newIndex("email", true)
	s.NoError(idx.Insert(s.ctx,
		M{"$loki": 1, "email": "a@x"},
		M{"$loki": 2, "email": "b@x"},
	))

	s.NoError(idx.Update(s.ctx, []domain.Update{
		{OldDoc: M{"$loki": 1, "email": "a@x"}, NewDoc: M{"$loki": 1, "email": "c@x"}},
	}))
	ids, err := idx.GetMatching("a@x", "c@x")
	s.NoError(err)
	s.Equal([]int64{1}, ids)

	// swapping values inside a batch is allowed
	s.NoError(idx.Update(s.ctx, []domain.Update{
		{OldDoc: M{"$loki": 1, "email": "c@x"}, NewDoc: M{"$loki": 1, "email": "b@x"}},
		{OldDoc: M{"$loki": 2, "email": "b@x"}, NewDoc: M{"$loki": 2, "email": "c@x"}},
	}))
	ids, err = idx.GetMatching("b@x")
	s.NoError(err)
	s.Equal([]int64{1}, ids)
}

func (s *IndexTestSuite) TestUpdateRollback() {
	idx := s.newIndex("email", true)
	s.NoError(idx.Insert(s.ctx,
		M{"$loki": 1, "email": "a@x"},
		M{"$loki": 2, "email": "b@x"},
	))

	err := idx.Update(s.ctx, []domain.Update{
		{OldDoc: M{"$loki": 1, "email": "a@x"}, NewDoc: M{"$loki": 1, "email": "z@x"}},
		{OldDoc: M{"$loki": 2, "email": "b@x"}, NewDoc: M{"$loki": 2, "email": "z@x"}},
	})
	s.ErrorAs(err, &domain.ErrConstraintViolated{})

	for value, want := range map[string][]int64{"a@x": {1}, "b@x": {2}, "z@x": nil} {
		ids, err := idx.GetMatching(value)
		s.NoError(err)
		s.Equal(want, ids, value)
	}
}

// Errors found while restoring the previous state are reported along with
// the original error.
func (s *IndexTestSuite) TestUpdateRollbackErrors() {
	fn := new(fieldNavigatorMock)
	fn.On("GetAddress", "email").Return([]string{"email"}, nil).Once()
	idx, err := NewIndex("email", true, WithFieldNavigator(fn))
	s.Require().NoError(err)

	oldDoc := M{"$loki": 1, "email": "a@x"}
	newDoc := M{"$loki": 1, "email": "b@x"}
	errNew := fmt.Errorf("new doc error")
	errOld := fmt.Errorf("old doc error")
	fn.On("GetField", oldDoc, []string{"email"}).Return([]domain.GetSetter{}, false, nil).Once()
	fn.On("GetField", newDoc, []string{"email"}).Return([]domain.GetSetter(nil), false, errNew).Once()
	fn.On("GetField", oldDoc, []string{"email"}).Return([]domain.GetSetter(nil), false, errOld).Once()

	err = idx.Update(s.ctx, []domain.Update{{OldDoc: oldDoc, NewDoc: newDoc}})
	s.ErrorIs(err, errNew)
	s.ErrorIs(err, errOld)
	fn.AssertExpectations(s.T())
}

func (s *IndexTestSuite) TestReset() {
	idx := s.newIndex("n", false)
	s.NoError(idx.Insert(s.ctx, M{"$loki": 1, "n": 1}))
	s.NoError(idx.Reset(s.ctx, M{"$loki": 2, "n": 2}, M{"$loki": 3, "n": 3}))

	ids, err := idx.GetMatching(1, 2, 3)
	s.NoError(err)
	s.Equal([]int64{2, 3}, ids)
}

func (s *IndexTestSuite) TestCanceledContext() {
	idx := s.newIndex("n", false)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.ErrorIs(idx.Insert(ctx, M{"$loki": 1, "n": 1}), context.Canceled)
	s.ErrorIs(idx.Remove(ctx, M{"$loki": 1, "n": 1}), context.Canceled)
	s.ErrorIs(idx.Update(ctx, nil), context.Canceled)
	s.ErrorIs(idx.Reset(ctx), context.Canceled)
}

func (s *IndexTestSuite) TestFailedGetAddress() {
	fn := new(fieldNavigatorMock)
	errGetAddr := fmt.Errorf("get address error")
	fn.On("GetAddress", "a").Return([]string{}, errGetAddr).Once()

	idx, err := NewIndex("a", false, WithFieldNavigator(fn))
	s.ErrorIs(err, errGetAddr)
	s.Nil(idx)
	fn.AssertExpectations(s.T())
}

func (s *IndexTestSuite) TestFactory() {
	idx := NewFactory()("name", true)
	s.Equal("name", idx.FieldName())
	s.True(idx.Unique())

	s.Panics(func() { NewFactory()("", false) })
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}
