package comparer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/domain"
)

type ComparerTestSuite struct {
	suite.Suite
	c *Comparer
}

func (s *ComparerTestSuite) SetupTest() {
	s.c = NewComparer().(*Comparer)
}

func (s *ComparerTestSuite) TestUndefinedIsSmallest() {
	otherStuff := [...]any{nil, "string", -1, 0, uint(12), false, data.M{},
		time.UnixMilli(12345), data.M{"hello": "world"}, []any{}, "",
		[]any{"quite", 5},
	}
	for _, stuff := range otherStuff {
		comp, err := s.c.Compare(domain.Undefined, stuff)
		s.NoError(err)
		s.Equal(-1, comp)
		comp, err = s.c.Compare(stuff, domain.Undefined)
		s.NoError(err)
		s.Equal(1, comp)
	}
	comp, err := s.c.Compare(domain.Undefined, domain.Undefined)
	s.NoError(err)
	s.Zero(comp)
}

func (s *ComparerTestSuite) TestNilIsSecondSmallest() {
	otherStuff := [...]any{"string", "", -1, 0, uint(12), false,
		time.UnixMilli(12345), data.M{}, []any{},
	}
	for _, stuff := range otherStuff {
		comp, err := s.c.Compare(nil, stuff)
		s.NoError(err)
		s.Equal(-1, comp)
		comp, err = s.c.Compare(stuff, nil)
		s.NoError(err)
		s.Equal(1, comp)
	}
	comp, err := s.c.Compare(nil, nil)
	s.NoError(err)
	s.Zero(comp)
}

func (s *ComparerTestSuite) TestNumbers() {
	testCases := []struct {
		arg1 any
		arg2 any
		res  int
	}{
		{arg1: int64(-12), arg2: int16(0), res: -1},
		{arg1: uint8(0), arg2: int8(-3), res: 1},
		{arg1: 5.7, arg2: uint32(2), res: 1},
		{arg1: 5.7, arg2: float32(12.3), res: -1},
		{arg1: uint64(0), arg2: uint16(0), res: 0},
		{arg1: int32(5), arg2: 5.0, res: 0},
		{arg1: 3, arg2: "3", res: -1},
	}

	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp, "%v vs %v", tc.arg1, tc.arg2)
	}
}

func (s *ComparerTestSuite) TestTypeOrder() {
	now := time.Now()
	ordered := []any{nil, 1, "a", false, now, []any{1}, data.M{"a": 1}}
	for i := range ordered {
		for j := range ordered {
			comp, err := s.c.Compare(ordered[i], ordered[j])
			s.NoError(err)
			switch {
			case i < j:
				s.Equal(-1, comp)
			case i > j:
				s.Equal(1, comp)
			default:
				s.Zero(comp)
			}
		}
	}
}

func (s *ComparerTestSuite) TestSameTypes() {
	now := time.Now()
	testCases := []struct {
		arg1 any
		arg2 any
		res  int
	}{
		{"abc", "abd", -1},
		{true, false, 1},
		{now, now.Add(time.Second), -1},
		{[]any{1, 2}, []any{1, 2, 3}, -1},
		{[]any{1, 3}, []any{1, 2, 3}, 1},
		{data.M{"a": 1}, data.M{"a": 1}, 0},
		{data.M{"a": 1}, data.M{"a": 2}, -1},
		{data.M{"a": 1}, data.M{"b": 0}, -1},
		{data.M{"a": 1}, data.M{"a": 1, "b": 1}, -1},
		{data.D{{Key: "a", Value: 1}}, data.M{"a": 1}, 0},
	}
	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.arg1, tc.arg2)
		s.NoError(err)
		s.Equal(tc.res, comp, "%v vs %v", tc.arg1, tc.arg2)
	}
}

func (s *ComparerTestSuite) TestUnknownType() {
	_, err := s.c.Compare(struct{}{}, 1)
	s.Error(err)
	_, err = s.c.Compare([]any{1, struct{}{}}, []any{1, 1})
	s.Error(err)
}

func (s *ComparerTestSuite) TestComparable() {
	s.True(s.c.Comparable(1, 2.5))
	s.True(s.c.Comparable("a", "b"))
	s.True(s.c.Comparable(time.Now(), time.Now()))
	s.False(s.c.Comparable(1, "1"))
	s.False(s.c.Comparable(true, false))
	s.False(s.c.Comparable(domain.Undefined, 1))
	s.False(s.c.Comparable(nil, nil))
	s.False(s.c.Comparable([]any{}, []any{}))
}

func TestComparerTestSuite(t *testing.T) {
	suite.Run(t, new(ComparerTestSuite))
}
