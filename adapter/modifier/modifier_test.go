package modifier

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

type ModifierTestSuite struct {
	suite.Suite
	mod *Modifier
}

func (s *ModifierTestSuite) SetupTest() {
	s.mod = NewModifier().(*Modifier)
}

func (s *ModifierTestSuite) modify(doc domain.Document, update any) domain.Document {
	res, err := s.mod.Modify(doc, update)
	s.Require().NoError(err)
	return res
}

func (s *ModifierTestSuite) TestSet() {
	doc := M{"_id": "1", "name": "Ernie", "tags": A{"a", "b"}}

	s.Equal(
		M{"_id": "1", "name": "Bert", "tags": A{"a", "b"}},
		s.modify(doc, M{"$set": M{"name": "Bert"}}),
	)
	s.Equal(
		M{"_id": "1", "name": "Ernie", "tags": A{"a", "b"}, "a": M{"b": M{"c": 1}}},
		s.modify(doc, M{"$set": M{"a.b.c": 1}}),
	)
	s.Equal(
		M{"_id": "1", "name": "Ernie", "tags": A{"a", "x"}},
		s.modify(doc, M{"$set": M{"tags.1": "x"}}),
	)
	// same _id is accepted
	s.Equal(doc, s.modify(doc, M{"$set": M{"_id": "1"}}))

	// input is never mutated
	s.Equal(M{"_id": "1", "name": "Ernie", "tags": A{"a", "b"}}, doc)
}

func (s *ModifierTestSuite) TestSetValueIsCopied() {
	value := M{"x": 1}
	res := s.modify(M{}, M{"$set": M{"v": value}})
	value["x"] = 2
	s.Equal(M{"v": M{"x": 1}}, res)
}

func (s *ModifierTestSuite) TestSetNotTraversable() {
	_, err := s.mod.Modify(M{"name": "Ernie"}, M{"$set": M{"name.first": "E"}})
	s.ErrorAs(err, &fieldnavigator.ErrNotTraversable{})

	_, err = s.mod.Modify(M{"tags": A{M{"a": 1}}}, M{"$set": M{"tags.a": 1}})
	s.ErrorAs(err, &fieldnavigator.ErrNotTraversable{})
}

func (s *ModifierTestSuite) TestUnset() {
	doc := M{"_id": "1", "a": 1, "b": M{"c": 2, "d": 3}}
	s.Equal(M{"_id": "1", "b": M{"c": 2, "d": 3}}, s.modify(doc, M{"$unset": M{"a": true}}))
	s.Equal(M{"_id": "1", "a": 1, "b": M{"d": 3}}, s.modify(doc, M{"$unset": M{"b.c": ""}}))
	s.Equal(doc, s.modify(doc, M{"$unset": M{"missing": true}}))
}

func (s *ModifierTestSuite) TestInc() {
	s.Equal(M{"name": "X", "age": 10}, s.modify(M{"name": "X"}, M{"$inc": M{"age": 10}}))
	s.Equal(M{"age": 15}, s.modify(M{"age": 5}, M{"$inc": M{"age": 10}}))
	s.Equal(M{"age": int64(15)}, s.modify(M{"age": int64(5)}, M{"$inc": M{"age": 10}}))
	s.Equal(M{"age": 5.5}, s.modify(M{"age": 5}, M{"$inc": M{"age": 0.5}}))
	s.Equal(M{"age": 3}, s.modify(M{"age": nil}, M{"$inc": M{"age": 3}}))
	s.Equal(M{"a": M{"n": -1}}, s.modify(M{}, M{"$inc": M{"a.n": -1}}))
}

func (s *ModifierTestSuite) TestIncInvalidTypes() {
	_, err := s.mod.Modify(M{"age": "five"}, M{"$inc": M{"age": 1}})
	s.ErrorAs(err, &domain.ErrModifierType{})

	_, err = s.mod.Modify(M{"age": 5}, M{"$inc": M{"age": "1"}})
	s.ErrorAs(err, &domain.ErrModifierType{})
}

func (s *ModifierTestSuite) TestPush() {
	s.Equal(M{"tags": A{"red"}}, s.modify(M{}, M{"$push": M{"tags": "red"}}))
	s.Equal(M{"tags": A{"a", "red"}}, s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": "red"}}))
	s.Equal(
		M{"tags": A{"a", M{"b": 1}}},
		s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": M{"b": 1}}}),
	)
	s.Equal(
		M{"tags": A{"a", "b", "c"}},
		s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": M{"$each": A{"b", "c"}}}}),
	)
	s.Equal(
		M{"tags": A{"b", "c"}},
		s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": M{"$each": A{"b", "c"}, "$slice": -2}}}),
	)
	s.Equal(
		M{"tags": A{"a"}},
		s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": M{"$each": A{"b", "c"}, "$slice": 1}}}),
	)
	s.Equal(
		M{"tags": A{}},
		s.modify(M{"tags": A{"a"}}, M{"$push": M{"tags": M{"$each": A{"b"}, "$slice": 0}}}),
	)
}

func (s *ModifierTestSuite) TestPushErrors() {
	_, err := s.mod.Modify(M{"tags": "a"}, M{"$push": M{"tags": "b"}})
	s.ErrorAs(err, &domain.ErrModifierType{})

	_, err = s.mod.Modify(M{}, M{"$push": M{"tags": M{"$each": "b"}}})
	s.ErrorAs(err, &domain.ErrModifierType{})

	_, err = s.mod.Modify(M{}, M{"$push": M{"tags": M{"$each": A{"b"}, "$slice": 1.5}}})
	s.ErrorAs(err, &domain.ErrModifierType{})

	_, err = s.mod.Modify(M{}, M{"$push": M{"tags": M{"$each": A{"b"}, "$sort": 1}}})
	s.ErrorIs(err, ErrInvalidPushField)
}

func (s *ModifierTestSuite) TestAddToSet() {
	s.Equal(M{"tags": A{"a"}}, s.modify(M{"tags": A{"a"}}, M{"$addToSet": M{"tags": "a"}}))
	s.Equal(M{"tags": A{"a", "b"}}, s.modify(M{"tags": A{"a"}}, M{"$addToSet": M{"tags": "b"}}))
	s.Equal(
		M{"tags": A{"a", "b"}},
		s.modify(M{"tags": A{"a"}}, M{"$addToSet": M{"tags": M{"$each": A{"a", "b", "b"}}}}),
	)
	s.Equal(
		M{"tags": A{M{"k": 1}}},
		s.modify(M{"tags": A{M{"k": 1}}}, M{"$addToSet": M{"tags": M{"k": 1}}}),
	)

	_, err := s.mod.Modify(M{}, M{"$addToSet": M{"tags": M{"$each": A{"a"}, "$slice": 1}}})
	s.ErrorIs(err, ErrInvalidAddToSetField)
}

func (s *ModifierTestSuite) TestPop() {
	doc := M{"tags": A{"a", "b", "c"}}
	s.Equal(M{"tags": A{"a", "b"}}, s.modify(doc, M{"$pop": M{"tags": 1}}))
	s.Equal(M{"tags": A{"b", "c"}}, s.modify(doc, M{"$pop": M{"tags": -1}}))
	s.Equal(doc, s.modify(doc, M{"$pop": M{"tags": 0}}))
	s.Equal(M{"tags": A{}}, s.modify(M{"tags": A{}}, M{"$pop": M{"tags": 1}}))
	s.Equal(M{}, s.modify(M{}, M{"$pop": M{"tags": 1}}))

	_, err := s.mod.Modify(doc, M{"$pop": M{"tags": 0.5}})
	s.ErrorAs(err, &domain.ErrModifierType{})

	_, err = s.mod.Modify(M{"tags": "a"}, M{"$pop": M{"tags": 1}})
	s.ErrorAs(err, &domain.ErrModifierType{})
}

func (s *ModifierTestSuite) TestPull() {
	s.Equal(
		M{"tags": A{"a", "c"}},
		s.modify(M{"tags": A{"a", "b", "c", "b"}}, M{"$pull": M{"tags": "b"}}),
	)
	s.Equal(
		M{"nums": A{1, 2}},
		s.modify(M{"nums": A{1, 2, 3, 4}}, M{"$pull": M{"nums": M{"$gte": 3}}}),
	)
	s.Equal(
		M{"tags": A{"c"}},
		s.modify(M{"tags": A{"a", "b", "c"}}, M{"$pull": M{"tags": M{"$in": A{"a", "b"}}}}),
	)
	s.Equal(
		M{"items": A{M{"k": "b", "v": 2}}},
		s.modify(
			M{"items": A{M{"k": "a", "v": 1}, M{"k": "b", "v": 2}}},
			M{"$pull": M{"items": M{"k": "a"}}},
		),
	)
	s.Equal(
		M{"items": A{M{"k": "a", "v": 1}}},
		s.modify(
			M{"items": A{M{"k": "a", "v": 1}, M{"k": "b", "v": 2}}},
			M{"$pull": M{"items": M{"k": "b", "v": M{"$gt": 1}}}},
		),
	)
	s.Equal(M{}, s.modify(M{}, M{"$pull": M{"tags": "a"}}))

	_, err := s.mod.Modify(M{"tags": 1}, M{"$pull": M{"tags": 1}})
	s.ErrorAs(err, &domain.ErrModifierType{})
}

func (s *ModifierTestSuite) TestMaxMin() {
	doc := M{"n": 5}
	s.Equal(M{"n": 10}, s.modify(doc, M{"$max": M{"n": 10}}))
	s.Equal(doc, s.modify(doc, M{"$max": M{"n": 1}}))
	s.Equal(M{"n": 1}, s.modify(doc, M{"$min": M{"n": 1}}))
	s.Equal(doc, s.modify(doc, M{"$min": M{"n": 10}}))
	s.Equal(M{"n": 5, "m": 3}, s.modify(doc, M{"$max": M{"m": 3}}))
	s.Equal(M{"n": 5, "m": 3}, s.modify(doc, M{"$min": M{"m": 3}}))
}

func (s *ModifierTestSuite) TestMultipleOperators() {
	res := s.modify(
		M{"_id": "1", "n": 1, "tags": A{}},
		M{"$inc": M{"n": 1}, "$push": M{"tags": "x"}, "$set": M{"done": true}},
	)
	s.Equal(M{"_id": "1", "n": 2, "tags": A{"x"}, "done": true}, res)
}

func (s *ModifierTestSuite) TestUnsupportedOperator() {
	_, err := s.mod.Modify(M{}, M{"$rename": M{"a": "b"}})
	s.ErrorIs(err, domain.ErrUnsupportedOperator{Operator: "$rename"})

	// replacement updates are not supported
	_, err = s.mod.Modify(M{}, M{"name": "Bert"})
	s.ErrorIs(err, domain.ErrUnsupportedOperator{Operator: "name"})

	_, err = s.mod.Modify(M{}, M{"$set": 1})
	s.ErrorIs(err, ErrNonObject)
}

func (s *ModifierTestSuite) TestEngineFields() {
	doc := M{"_id": "1", "$loki": int64(3), "meta": M{"revision": 0}}

	_, err := s.mod.Modify(doc, M{"$set": M{"_id": "2"}})
	s.ErrorIs(err, domain.ErrCannotModifyID)

	_, err = s.mod.Modify(doc, M{"$unset": M{"_id": true}})
	s.ErrorIs(err, domain.ErrCannotModifyID)

	_, err = s.mod.Modify(doc, M{"$set": M{"_id.x": 1}})
	s.ErrorIs(err, domain.ErrCannotModifyID)

	_, err = s.mod.Modify(doc, M{"$set": M{"$loki": 4}})
	s.ErrorIs(err, domain.ErrCannotModifyID)

	_, err = s.mod.Modify(doc, M{"$inc": M{"meta.revision": 1}})
	s.ErrorIs(err, domain.ErrCannotModifyID)

	_, err = s.mod.Modify(doc, M{"$set": M{"$where": 1}})
	s.ErrorAs(err, &domain.ErrFieldName{})

	// engine fields are carried over
	s.Equal(
		M{"_id": "1", "$loki": int64(3), "meta": M{"revision": 0}, "a": 1},
		s.modify(doc, M{"$set": M{"a": 1}}),
	)
}

func (s *ModifierTestSuite) TestApply() {
	docs := []domain.Document{
		M{"_id": "1", "colour": "green"},
		M{"_id": "2", "colour": "green", "n": 1},
	}
	res, err := s.mod.Apply(M{"$set": M{"colour": "yellow"}, "$inc": M{"n": 1}}, docs)
	s.NoError(err)
	s.Equal([]domain.Document{
		M{"_id": "1", "colour": "yellow", "n": 1},
		M{"_id": "2", "colour": "yellow", "n": 2},
	}, res)

	res, err = s.mod.Apply(M{"$nope": M{"n": 1}}, docs)
	s.ErrorIs(err, domain.ErrUnsupportedOperator{Operator: "$nope"})
	s.Nil(res)

	res, err = s.mod.Apply(M{"$set": M{"colour": "red"}}, nil)
	s.NoError(err)
	s.Empty(res)
}

func (s *ModifierTestSuite) TestStructUpdate() {
	type setColour struct {
		Colour string `filestore:"colour"`
	}
	type update struct {
		Set setColour `filestore:"$set"`
	}
	s.Equal(M{"colour": "blue"}, s.modify(M{"colour": "red"}, update{Set: setColour{Colour: "blue"}}))
}

func (s *ModifierTestSuite) TestFailedGetAddress() {
	fn := new(fieldNavigatorMock)
	s.mod = NewModifier(WithFieldNavigator(fn)).(*Modifier)

	errGetAddr := fmt.Errorf("get address error")
	fn.On("GetAddress", "a").Return([]string{}, errGetAddr).Once()

	_, err := s.mod.Modify(M{}, M{"$set": M{"a": 1}})
	s.ErrorIs(err, errGetAddr)
	fn.AssertExpectations(s.T())
}

func (s *ModifierTestSuite) TestFailedEnsureField() {
	fn := new(fieldNavigatorMock)
	s.mod = NewModifier(WithFieldNavigator(fn)).(*Modifier)

	errEnsure := fmt.Errorf("ensure field error")
	fn.On("GetAddress", "a").Return([]string{"a"}, nil).Once()
	fn.On("EnsureField", mock.Anything, []string{"a"}).Return([]domain.GetSetter{}, errEnsure).Once()

	_, err := s.mod.Modify(M{}, M{"$inc": M{"a": 1}})
	s.ErrorIs(err, errEnsure)
	fn.AssertExpectations(s.T())
}

func TestModifierTestSuite(t *testing.T) {
	suite.Run(t, new(ModifierTestSuite))
}
