package idgenerator

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type IDGeneratorTestSuite struct {
	suite.Suite
	ig *IDGenerator
}

func (s *IDGeneratorTestSuite) SetupTest() {
	s.ig = NewIDGenerator().(*IDGenerator)
}

func (s *IDGeneratorTestSuite) TestFormat() {
	id, err := s.ig.GenerateID()
	s.NoError(err)
	s.Len(id, 36)

	parsed, err := uuid.Parse(id)
	s.NoError(err)
	s.Equal(uuid.Version(4), parsed.Version())
	s.Equal(uuid.RFC4122, parsed.Variant())
}

func (s *IDGeneratorTestSuite) TestUnique() {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id, err := s.ig.GenerateID()
		s.Require().NoError(err)
		s.NotContains(seen, id)
		seen[id] = struct{}{}
	}
}

// If the value in the random reader does not repeat, IDs generated multiple
// times will not result in collision.
func (s *IDGeneratorTestSuite) TestDeterministicReader() {
	buf := make([]byte, 32)
	for n := range buf {
		buf[n] = byte(n)
	}
	s.ig = NewIDGenerator(WithReader(bytes.NewReader(buf))).(*IDGenerator)

	id1, err := s.ig.GenerateID()
	s.NoError(err)
	s.Equal("00010203-0405-4607-8809-0a0b0c0d0e0f", id1)

	id2, err := s.ig.GenerateID()
	s.NoError(err)
	s.NotEqual(id1, id2)
}

func (s *IDGeneratorTestSuite) TestReadError() {
	s.ig = NewIDGenerator(WithReader(strings.NewReader(""))).(*IDGenerator)

	id, err := s.ig.GenerateID()
	s.ErrorIs(err, io.EOF)
	s.Zero(id)
}

func TestIDGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(IDGeneratorTestSuite))
}
