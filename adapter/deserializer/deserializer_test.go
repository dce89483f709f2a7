package deserializer

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/domain"
)

var ctx = context.Background()

type DeserializerTestSuite struct {
	suite.Suite
	d *Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer().(*Deserializer)
}

// Integral numbers are read as ints, other numbers as float64.
func (s *DeserializerTestSuite) TestValues() {
	b := []byte(`{"str":"Some string","t":true,"f":false,"n":5,"x":6.2,"nil":null,"big":1e300}`)
	var r map[string]any
	s.NoError(s.d.Deserialize(ctx, b, &r))
	s.Equal(map[string]any{
		"str": "Some string",
		"t":   true,
		"f":   false,
		"n":   5,
		"x":   6.2,
		"nil": nil,
		"big": 1e300,
	}, r)
}

// Can deserialize time.Time, even nested in documents and slices.
func (s *DeserializerTestSuite) TestDate() {
	d := time.Now()
	b := []byte(`{"test":{"$$date":` + itoa(d.UnixMilli()) + `},` +
		`"doc":{"also":{"$$date":` + itoa(d.UnixMilli()) + `}},` +
		`"list":["a",{"$$date":` + itoa(d.UnixMilli()) + `}]}`)
	var r map[string]any
	s.NoError(s.d.Deserialize(ctx, b, &r))

	date := d.Truncate(time.Millisecond).UTC()
	s.True(date.Equal(r["test"].(time.Time)))
	s.True(date.Equal(r["doc"].(map[string]any)["also"].(time.Time)))
	s.True(date.Equal(r["list"].([]any)[1].(time.Time)))

	// only single field objects are dates
	b = []byte(`{"test":{"$$date":1,"other":2}}`)
	s.NoError(s.d.Deserialize(ctx, b, &r))
	s.Equal(map[string]any{"$$date": 1, "other": 2}, r["test"])
}

func (s *DeserializerTestSuite) TestSnapshot() {
	b := []byte(`{"filename":"test.db","collections":[{"name":"people",` +
		`"data":[{"$loki":1,"name":"Ernie","meta":{"revision":0}}],` +
		`"maxId":1,"uniqueNames":["_id"],"binaryIndices":[]}],` +
		`"databaseVersion":1.5,"serializationMethod":"normal"}`)
	var snap domain.Snapshot
	s.NoError(s.d.Deserialize(ctx, b, &snap))
	s.Equal(domain.Snapshot{
		Filename: "test.db",
		Collections: []domain.CollectionSnapshot{{
			Name:          "people",
			Data:          []map[string]any{{"$loki": 1, "name": "Ernie", "meta": map[string]any{"revision": 0}}},
			MaxID:         1,
			UniqueNames:   []string{"_id"},
			BinaryIndices: []string{},
		}},
		DatabaseVersion:     1.5,
		SerializationMethod: "normal",
	}, snap)
}

func (s *DeserializerTestSuite) TestCompressed() {
	enc, err := zstd.NewWriter(nil)
	s.Require().NoError(err)
	b := enc.EncodeAll([]byte(`{"a":1}`), nil)
	s.NoError(enc.Close())

	s.True(IsCompressed(b))
	var r map[string]any
	s.NoError(s.d.Deserialize(ctx, b, &r))
	s.Equal(map[string]any{"a": 1}, r)
}

func (s *DeserializerTestSuite) TestStructTarget() {
	var r struct {
		Name string    `filestore:"name"`
		Born time.Time `filestore:"born"`
	}
	b := []byte(`{"name":"Ernie","born":{"$$date":0}}`)
	s.NoError(s.d.Deserialize(ctx, b, &r))
	s.Equal("Ernie", r.Name)
	s.True(time.UnixMilli(0).Equal(r.Born))
}

func (s *DeserializerTestSuite) TestContext() {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	var r map[string]any
	s.ErrorIs(s.d.Deserialize(ctx, []byte(`{}`), &r), context.Canceled)
}

func (s *DeserializerTestSuite) TestNilTarget() {
	s.ErrorIs(s.d.Deserialize(ctx, []byte(`{}`), nil), domain.ErrTargetNil{})
}

func (s *DeserializerTestSuite) TestInvalidSyntax() {
	var r map[string]any
	s.Error(s.d.Deserialize(ctx, []byte(`{"a":`), &r))
	s.Error(s.d.Deserialize(ctx, []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, &r))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
