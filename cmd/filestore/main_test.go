package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/internal/config"
)

type MainTestSuite struct {
	suite.Suite
	dir    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func (s *MainTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Setenv(config.EnvVar, "")
	s.Require().NoError(os.Unsetenv(config.EnvVar))
}

func (s *MainTestSuite) run(args ...string) error {
	s.stdout = new(bytes.Buffer)
	s.stderr = new(bytes.Buffer)
	args = append([]string{"--no-color", "--config-dir", s.dir, "--path", s.dir, "--db", "library"}, args...)
	return run(s.T().Context(), args, s.stdout, s.stderr)
}

func (s *MainTestSuite) TestInsertAndFind() {
	s.NoError(s.run("insert", "books", `[{"title":"Emma","year":1815},{"title":"Dune","year":1965}]`))
	s.Contains(s.stderr.String(), `inserted 2 document(s) into "books"`)
	s.FileExists(filepath.Join(s.dir, "library.db"))

	s.NoError(s.run("find", "books", `{"year":{"$gt":1900}}`))
	var res struct {
		Results  []map[string]any `json:"results"`
		Metadata domain.Metadata  `json:"metadata"`
	}
	s.Require().NoError(json.Unmarshal(s.stdout.Bytes(), &res))
	s.Require().Len(res.Results, 1)
	s.Equal("Dune", res.Results[0]["title"])
	s.NotContains(res.Results[0], domain.FieldLoki)
	s.Equal(1, res.Metadata.TotalCount)
}

func (s *MainTestSuite) TestFindOptions() {
	s.NoError(s.run("insert", "books", `[{"title":"b"},{"title":"c"},{"title":"a"}]`))

	s.NoError(s.run("find", "books", "--sort", "title", "--desc", "--limit", "2", "--fields", "title"))
	var raw struct {
		Results  []map[string]any `json:"results"`
		Metadata domain.Metadata  `json:"metadata"`
	}
	s.Require().NoError(json.Unmarshal(s.stdout.Bytes(), &raw))
	s.Require().Len(raw.Results, 2)
	s.Equal("c", raw.Results[0]["title"])
	s.Equal("b", raw.Results[1]["title"])
	s.Contains(raw.Results[0], "_id")

	s.NoError(s.run("find", "books", "{}", "--options", `{"skip":2,"sort":{"title":1}}`))
	raw.Metadata = domain.Metadata{}
	s.Require().NoError(json.Unmarshal(s.stdout.Bytes(), &raw))
	s.Equal(3, raw.Metadata.TotalCount)
	s.Equal(2, raw.Metadata.Offset)
	s.Require().Len(raw.Results, 1)
	s.Equal("c", raw.Results[0]["title"])
}

func (s *MainTestSuite) TestUpdateAndDelete() {
	s.NoError(s.run("insert", "books", `{"title":"Dune","reads":1}`))

	s.NoError(s.run("update", "books", `{"title":"Dune"}`, `{"$inc":{"reads":2}}`))
	s.Contains(s.stdout.String(), `"matchedCount": 1`)

	s.NoError(s.run("find", "books", `{"reads":3}`))
	s.Contains(s.stdout.String(), `"totalCount": 1`)

	s.Error(s.run("update", "books", `{}`, `{"$rename":{"reads":"views"}}`))

	s.NoError(s.run("delete", "books", `{"title":"Dune"}`))
	s.Contains(s.stdout.String(), `"deletedCount": 1`)
}

func (s *MainTestSuite) TestIndexes() {
	s.NoError(s.run("index", "users", `{"keys":{"email":1},"options":{"unique":true}}`))
	s.Contains(s.stderr.String(), `index "email" ready on "users"`)

	s.NoError(s.run("indexes", "users"))
	s.Contains(s.stdout.String(), "FIELD")
	s.Contains(s.stdout.String(), "email")
	s.Contains(s.stdout.String(), "true")

	s.NoError(s.run("insert", "users", `{"email":"a@b.c"}`))
	s.Error(s.run("insert", "users", `{"email":"a@b.c"}`))

	s.NoError(s.run("stats", "users"))
	s.Contains(s.stdout.String(), "unique index")
	s.Contains(s.stdout.String(), "email")
}

func (s *MainTestSuite) TestDrop() {
	s.NoError(s.run("insert", "books", `{"title":"Dune"}`))
	s.NoError(s.run("drop", "books"))
	s.Contains(s.stderr.String(), `collection "books" dropped`)

	s.NoError(s.run("find", "books"))
	s.Contains(s.stdout.String(), `"totalCount": 0`)

	s.NoError(s.run("drop"))
	s.Contains(s.stderr.String(), "database dropped")
}

func (s *MainTestSuite) TestVersion() {
	s.NoError(s.run("version"))
	s.Contains(s.stdout.String(), `"version": "1.0.0"`)
	s.NoFileExists(filepath.Join(s.dir, "library.db"))
}

func (s *MainTestSuite) TestErrors() {
	s.Error(s.run("find", "books", `{"title":`))
	s.Error(s.run("find"))
	s.Error(s.run("--env", "missing", "find", "books", "--options", `{"skip":-1}`))
}

func TestMainTestSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}
