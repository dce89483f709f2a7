// Package connectortest provides connectors for tests.
package connectortest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dadi/api-filestore/adapter/connector"
	"github.com/dadi/api-filestore/adapter/database"
	"github.com/dadi/api-filestore/domain"
)

// DefaultDatabase is the default database of the connectors returned by New.
const DefaultDatabase = "test"

// New returns a connector storing its datafiles in a temporary directory,
// with autosave disabled and logs discarded. The connector is closed when
// the test ends. Options are applied after the test defaults.
func New(t testing.TB, opts ...connector.Option) *connector.Connector {
	t.Helper()
	defaults := []connector.Option{
		connector.WithPath(t.TempDir()),
		connector.WithDefaultDatabase(DefaultDatabase),
		connector.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		connector.WithDatabaseOptions(database.WithAutosave(false)),
	}
	c := connector.NewConnector(append(defaults, opts...)...)
	t.Cleanup(func() {
		err := c.Close(context.Background())
		if err != nil && !errors.Is(err, domain.ErrClosed) {
			t.Errorf("closing connector: %v", err)
		}
	})
	return c
}
