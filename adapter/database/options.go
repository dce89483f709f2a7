package database

import (
	"log/slog"
	"os"
	"time"

	"github.com/dadi/api-filestore/adapter/collection"
	"github.com/dadi/api-filestore/adapter/serializer"
	"github.com/dadi/api-filestore/domain"
)

// WithName sets the database name. It defaults to the datafile name
// without extension.
func WithName(n string) Option {
	return func(d *Database) {
		d.name = n
	}
}

// WithFilename sets the datafile. Without a datafile the database is kept
// in memory only.
func WithFilename(f string) Option {
	return func(d *Database) {
		d.filename = f
	}
}

// WithInMemoryOnly disables the datafile.
func WithInMemoryOnly(i bool) Option {
	return func(d *Database) {
		d.inMemoryOnly = i
	}
}

// WithAutosave enables or disables the autosave loop.
func WithAutosave(a bool) Option {
	return func(d *Database) {
		d.autosave = a
	}
}

// WithAutosaveInterval sets the autosave period.
func WithAutosaveInterval(i time.Duration) Option {
	return func(d *Database) {
		d.autosaveInterval = i
	}
}

// WithSerializationMode sets how snapshots are written to the datafile.
func WithSerializationMode(m serializer.Mode) Option {
	return func(d *Database) {
		d.serializationMode = m
	}
}

// WithFileMode sets the file permissions for the datafile.
func WithFileMode(f os.FileMode) Option {
	return func(d *Database) {
		d.fileMode = f
	}
}

// WithDirMode sets the permissions of created directories.
func WithDirMode(m os.FileMode) Option {
	return func(d *Database) {
		d.dirMode = m
	}
}

// WithLogger sets the logger. It defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithStorage sets the storage used for the directory, lock and datafile.
func WithStorage(s domain.Storage) Option {
	return func(d *Database) {
		d.storage = s
	}
}

// WithPersistence replaces the persistence built from the other options.
func WithPersistence(p domain.Persistence) Option {
	return func(d *Database) {
		d.persistence = p
	}
}

// WithCollectionOptions sets options applied to every collection.
func WithCollectionOptions(opts ...collection.Option) Option {
	return func(d *Database) {
		d.collectionOptions = append(d.collectionOptions, opts...)
	}
}

// Option configures database behavior through the functional options
// pattern.
type Option func(*Database)
