package persistence

import (
	"os"

	"github.com/dadi/api-filestore/domain"
)

// WithFilename sets the database filename for persistence.
func WithFilename(f string) Option {
	return func(po *Persistence) {
		po.filename = f
	}
}

// WithInMemoryOnly enables in-memory only mode without file
// persistence.
func WithInMemoryOnly(i bool) Option {
	return func(po *Persistence) {
		po.inMemoryOnly = i
	}
}

// WithFileMode sets the file permissions for database files.
func WithFileMode(f os.FileMode) Option {
	return func(po *Persistence) {
		po.fileMode = f
	}
}

// WithDirMode sets the directory permissions for database
// directories.
func WithDirMode(d os.FileMode) Option {
	return func(po *Persistence) {
		po.dirMode = d
	}
}

// WithSerializer sets the serializer for converting snapshots to
// bytes.
func WithSerializer(s domain.Serializer) Option {
	return func(po *Persistence) {
		po.serializer = s
	}
}

// WithDeserializer sets the deserializer for converting bytes to
// snapshots.
func WithDeserializer(d domain.Deserializer) Option {
	return func(po *Persistence) {
		po.deserializer = d
	}
}

// WithStorage sets the storage implementation for file operations.
func WithStorage(s domain.Storage) Option {
	return func(po *Persistence) {
		po.storage = s
	}
}

// Option configures persistence behavior through the functional
// options pattern.
type Option func(*Persistence)
