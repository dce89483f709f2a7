// Package persistence contains the default [domain.Persistence] implementation.
//
// A database is stored as one snapshot per datafile. Saving replaces the
// whole datafile through a crash-safe write; loading recovers an interrupted
// write first and treats an empty datafile as an empty database.
package persistence

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dadi/api-filestore/adapter/deserializer"
	"github.com/dadi/api-filestore/adapter/serializer"
	"github.com/dadi/api-filestore/adapter/storage"
	"github.com/dadi/api-filestore/domain"
)

// Default permissions of created datafiles and directories.
const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// DatabaseVersion is written to every snapshot.
const DatabaseVersion = 1.5

// ErrDatafileName is returned when the datafile name cannot be used.
type ErrDatafileName struct {
	Name   string
	Reason string
}

// Error implements [error].
func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid datafile name %q: %s", e.Name, e.Reason)
}

// Persistence implements domain.Persistence.
type Persistence struct {
	inMemoryOnly bool
	filename     string
	fileMode     os.FileMode
	dirMode      os.FileMode
	serializer   domain.Serializer
	deserializer domain.Deserializer
	storage      domain.Storage
}

// NewPersistence returns a new implementation of domain.Persistence.
func NewPersistence(options ...Option) (domain.Persistence, error) {
	p := Persistence{
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, option := range options {
		option(&p)
	}
	if p.storage == nil {
		p.storage = storage.NewStorage()
	}
	if p.serializer == nil {
		p.serializer = serializer.NewSerializer()
	}
	if p.deserializer == nil {
		p.deserializer = deserializer.NewDeserializer()
	}

	if p.inMemoryOnly {
		return &p, nil
	}
	if p.filename == "" {
		return nil, ErrDatafileName{Name: p.filename, Reason: "a datafile is required unless in memory only"}
	}
	if strings.HasSuffix(p.filename, "~") {
		return nil, ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for crash-safe writes"}
	}

	return &p, nil
}

// LoadDatabase implements domain.Persistence.
func (p *Persistence) LoadDatabase(ctx context.Context) (*domain.Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	empty := &domain.Snapshot{Filename: p.filename, DatabaseVersion: DatabaseVersion}
	if p.inMemoryOnly {
		return empty, nil
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return nil, err
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, err
	}

	b, err := p.storage.ReadFile(p.filename)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return empty, nil
	}

	snap := new(domain.Snapshot)
	if err := p.deserializer.Deserialize(ctx, b, snap); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.ErrCorruptFile{Filename: p.filename, Err: err}
	}
	snap.Filename = p.filename
	return snap, nil
}

// PersistDatabase implements domain.Persistence.
func (p *Persistence) PersistDatabase(ctx context.Context, snap *domain.Snapshot) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	// In-memory only database
	if p.inMemoryOnly {
		return nil
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return err
	}

	toPersist := *snap
	toPersist.Filename = p.filename
	toPersist.DatabaseVersion = DatabaseVersion

	b, err := p.serializer.Serialize(ctx, &toPersist)
	if err != nil {
		return err
	}

	return p.storage.CrashSafeWriteFile(p.filename, b, p.dirMode, p.fileMode)
}
