// Package database contains the default [domain.Database] implementation.
//
// A database owns one datafile for as long as it is open. Its collections
// share a single executor, so every operation, autosave and close is
// serialized. Changes are flushed to the datafile by [Database.Save], by the
// autosave loop when the database is dirty, and on [Database.Close].
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dadi/api-filestore/adapter/collection"
	"github.com/dadi/api-filestore/adapter/persistence"
	"github.com/dadi/api-filestore/adapter/serializer"
	"github.com/dadi/api-filestore/adapter/storage"
	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/pkg/ctxsync"
)

// DefaultAutosaveInterval is the autosave period used when none is given.
const DefaultAutosaveInterval = 4 * time.Second

// Database implements [domain.Database].
type Database struct {
	name              string
	filename          string
	inMemoryOnly      bool
	autosave          bool
	autosaveInterval  time.Duration
	serializationMode serializer.Mode
	fileMode          os.FileMode
	dirMode           os.FileMode
	logger            *slog.Logger
	storage           domain.Storage
	persistence       domain.Persistence
	collectionOptions []collection.Option

	executor    *ctxsync.Mutex
	collections map[string]*collection.Collection
	names       []string
	dirty       bool
	saveErr     error
	unlocker    domain.Unlocker
	stop        context.CancelFunc
	stopped     *ctxsync.Latch
	closed      bool
}

// Open opens the database stored in the configured datafile, creating the
// datafile if it does not exist yet. The datafile stays locked until the
// database is closed.
func Open(ctx context.Context, options ...Option) (domain.Database, error) {
	d := &Database{
		autosave:          true,
		autosaveInterval:  DefaultAutosaveInterval,
		serializationMode: serializer.ModeNormal,
		fileMode:          persistence.DefaultFileMode,
		dirMode:           persistence.DefaultDirMode,
		executor:          ctxsync.NewMutex(),
		collections:       make(map[string]*collection.Collection),
		stopped:           ctxsync.NewLatch(),
	}
	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.storage == nil {
		d.storage = storage.NewStorage()
	}
	d.inMemoryOnly = d.inMemoryOnly || d.filename == ""
	if d.name == "" {
		d.name = strings.TrimSuffix(filepath.Base(d.filename), filepath.Ext(d.filename))
	}
	if d.persistence == nil {
		p, err := persistence.NewPersistence(
			persistence.WithFilename(d.filename),
			persistence.WithInMemoryOnly(d.inMemoryOnly),
			persistence.WithFileMode(d.fileMode),
			persistence.WithDirMode(d.dirMode),
			persistence.WithStorage(d.storage),
			persistence.WithSerializer(serializer.NewSerializer(serializer.WithMode(d.serializationMode))),
		)
		if err != nil {
			return nil, err
		}
		d.persistence = p
	}

	if err := d.load(ctx); err != nil {
		return nil, err
	}

	if d.autosave && !d.inMemoryOnly && d.autosaveInterval > 0 {
		var loopCtx context.Context
		loopCtx, d.stop = context.WithCancel(context.WithoutCancel(ctx))
		go d.autosaveLoop(loopCtx)
	} else {
		d.stopped.Open()
	}
	return d, nil
}

func (d *Database) load(ctx context.Context) error {
	if d.inMemoryOnly {
		snap, err := d.persistence.LoadDatabase(ctx)
		if err != nil {
			return err
		}
		return d.restore(ctx, snap)
	}

	if err := d.storage.EnsureParentDirectoryExists(d.filename, d.dirMode); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	unlocker, err := d.storage.Lock(ctx, d.filename)
	if err != nil {
		return err
	}

	existed, err := d.storage.Exists(d.filename)
	if err == nil {
		err = d.restoreFromPersistence(ctx)
	}
	if err == nil && !existed {
		err = d.persistence.PersistDatabase(ctx, d.snapshot())
	}
	if err != nil {
		return errors.Join(err, unlocker.Unlock())
	}

	d.unlocker = unlocker
	d.logger.Debug("database opened", "database", d.name, "file", d.filename, "created", !existed)
	return nil
}

func (d *Database) restoreFromPersistence(ctx context.Context) error {
	snap, err := d.persistence.LoadDatabase(ctx)
	if err != nil {
		return err
	}
	return d.restore(ctx, snap)
}

func (d *Database) restore(ctx context.Context, snap *domain.Snapshot) error {
	for _, collSnap := range snap.Collections {
		coll := d.newCollection(collSnap.Name)
		if err := coll.Restore(ctx, collSnap); err != nil {
			return err
		}
		d.collections[collSnap.Name] = coll
		d.names = append(d.names, collSnap.Name)
	}
	return nil
}

func (d *Database) newCollection(name string) *collection.Collection {
	opts := append([]collection.Option{
		collection.WithExecutor(d.executor),
		collection.WithOnChange(d.markDirty),
	}, d.collectionOptions...)
	return collection.NewCollection(name, opts...)
}

func (d *Database) markDirty() {
	d.dirty = true
}

func (d *Database) snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Filename:    d.filename,
		Collections: make([]domain.CollectionSnapshot, 0, len(d.names)),
	}
	for _, name := range d.names {
		snap.Collections = append(snap.Collections, d.collections[name].Snapshot())
	}
	return snap
}

// Name implements [domain.Database].
func (d *Database) Name() string {
	return d.name
}

// Filename implements [domain.Database].
func (d *Database) Filename() string {
	return d.filename
}

// GetCollection implements [domain.Database].
func (d *Database) GetCollection(name string) (domain.Collection, bool) {
	d.executor.Lock()
	defer d.executor.Unlock()
	coll, ok := d.collections[name]
	if !ok {
		return nil, false
	}
	return coll, true
}

// AddCollection implements [domain.Database].
func (d *Database) AddCollection(ctx context.Context, name string) (domain.Collection, error) {
	if name == "" {
		return nil, domain.ErrNoCollection
	}
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.Unlock()

	if d.closed {
		return nil, domain.ErrClosed
	}
	if coll, ok := d.collections[name]; ok {
		return coll, nil
	}
	coll := d.newCollection(name)
	d.collections[name] = coll
	d.names = append(d.names, name)
	d.dirty = true
	d.logger.Debug("collection created", "database", d.name, "collection", name)
	return coll, nil
}

// Collections implements [domain.Database].
func (d *Database) Collections() []domain.Collection {
	d.executor.Lock()
	defer d.executor.Unlock()
	res := make([]domain.Collection, len(d.names))
	for n, name := range d.names {
		res[n] = d.collections[name]
	}
	return res
}

// Save implements [domain.Database]. A pending autosave error is returned
// together with the result of this save.
func (d *Database) Save(ctx context.Context) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()
	if d.closed {
		return domain.ErrClosed
	}
	return d.save(ctx)
}

func (d *Database) save(ctx context.Context) error {
	pending := d.saveErr
	d.saveErr = nil
	if err := d.persistence.PersistDatabase(ctx, d.snapshot()); err != nil {
		return errors.Join(pending, fmt.Errorf("saving database %q: %w", d.name, err))
	}
	d.dirty = false
	return pending
}

func (d *Database) autosaveLoop(ctx context.Context) {
	defer d.stopped.Open()

	ticker := time.NewTicker(d.autosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := d.executor.LockWithContext(ctx); err != nil {
			return
		}
		if d.dirty {
			if err := d.persistence.PersistDatabase(context.WithoutCancel(ctx), d.snapshot()); err != nil {
				d.saveErr = err
				d.logger.Error("autosave failed", "database", d.name, "file", d.filename, "error", err)
			} else {
				d.dirty = false
			}
		}
		d.executor.Unlock()
	}
}

// Close implements [domain.Database].
func (d *Database) Close(ctx context.Context) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	if d.closed {
		d.executor.Unlock()
		return domain.ErrClosed
	}
	d.closed = true
	d.executor.Unlock()

	if d.stop != nil {
		d.stop()
	}
	<-d.stopped.Done()

	// flushing must not be abandoned halfway
	ctx = context.WithoutCancel(ctx)
	d.executor.Lock()
	defer d.executor.Unlock()

	var err error
	if !d.inMemoryOnly {
		err = d.save(ctx)
	}
	if d.unlocker != nil {
		err = errors.Join(err, d.unlocker.Unlock())
		d.unlocker = nil
	}
	d.logger.Debug("database closed", "database", d.name, "file", d.filename)
	return err
}

// NewFactory returns a [domain.DatabaseFactory] opening databases with the
// given options.
func NewFactory(options ...Option) domain.DatabaseFactory {
	return func(ctx context.Context, name, filename string) (domain.Database, error) {
		opts := append(options[:len(options):len(options)], WithName(name), WithFilename(filename))
		return Open(ctx, opts...)
	}
}
