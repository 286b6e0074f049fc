package archive

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/buntdb"
	"github.com/tordrt/schemagraph/internal/codec"
	"github.com/tordrt/schemagraph/internal/pipeline"
	"github.com/tordrt/schemagraph/internal/schema"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheConfig configures a Cache
type CacheConfig struct {
	Logger logger.Logger
	// Path of the buntdb file, in memory when empty
	Path  string
	Group string
	// TTL expires archived entries, zero keeps them forever
	TTL time.Duration
}

type cacheEntry struct {
	Name     string `msgpack:"name"`
	Checksum uint64 `msgpack:"checksum"`
}

type cacheIndex struct {
	Tables []cacheEntry `msgpack:"tables"`
}

// Cache archives schemas in a buntdb store. The index of a group lives under
// schema:<group> and each table under schema:<group>:<table>.
type Cache struct {
	db     *buntdb.DB
	logger logger.Logger
	group  string
	ttl    time.Duration
	once   sync.Once
	reads  readTracker
}

// NewCache opens the cache store
func NewCache(config CacheConfig) (*Cache, error) {
	path := config.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache %s", path)
	}
	group := config.Group
	if group == "" {
		group = DefaultGroup
	}
	return &Cache{
		db:     db,
		logger: config.Logger.WithPrefix("[cache]"),
		group:  group,
		ttl:    config.TTL,
	}, nil
}

var (
	_ pipeline.Archiver = (*Cache)(nil)
	_ pipeline.Reader   = (*Cache)(nil)
)

// Key returns the index key of the cache's group
func (c *Cache) Key() string {
	return IndexKey(c.group)
}

// Close closes the underlying store
func (c *Cache) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
	})
	return err
}

// Archive replaces the archived schema of the group with the given tables.
// Tables the container fails to resolve are not archived.
func (c *Cache) Archive(ctx context.Context, tables schema.TableContainer) error {
	s := schema.Materialize(tables)
	if err := ctx.Err(); err != nil {
		return err
	}

	var index cacheIndex
	blobs := make(map[string]string, s.Len())
	for _, t := range s.Tables() {
		buf, err := codec.MarshalTable(t)
		if err != nil {
			return errors.Wrapf(err, "failed to encode table %s", t.Name)
		}
		index.Tables = append(index.Tables, cacheEntry{Name: t.Name, Checksum: xxhash.Sum64(buf)})
		blobs[t.Name] = string(buf)
	}
	indexBuf, err := msgpack.Marshal(&index)
	if err != nil {
		return errors.Wrap(err, "failed to encode index")
	}

	err = c.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if c.ttl > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: c.ttl}
		}
		previous, err := c.index(tx)
		if err != nil && !errors.Is(err, pipeline.ErrNotArchived) {
			return err
		}
		for _, entry := range previous.Tables {
			if _, ok := blobs[entry.Name]; ok {
				continue
			}
			if _, err := tx.Delete(TableKey(c.group, entry.Name)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		for _, entry := range index.Tables {
			if _, _, err := tx.Set(TableKey(c.group, entry.Name), blobs[entry.Name], opts); err != nil {
				return err
			}
		}
		_, _, err = tx.Set(c.Key(), string(indexBuf), opts)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to archive %s", c.Key())
	}
	c.logger.Debug("archived %d tables under %s", len(index.Tables), c.Key())
	return nil
}

func (c *Cache) index(tx *buntdb.Tx) (cacheIndex, error) {
	var index cacheIndex
	val, err := tx.Get(c.Key())
	if err != nil {
		if err == buntdb.ErrNotFound {
			return index, pipeline.ErrNotArchived
		}
		return index, err
	}
	if err := msgpack.Unmarshal([]byte(val), &index); err != nil {
		return index, errors.Wrapf(err, "failed to decode index %s", c.Key())
	}
	return index, nil
}

func (c *Cache) loadIndex() (cacheIndex, error) {
	var index cacheIndex
	err := c.db.View(func(tx *buntdb.Tx) error {
		var err error
		index, err = c.index(tx)
		return err
	})
	return index, err
}

// Read returns the archived schema of the group. Only the presence of the
// index is checked here; tables are decoded and verified on first access.
func (c *Cache) Read(ctx context.Context) (schema.TableContainer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := c.loadIndex(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", c.Key())
	}

	checksums := make(map[string]uint64)
	loadNames := func() ([]string, error) {
		index, err := c.loadIndex()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", c.Key())
		}
		names := make([]string, 0, len(index.Tables))
		for _, entry := range index.Tables {
			names = append(names, entry.Name)
			checksums[entry.Name] = entry.Checksum
		}
		return names, nil
	}
	loadTable := func(name string) (*schema.Table, error) {
		key := TableKey(c.group, name)
		var val string
		err := c.db.View(func(tx *buntdb.Tx) error {
			var err error
			val, err = tx.Get(key)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", key)
		}
		if sum := xxhash.Sum64String(val); sum != checksums[name] {
			return nil, errors.Newf("checksum mismatch for %s: %x != %x", key, sum, checksums[name])
		}
		c.logger.Trace("loaded %s", key)
		return codec.UnmarshalTable([]byte(val))
	}

	lazy := schema.NewLazy(loadNames, loadTable)
	c.reads.track(lazy)
	return lazy, nil
}

// Errors returns and clears the load failures of containers returned by Read
func (c *Cache) Errors() []error {
	return c.reads.drain()
}
