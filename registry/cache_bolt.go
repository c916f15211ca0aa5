// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/DelevoXDG/scarb/core"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	cacheDBName   = "summaries.db"
	cacheLockName = "cache.lock"
)

// CouldNotLockCacheError is returned by NewBoltCache when another process
// holds the cache directory.
type CouldNotLockCacheError struct {
	Path string
	Err  error
}

func (e CouldNotLockCacheError) Error() string {
	if e.Err != nil {
		return errors.Wrapf(e.Err, "unable to lock cache directory %s", e.Path).Error()
	}
	return "cache directory " + e.Path + " is in use by another process"
}

// BoltCache remembers what an upstream registry answered, in a BoltDB file
// under a cache directory. Stored values are timestamped, and the epoch
// limits the age of values handed out; older ones are fetched again.
// Methods are safe for concurrent use with each other (excluding Close).
//
// Every package has a bucket, "pkg:<source>#<name>", holding a single
// sub-bucket "summaries:<timestamp>". Its "index" key stores every known
// version of the package as a TOML index document.
type BoltCache struct {
	upstream core.Registry
	db       *bolt.DB
	lock     *flock.Flock
	epoch    int64 // values older than this unix timestamp are ignored
	l        *logrus.Logger
}

// NewBoltCache opens the cache in dir, creating it if needed, in front of
// upstream. The directory is locked until Close.
func NewBoltCache(dir string, upstream core.Registry, epoch int64, l *logrus.Logger) (*BoltCache, error) {
	if fi, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModeDir|os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "failed to create cache directory: %s", dir)
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to check cache directory: %s", dir)
	} else if !fi.IsDir() {
		return nil, errors.Errorf("cache path is not directory: %s", dir)
	}

	lock := flock.New(filepath.Join(dir, cacheLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, CouldNotLockCacheError{Path: lock.Path(), Err: err}
	}
	if !locked {
		return nil, CouldNotLockCacheError{Path: lock.Path()}
	}

	db, err := bolt.Open(filepath.Join(dir, cacheDBName), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		lock.Unlock()
		return nil, errors.Wrapf(err, "failed to open cache database in %s", dir)
	}
	return &BoltCache{
		upstream: upstream,
		db:       db,
		lock:     lock,
		epoch:    epoch,
		l:        l,
	}, nil
}

// Close releases the database and the directory lock.
// Must not be called concurrently with any other methods.
func (c *BoltCache) Close() error {
	err := errors.Wrapf(c.db.Close(), "error closing Bolt database %q", c.db.String())
	if uerr := c.lock.Unlock(); uerr != nil && err == nil {
		err = errors.Wrap(uerr, "error unlocking cache directory")
	}
	return err
}

// Query answers dep from the cache if it holds a fresh answer for the
// package, and asks upstream for every version of it otherwise. Packages
// upstream does not know are not cached.
func (c *BoltCache) Query(ctx context.Context, dep core.ManifestDependency) ([]*core.Summary, error) {
	all := dep.WithVersionReq(core.AnyVersion())

	summaries, ok := c.get(all)
	if !ok {
		var err error
		summaries, err = c.upstream.Query(ctx, all)
		if err != nil {
			return nil, err
		}
		if len(summaries) > 0 {
			c.set(all, summaries)
		}
	}

	if c.l.Level >= logrus.DebugLevel {
		c.l.WithFields(logrus.Fields{
			"package": dep.Name,
			"source":  dep.Source,
			"hit":     ok,
		}).Debug("Summary cache lookup")
	}

	var out []*core.Summary
	for _, s := range summaries {
		if dep.MatchesSummary(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func cacheBucketName(dep core.ManifestDependency) string {
	return "pkg:" + dep.Source.String() + "#" + string(dep.Name)
}

func (c *BoltCache) set(dep core.ManifestDependency, summaries []*core.Summary) {
	err := c.updateBucket(cacheBucketName(dep), func(b *bolt.Bucket) error {
		if err := cachePrefixDelete(b, "summaries:"); err != nil {
			return err
		}
		sb, err := b.CreateBucket(cacheTimestampedKey("summaries:", time.Now()))
		if err != nil {
			return err
		}

		doc, err := MarshalIndex(summaries, TOML)
		if err != nil {
			return errors.Wrap(err, "failed to encode summaries")
		}
		return sb.Put([]byte("index"), doc)
	})
	if err != nil {
		c.l.Warn(errors.Wrapf(err, "failed to cache summaries of %s", dep.Name))
	}
}

func (c *BoltCache) get(dep core.ManifestDependency) (summaries []*core.Summary, ok bool) {
	err := c.viewBucket(cacheBucketName(dep), func(b *bolt.Bucket) error {
		sb := cacheFindLatestValid(b, "summaries:", c.epoch)
		if sb == nil {
			return nil
		}
		doc := sb.Get([]byte("index"))
		if doc == nil {
			return nil
		}

		var err error
		summaries, err = ReadIndex(bytes.NewReader(doc), TOML)
		if err != nil {
			return errors.Wrap(err, "failed to decode summaries")
		}
		ok = true
		return nil
	})
	if err != nil {
		c.l.Warn(errors.Wrapf(err, "failed to get cached summaries of %s", dep.Name))
		return nil, false
	}
	return summaries, ok
}

// viewBucket executes view with the named bucket, if it exists.
func (c *BoltCache) viewBucket(name string, view func(b *bolt.Bucket) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return view(b)
	})
}

// updateBucket executes update with the named bucket, creating it first if necessary.
func (c *BoltCache) updateBucket(name string, update func(b *bolt.Bucket) error) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return errors.Wrapf(err, "failed to create bucket: %s", name)
		}
		return update(b)
	})
}

// cacheTimestampedKey returns a prefixed key with a trailing timestamp.
func cacheTimestampedKey(pre string, t time.Time) []byte {
	b := make([]byte, len(pre)+8)
	copy(b, pre)
	binary.BigEndian.PutUint64(b[len(pre):], uint64(t.Unix()))
	return b
}

// cachePrefixDelete deletes every sub-bucket of b whose key starts with pre.
func cachePrefixDelete(b *bolt.Bucket, pre string) error {
	p := []byte(pre)
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(p); bytes.HasPrefix(k, p); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.DeleteBucket(k); err != nil {
			return errors.Wrapf(err, "failed to delete bucket: %s", k)
		}
	}
	return nil
}

// cacheFindLatestValid returns the newest sub-bucket of b with prefix pre,
// or nil if there is none or it is older than epoch.
func cacheFindLatestValid(b *bolt.Bucket, pre string, epoch int64) *bolt.Bucket {
	p := []byte(pre)
	var latest []byte
	c := b.Cursor()
	for k, _ := c.Seek(p); bytes.HasPrefix(k, p); k, _ = c.Next() {
		latest = k
	}
	if latest == nil {
		return nil
	}
	ts := bytes.TrimPrefix(latest, p)
	if len(ts) != 8 {
		return nil
	}
	if int64(binary.BigEndian.Uint64(ts)) < epoch {
		return nil
	}
	return b.Bucket(latest)
}
