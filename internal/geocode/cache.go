package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"

	"github.com/joeblew999/plat-parking/internal/observability"
)

var bucketName = []byte("geocode")

// entry is a cached lookup. Misses are cached too so reruns do not hit the
// provider again for addresses it cannot resolve.
type entry struct {
	Found  bool   `json:"found"`
	Result Result `json:"result"`
}

// Store is a persistent query → result cache backed by bbolt.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the cache database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open geocode cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) get(query string) (entry, bool, error) {
	var e entry
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(query))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &e)
	})
	return e, ok, err
}

func (s *Store) put(query string, e entry) error {
	v, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(query), v)
	})
}

// Len returns the number of cached queries.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CachedGeocoder fronts a Geocoder with an in-memory LRU and a Store.
type CachedGeocoder struct {
	inner   Geocoder
	store   *Store
	mem     *lru.Cache[string, entry]
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner. store may be nil for a memory-only cache.
func NewCachedGeocoder(inner Geocoder, store *Store, memSize int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	mem, err := lru.New[string, entry](memSize)
	if err != nil {
		return nil, err
	}
	return &CachedGeocoder{inner: inner, store: store, mem: mem, metrics: metrics}, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (Result, bool, error) {
	if e, ok := c.mem.Get(query); ok {
		return c.hit(e)
	}
	if c.store != nil {
		e, ok, err := c.store.get(query)
		if err != nil {
			return Result{}, false, fmt.Errorf("read geocode cache: %w", err)
		}
		if ok {
			c.mem.Add(query, e)
			return c.hit(e)
		}
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	res, found, err := c.inner.Geocode(ctx, query)
	if err != nil {
		// errors are not cached so the next run retries them
		return res, found, err
	}
	e := entry{Found: found, Result: res}
	c.mem.Add(query, e)
	if c.store != nil {
		if err := c.store.put(query, e); err != nil {
			return res, found, fmt.Errorf("write geocode cache: %w", err)
		}
	}
	return res, found, nil
}

func (c *CachedGeocoder) hit(e entry) (Result, bool, error) {
	c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
	res := e.Result
	res.Cached = true
	return res, e.Found, nil
}
