package courses

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// LatestKey names the discovery entry in Snapshot.Keys.
const LatestKey = "latest"

// Snapshot is one immutable view of the cache. Readers must not modify it.
type Snapshot struct {
	Index       *Index
	CurrentCode string
	// Current is the description for CurrentCode, or CurrentCode itself when
	// the index does not list it.
	Current     string
	Datasets    map[string]*Dataset
	RefreshedAt time.Time
}

func (s *Snapshot) Dataset(description string) (*Dataset, bool) {
	if s == nil {
		return nil, false
	}
	ds, ok := s.Datasets[description]
	return ds, ok
}

// Keys lists the cache keys: LatestKey followed by every loaded semester in index order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	keys := []string{LatestKey}
	for _, d := range s.Index.Descriptions() {
		if _, ok := s.Datasets[d]; ok {
			keys = append(keys, d)
		}
	}
	return keys
}

// Cache publishes whole snapshots through an atomic pointer so readers never
// lock. Writers are serialized and tagged with an epoch; Clear bumps the
// epoch so writes from a cycle that started before it are dropped.
type Cache struct {
	cur atomic.Pointer[Snapshot]

	mu    sync.Mutex
	epoch uint64
}

func NewCache() *Cache { return &Cache{} }

// Load returns the current snapshot, or nil before the first discovery.
func (c *Cache) Load() *Snapshot { return c.cur.Load() }

// Epoch returns a token for a refresh cycle's writes.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// PublishIndex installs a new index and current code. Datasets of semesters
// still in the index are carried over until replaced.
func (c *Cache) PublishIndex(epoch uint64, idx *Index, currentCode string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}

	next := &Snapshot{
		Index:       idx,
		CurrentCode: currentCode,
		Current:     idx.Describe(currentCode),
		Datasets:    make(map[string]*Dataset, idx.Len()),
		RefreshedAt: now,
	}
	if prev := c.cur.Load(); prev != nil {
		for d, ds := range prev.Datasets {
			if _, ok := idx.Code(d); ok {
				next.Datasets[d] = ds
			}
		}
	}
	c.cur.Store(next)
	return true
}

// PutDataset replaces one semester's dataset.
func (c *Cache) PutDataset(epoch uint64, description string, ds *Dataset) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.cur.Load()
	if epoch != c.epoch || prev == nil {
		return false
	}
	next := *prev
	next.Datasets = maps.Clone(prev.Datasets)
	next.Datasets[description] = ds
	c.cur.Store(&next)
	return true
}

// Clear drops everything and invalidates in-flight writers.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.cur.Store(nil)
}
