package courses

import (
	"context"
	"errors"
	"sync"
	"time"

	logx "pingu/pkg/logx"
)

// Fetcher is the feed surface the Refresher needs; *Client implements it.
type Fetcher interface {
	FetchDiscovery(ctx context.Context) (*Discovery, error)
	FetchSemester(ctx context.Context, code string) (*Dataset, error)
}

type CycleResult struct {
	Started   time.Time
	Took      time.Duration
	Semesters int
	Loaded    []string
	Failed    []string
}

// Refresher runs refresh cycles into a Cache. Only one cycle runs at a time.
type Refresher struct {
	cache *Cache
	log   logx.Logger
	now   func() time.Time

	cycleMu sync.Mutex

	mu      sync.Mutex
	fetcher Fetcher
	years   []string
	last    *CycleResult
}

func NewRefresher(cache *Cache, fetcher Fetcher, years []string, log logx.Logger) *Refresher {
	r := &Refresher{cache: cache, log: log, now: time.Now}
	r.SetSource(fetcher, years)
	return r
}

// SetSource swaps the fetcher and year whitelist for the next cycle.
func (r *Refresher) SetSource(fetcher Fetcher, years []string) {
	if len(years) == 0 {
		years = DefaultYears
	}
	r.mu.Lock()
	r.fetcher = fetcher
	r.years = append([]string(nil), years...)
	r.mu.Unlock()
}

// Last returns the most recent completed cycle, if any.
func (r *Refresher) Last() (CycleResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return CycleResult{}, false
	}
	return *r.last, true
}

// Cycle performs one refresh. A discovery failure returns an error and leaves
// the cache as it was. A semester failure is logged, recorded in Failed, and
// the remaining semesters are still fetched.
func (r *Refresher) Cycle(ctx context.Context) (CycleResult, error) {
	if !r.cycleMu.TryLock() {
		return CycleResult{}, ErrCycleInProgress
	}
	defer r.cycleMu.Unlock()

	r.mu.Lock()
	fetcher, years := r.fetcher, r.years
	r.mu.Unlock()

	res := CycleResult{Started: r.now()}
	epoch := r.cache.Epoch()
	r.log.Info("course schedule refresh started", logx.Strings("years", years))

	disc, err := fetcher.FetchDiscovery(ctx)
	if err != nil {
		return res, err
	}
	idx, err := BuildIndex(disc, years)
	if err != nil {
		return res, err
	}
	if !r.cache.PublishIndex(epoch, idx, disc.CurrentCode, res.Started) {
		return res, context.Canceled
	}
	res.Semesters = idx.Len()
	r.log.Info("semester codes loaded", logx.Int("semesters", idx.Len()), logx.String("current", idx.Describe(disc.CurrentCode)))

	for _, desc := range idx.Descriptions() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		code, _ := idx.Code(desc)
		ds, err := fetcher.FetchSemester(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed = append(res.Failed, desc)
			r.log.Warn("semester fetch failed", logx.String("semester", desc), logx.String("code", code), logx.Err(err))
			continue
		}
		if !r.cache.PutDataset(epoch, desc, ds) {
			return res, context.Canceled
		}
		res.Loaded = append(res.Loaded, desc)
		r.log.Debug("semester loaded", logx.String("semester", desc), logx.Int("subjects", len(ds.Subjects)))
	}

	res.Took = r.now().Sub(res.Started)
	r.mu.Lock()
	last := res
	r.last = &last
	r.mu.Unlock()

	r.log.Info("course schedule refresh finished",
		logx.Int("loaded", len(res.Loaded)),
		logx.Int("failed", len(res.Failed)),
		logx.Duration("took", res.Took),
	)
	return res, nil
}

// Reset clears the cache and the last cycle record. An in-flight cycle's
// remaining writes are discarded.
func (r *Refresher) Reset() {
	r.cache.Clear()
	r.mu.Lock()
	r.last = nil
	r.mu.Unlock()
	r.log.Info("cached course data cleared")
}

// IsCanceled reports whether err ended a cycle because of Reset or a stop.
func IsCanceled(err error) bool { return errors.Is(err, context.Canceled) }
