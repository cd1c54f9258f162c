package courses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	logx "pingu/pkg/logx"
)

func TestRefreshCycleLoadsSemesters(t *testing.T) {
	t.Parallel()
	fs := newFeedServer(t, standardFeed())
	cache := NewCache()
	r := NewRefresher(cache, NewClient(fs.endpoint(), time.Second), nil, logx.Nop())

	res, err := r.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if res.Semesters != 2 || len(res.Loaded) != 2 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if fs.hitCount("201890") != 0 {
		t.Fatal("non-whitelisted semester was fetched")
	}

	snap := cache.Load()
	if snap.Current != "2020 Fall" || snap.CurrentCode != "202090" {
		t.Fatalf("current = %q (%q)", snap.Current, snap.CurrentCode)
	}
	keys := snap.Keys()
	if len(keys) != 3 || keys[0] != LatestKey {
		t.Fatalf("keys = %v", keys)
	}
	if last, ok := r.Last(); !ok || len(last.Loaded) != 2 {
		t.Fatalf("Last = %+v, %v", last, ok)
	}
}

func TestRefreshDiscoveryFailureKeepsCache(t *testing.T) {
	t.Parallel()
	fs := newFeedServer(t, standardFeed())
	cache := NewCache()
	r := NewRefresher(cache, NewClient(fs.endpoint(), time.Second), nil, logx.Nop())
	if _, err := r.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := cache.Load()

	fs.setStatus("", http.StatusInternalServerError)
	_, err := r.Cycle(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
	if cache.Load() != before {
		t.Fatal("cache changed after discovery failure")
	}
}

func TestRefreshSemesterFailureIsolated(t *testing.T) {
	t.Parallel()
	fs := newFeedServer(t, standardFeed())
	cache := NewCache()
	r := NewRefresher(cache, NewClient(fs.endpoint(), time.Second), nil, logx.Nop())
	if _, err := r.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Fall fails on the second cycle; its previous dataset stays and Spring still loads.
	fs.setStatus("202090", http.StatusBadGateway)
	res, err := r.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "2020 Fall" || len(res.Loaded) != 1 {
		t.Fatalf("result = %+v", res)
	}
	snap := cache.Load()
	if _, ok := snap.Dataset("2020 Fall"); !ok {
		t.Fatal("previous Fall dataset dropped")
	}
	if _, ok := snap.Dataset("2020 Spring"); !ok {
		t.Fatal("Spring not loaded")
	}
}

func TestRefreshFirstCycleSemesterFailure(t *testing.T) {
	t.Parallel()
	fs := newFeedServer(t, standardFeed())
	fs.setStatus("202090", http.StatusNotFound)
	cache := NewCache()
	r := NewRefresher(cache, NewClient(fs.endpoint(), time.Second), nil, logx.Nop())

	if _, err := r.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := NewResolver(cache).Resolve(Query{Mode: "full", Course: "cs100"})
	if !errors.Is(err, ErrSemesterDataUnavailable) {
		t.Fatalf("want ErrSemesterDataUnavailable, got %v", err)
	}
}

// gatedFetcher blocks FetchSemester until release is closed.
type gatedFetcher struct {
	disc    *Discovery
	ds      *Dataset
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedFetcher) FetchDiscovery(context.Context) (*Discovery, error) { return g.disc, nil }

func (g *gatedFetcher) FetchSemester(ctx context.Context, code string) (*Dataset, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.ds, nil
}

func newGatedFetcher(t *testing.T) *gatedFetcher {
	d, err := ParseDiscovery([]byte(discoveryJSON))
	if err != nil {
		t.Fatal(err)
	}
	return &gatedFetcher{disc: d, ds: mustDataset(t, fallJSON), entered: make(chan struct{}), release: make(chan struct{})}
}

func TestRefreshResetMidCycle(t *testing.T) {
	t.Parallel()
	g := newGatedFetcher(t)
	cache := NewCache()
	r := NewRefresher(cache, g, nil, logx.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := r.Cycle(context.Background())
		done <- err
	}()
	<-g.entered
	r.Reset()
	close(g.release)

	if err := <-done; !IsCanceled(err) {
		t.Fatalf("want cancellation, got %v", err)
	}
	if cache.Load() != nil {
		t.Fatal("cache not empty after Reset")
	}
	if _, ok := r.Last(); ok {
		t.Fatal("Last should be cleared")
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	t.Parallel()
	g := newGatedFetcher(t)
	r := NewRefresher(NewCache(), g, nil, logx.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := r.Cycle(context.Background())
		done <- err
	}()
	<-g.entered
	if _, err := r.Cycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("want ErrCycleInProgress, got %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
}

func TestCacheCarryForwardDropsRemovedSemesters(t *testing.T) {
	t.Parallel()
	c := NewCache()
	idxA, _ := BuildIndex(&Discovery{Semesters: []SemesterDescriptor{{"2020 Fall", "1"}, {"2020 Spring", "2"}}}, DefaultYears)
	idxB, _ := BuildIndex(&Discovery{Semesters: []SemesterDescriptor{{"2020 Fall", "1"}}}, DefaultYears)

	e := c.Epoch()
	c.PublishIndex(e, idxA, "1", time.Now())
	c.PutDataset(e, "2020 Fall", &Dataset{})
	c.PutDataset(e, "2020 Spring", &Dataset{})
	old := c.Load()

	c.PublishIndex(e, idxB, "1", time.Now())
	snap := c.Load()
	if _, ok := snap.Dataset("2020 Fall"); !ok {
		t.Fatal("Fall not carried forward")
	}
	if _, ok := snap.Dataset("2020 Spring"); ok {
		t.Fatal("Spring should be dropped")
	}
	if _, ok := old.Dataset("2020 Spring"); !ok {
		t.Fatal("published snapshot was mutated")
	}

	c.Clear()
	if c.PutDataset(e, "2020 Fall", &Dataset{}) || c.PublishIndex(e, idxA, "1", time.Now()) {
		t.Fatal("stale epoch write accepted")
	}
}

// Readers running alongside refresh cycles and a reset must always see a
// whole snapshot: a semester is either fully loaded or absent.
func TestResolveDuringRefresh(t *testing.T) {
	t.Parallel()
	fs := newFeedServer(t, standardFeed())
	cache := NewCache()
	r := NewRefresher(cache, NewClient(fs.endpoint(), time.Second), nil, logx.Nop())
	res := NewResolver(cache)

	stop := make(chan struct{})
	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				q := Query{Mode: "full", Course: "CS114"}
				want := 2
				if i%2 == 1 {
					q = Query{Mode: "compact", Course: "cs100", Semester: "2020 spring"}
					want = 1
				}
				got, err := res.Resolve(q)
				switch {
				case errors.Is(err, ErrCacheEmpty), errors.Is(err, ErrSemesterDataUnavailable):
					continue
				case err != nil:
					errs <- err
					return
				case len(got.Sections) != want:
					errs <- fmt.Errorf("%s: %d sections, want %d", q.Course, len(got.Sections), want)
					return
				}
				if snap := cache.Load(); snap != nil {
					for _, k := range snap.Keys()[1:] {
						if ds, ok := snap.Dataset(k); !ok || ds == nil {
							errs <- fmt.Errorf("key %q without dataset", k)
							return
						}
					}
				}
			}
		}()
	}

	for i := range 20 {
		if _, err := r.Cycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if i == 10 {
			r.Reset()
		}
	}
	close(stop)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if _, err := res.Resolve(Query{Mode: "full", Course: "CS114"}); err != nil {
		t.Fatalf("after refresh: %v", err)
	}
}
