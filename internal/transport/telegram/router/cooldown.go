package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type cooldownKey struct {
	route string
	user  int64
}

type cooldownEntry struct {
	lim  *rate.Limiter
	last time.Time
}

// Cooldowns tracks one token bucket per (route, user) pair.
// A bucket holds a single token refilled every period, so a user may run
// the route once per period.
type Cooldowns struct {
	mu      sync.Mutex
	entries map[cooldownKey]*cooldownEntry
	now     func() time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{entries: map[cooldownKey]*cooldownEntry{}, now: time.Now}
}

// Reserve takes the user's token for route and returns 0, or returns how long
// the user must wait, leaving the bucket untouched.
func (c *Cooldowns) Reserve(route string, user int64, every time.Duration) time.Duration {
	now := c.now()
	k := cooldownKey{route: route, user: user}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[k]
	if e == nil || e.lim.Limit() != rate.Every(every) {
		e = &cooldownEntry{lim: rate.NewLimiter(rate.Every(every), 1)}
		c.entries[k] = e
	}
	r := e.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d
	}
	e.last = now
	return 0
}

// Prune drops buckets idle for longer than idle. Returns the number removed.
func (c *Cooldowns) Prune(idle time.Duration) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.last) > idle {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
