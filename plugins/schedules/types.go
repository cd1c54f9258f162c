package schedules

import (
	"fmt"
	"strings"
	"time"

	"pingu/internal/config"
	"pingu/pkg/courses"
)

// Config is the plugins.schedules.config block. Durations are Go duration strings.
type Config struct {
	Endpoint      string   `json:"endpoint,omitempty"`
	Years         []string `json:"years,omitempty"`
	RefreshEvery  string   `json:"refresh_every,omitempty"`
	FetchTimeout  string   `json:"fetch_timeout,omitempty"`
	PageThreshold int      `json:"page_threshold,omitempty"`
	PageDelay     string   `json:"page_delay,omitempty"`
	Cooldown      string   `json:"cooldown,omitempty"`
}

const (
	defaultRefreshEvery = 60 * time.Minute
	defaultCooldown     = 5 * time.Second
	minRefreshEvery     = time.Minute
)

type settings struct {
	endpoint      string
	years         []string
	refreshEvery  time.Duration
	fetchTimeout  time.Duration
	pageThreshold int
	pageDelay     time.Duration
	cooldown      time.Duration
}

func defaultSettings() settings {
	return settings{
		endpoint:      courses.DefaultEndpoint,
		years:         append([]string(nil), courses.DefaultYears...),
		refreshEvery:  defaultRefreshEvery,
		fetchTimeout:  courses.DefaultFetchTimeout,
		pageThreshold: courses.DefaultPageThreshold,
		pageDelay:     courses.DefaultPageDelay,
		cooldown:      defaultCooldown,
	}
}

func (c Config) resolve() (settings, error) {
	s := defaultSettings()
	if e := strings.TrimSpace(c.Endpoint); e != "" {
		s.endpoint = e
	}
	if len(c.Years) > 0 {
		s.years = s.years[:0]
		for _, y := range c.Years {
			y = strings.TrimSpace(y)
			if len(y) != 4 {
				return settings{}, fmt.Errorf("years: %q is not a four-digit year", y)
			}
			s.years = append(s.years, y)
		}
	}
	if c.PageThreshold < 0 {
		return settings{}, fmt.Errorf("page_threshold: must be >= 0")
	}
	if c.PageThreshold > 0 {
		s.pageThreshold = c.PageThreshold
	}

	var err error
	if s.refreshEvery, err = config.ParseDurationOrDefault("refresh_every", c.RefreshEvery, s.refreshEvery); err != nil {
		return settings{}, err
	}
	if s.refreshEvery < minRefreshEvery {
		return settings{}, fmt.Errorf("refresh_every: must be at least %s", minRefreshEvery)
	}
	if s.fetchTimeout, err = config.ParseDurationOrDefault("fetch_timeout", c.FetchTimeout, s.fetchTimeout); err != nil {
		return settings{}, err
	}
	if s.cooldown, err = config.ParseDurationOrDefault("cooldown", c.Cooldown, s.cooldown); err != nil {
		return settings{}, err
	}
	// "0s" is a valid page delay.
	if strings.TrimSpace(c.PageDelay) != "" {
		if s.pageDelay, err = config.ParseDurationField("page_delay", c.PageDelay); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}

// RefreshEvent is published as EventRefreshed after every cycle.
type RefreshEvent struct {
	Loaded int
	Failed int
	Took   time.Duration
	Err    string
}

const (
	EventRefreshed = "schedules.refreshed"
	EventCleared   = "schedules.cleared"
)
