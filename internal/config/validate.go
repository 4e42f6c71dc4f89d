package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fare-cli/internal/model"
)

// Validate checks the settings needed by a command mode: "fetch",
// "analyze" or "serve". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	checkAnalysis := func() {
		b := model.TripBounds{Min: c.Analysis.MinTripDays, Max: c.Analysis.MaxTripDays}
		if !b.Valid() {
			add("analysis trip days must satisfy 0 <= min <= max (got %d, %d)", b.Min, b.Max)
		}
		if _, err := model.ParseSortKey(c.Analysis.Sort); err != nil {
			add("analysis.sort %q is not a known sort key", c.Analysis.Sort)
		}
	}
	checkStore := func() {
		switch c.Store.Driver {
		case "none":
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				add("store.database_url is required for driver %s", c.Store.Driver)
			}
		default:
			add("store.driver must be sqlite, postgres or none (got %q)", c.Store.Driver)
		}
	}
	checkFetch := func() {
		if c.LowFare.BaseURL == "" {
			add("lowfare.base_url is required")
		}
		if c.LowFare.TimeoutSecs <= 0 {
			add("lowfare.timeout_secs must be > 0")
		}
		if c.LowFare.RatePerSec < 0 {
			add("lowfare.rate_per_sec must be >= 0")
		}
		if c.LowFare.MaxAttempts < 1 {
			add("lowfare.max_attempts must be >= 1")
		}
		if c.Fetch.DelaySecs < 0 {
			add("fetch.delay_secs must be >= 0")
		}
	}

	switch mode {
	case "fetch":
		checkFetch()
		checkAnalysis()
		checkStore()
	case "analyze":
		checkAnalysis()
		checkStore()
	case "serve":
		checkFetch()
		checkAnalysis()
		checkStore()
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
