//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fare-cli/internal/config"
	"github.com/sells-group/fare-cli/internal/export"
	"github.com/sells-group/fare-cli/internal/fetch"
	"github.com/sells-group/fare-cli/internal/model"
	"github.com/sells-group/fare-cli/internal/store"
)

var testNow = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

// stubLegs answers every window with the canned records for its direction.
type stubLegs struct {
	mu      sync.Mutex
	windows []model.QueryWindow
	records map[model.Direction][]model.FlightRecord
	block   chan struct{}
}

func (s *stubLegs) FetchLeg(ctx context.Context, w model.QueryWindow, _ string) fetch.Outcome {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return fetch.Failure{Err: ctx.Err()}
		}
	}
	s.mu.Lock()
	s.windows = append(s.windows, w)
	s.mu.Unlock()
	return fetch.Success{Records: s.records[w.Direction]}
}

func fare(from, to, date, price string, dir model.Direction) model.FlightRecord {
	return model.FlightRecord{
		DepartureStation: from,
		ArrivalStation:   to,
		DepartureDate:    date,
		Price:            decimal.RequireFromString(price),
		FormattedPrice:   "RM" + price,
		Direction:        dir,
		FetchDate:        "2030-05-01",
	}
}

// roundTripLegs yields one outbound KUL-PEN fare and one return three days later.
func roundTripLegs() *stubLegs {
	return &stubLegs{records: map[model.Direction][]model.FlightRecord{
		model.DirectionOutbound: {fare("KUL", "PEN", "01/06/2030", "100.00", model.DirectionOutbound)},
		model.DirectionReturn:   {fare("PEN", "KUL", "04/06/2030", "80.50", model.DirectionReturn)},
	}}
}

func roundTripRaw() model.RawRequest {
	return model.RawRequest{
		Token:        "tok",
		DelaySecs:    "0",
		Departure:    "KUL - Kuala Lumpur",
		Destinations: []string{"PEN"},
		FlightType:   "round-trip",
		FromDate:     "01/06/2030",
		ToDate:       "01/06/2030",
		MinTripDays:  "3",
		MaxTripDays:  "5",
	}
}

func parseTestRequest(t *testing.T, raw model.RawRequest) model.Request {
	t.Helper()
	req, _, err := model.ParseRequest(raw, testNow)
	require.NoError(t, err)
	return req
}

// withTestConfig installs a config pointing every file at temp dirs.
func withTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	dir := t.TempDir()

	c := &config.Config{}
	c.LowFare.BaseURL = "http://127.0.0.1:0"
	c.LowFare.TimeoutSecs = 5
	c.LowFare.MaxAttempts = 1
	c.Fetch.Token = "tok"
	c.Analysis = config.AnalysisConfig{MinTripDays: 3, MaxTripDays: 5, Sort: "price_asc"}
	c.Export.Dir = filepath.Join(dir, "out")
	c.Cities.File = filepath.Join(dir, "City_Codes_List.txt")
	c.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "fares.db")}
	c.Server.Port = 8080
	c.Log = config.LogConfig{Level: "info", Format: "json"}
	require.NoError(t, os.MkdirAll(c.Export.Dir, 0o755))

	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

// newTestEnv builds a pipeline around legs. withStore adds a migrated
// SQLite store in a temp dir.
func newTestEnv(t *testing.T, legs fetch.LegSource, withStore bool) *pipelineEnv {
	t.Helper()
	env := &pipelineEnv{
		Orchestrator: fetch.NewOrchestrator(legs),
		Exporter:     export.New(t.TempDir(), export.WithClock(func() time.Time { return testNow })),
	}
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "fares.db"))
		require.NoError(t, err)
		require.NoError(t, st.Migrate(context.Background()))
		env.Store = st
	}
	t.Cleanup(env.Close)
	return env
}
