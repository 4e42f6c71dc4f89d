// Package store persists fetch runs and their flight records.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fare-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Departure string          `json:"departure,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// RunResult is the final state written when a run ends.
type RunResult struct {
	Status     model.RunStatus
	Stats      model.RunStats
	OutputPath string
	Error      string
}

// Store defines the persistence interface for fetch runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.Request) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, result RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Records
	SaveRecords(ctx context.Context, runID string, records []model.FlightRecord) (int64, error)
	ListRecords(ctx context.Context, runID string) ([]model.FlightRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// recordColumns is the column order of fare_records, shared by both drivers.
var recordColumns = []string{
	"run_id", "seq", "departure_station", "arrival_station", "departure_date",
	"price", "formatted_price", "short_price", "airline_profile",
	"flight_number", "direction", "fetch_date",
}
