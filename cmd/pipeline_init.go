package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/analysis"
	"github.com/sells-group/fare-cli/internal/config"
	"github.com/sells-group/fare-cli/internal/export"
	"github.com/sells-group/fare-cli/internal/fetch"
	"github.com/sells-group/fare-cli/internal/model"
	"github.com/sells-group/fare-cli/internal/resilience"
	"github.com/sells-group/fare-cli/internal/store"
	"github.com/sells-group/fare-cli/pkg/lowfare"
)

// pipelineEnv holds the collaborators needed by the fetch and serve commands.
type pipelineEnv struct {
	Store        store.Store // nil when run history is disabled
	Orchestrator *fetch.Orchestrator
	Exporter     *export.Exporter
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the run store and
// builds the fare client, orchestrator and exporter. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	legs := fetch.NewLegFetcher(newLowFareClient(cfg.LowFare))
	return &pipelineEnv{
		Store:        st,
		Orchestrator: fetch.NewOrchestrator(legs, fetch.WithProgress(logProgress)),
		Exporter:     export.New(cfg.Export.Dir),
	}, nil
}

// newLowFareClient builds the fare API client from config.
func newLowFareClient(c config.LowFareConfig) lowfare.Client {
	return lowfare.NewClient(
		lowfare.WithBaseURL(c.BaseURL),
		lowfare.WithHTTPClient(&http.Client{Timeout: time.Duration(c.TimeoutSecs) * time.Second}),
		lowfare.WithCurrency(c.Currency),
		lowfare.WithHeaders(c.Headers()),
		lowfare.WithRateLimit(c.RatePerSec),
		lowfare.WithRetry(resilience.RetryConfig{
			MaxAttempts:    c.MaxAttempts,
			InitialBackoff: time.Duration(c.InitialBackoffMS) * time.Millisecond,
			JitterFraction: 0.2,
		}),
	)
}

func logProgress(p fetch.Progress) {
	zap.L().Info("fetch: progress",
		zap.Int("done", p.Done),
		zap.Int("total", p.Total),
		zap.String("route", p.Window.Route().String()),
		zap.String("status", p.Status),
	)
}

// runOutcome summarises one fetch-analyze-export pass.
type runOutcome struct {
	RunID      string
	Stats      model.RunStats
	Analysis   analysis.Result
	OutputPath string
}

// createRun records a new run when history is enabled. The returned id is
// empty otherwise.
func createRun(ctx context.Context, env *pipelineEnv, req model.Request) (string, error) {
	if env.Store == nil {
		return "", nil
	}
	run, err := env.Store.CreateRun(ctx, req)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// executeRun fetches req, pairs the legs when it is a round trip, exports
// the workbook and, when runID is set, persists the records and the final
// run status. An empty result is a warning, not an error.
func executeRun(ctx context.Context, env *pipelineEnv, req model.Request, runID string) (*runOutcome, error) {
	out := &runOutcome{RunID: runID}

	var buf fetch.Buffer
	stats, runErr := env.Orchestrator.Run(ctx, req, &buf)
	out.Stats = stats
	records := buf.Records()

	if runErr == nil {
		if req.RoundTrip() {
			out.Analysis = analysis.Analyze(records, req.Trip, req.Sort)
			if !out.Analysis.Found() {
				zap.L().Warn("analysis: no round trips match the trip-day window",
					zap.Int("min_trip_days", req.Trip.Min),
					zap.Int("max_trip_days", req.Trip.Max),
				)
			}
		}

		path, err := env.Exporter.Export(records, out.Analysis.Itineraries)
		switch {
		case errors.Is(err, export.ErrNothingToExport):
		case err != nil:
			runErr = err
		default:
			out.OutputPath = path
		}
	}

	if env.Store != nil && runID != "" {
		persistRun(context.WithoutCancel(ctx), env.Store, runID, records, out, runErr)
	}
	return out, runErr
}

// persistRun stores the records and final status of a run. Failures are
// logged; the workbook is the primary artifact.
func persistRun(ctx context.Context, st store.Store, runID string, records []model.FlightRecord, out *runOutcome, runErr error) {
	log := zap.L().With(zap.String("run_id", runID))

	if _, err := st.SaveRecords(ctx, runID, records); err != nil {
		log.Error("store: failed to save records", zap.Error(err))
	}

	res := store.RunResult{
		Status:     model.RunStatusComplete,
		Stats:      out.Stats,
		OutputPath: out.OutputPath,
	}
	if runErr != nil {
		res.Status = model.RunStatusFailed
		res.Error = runErr.Error()
	}
	if err := st.FinishRun(ctx, runID, res); err != nil {
		log.Error("store: failed to finish run", zap.Error(err))
	}
}
