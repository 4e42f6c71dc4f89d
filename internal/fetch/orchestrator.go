// Package fetch drives the low-fare API across destinations, date windows
// and directions, one call at a time.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/model"
	"github.com/sells-group/fare-cli/internal/window"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = eris.New("fetch: a run is already in progress")

// Progress is reported after every call, whatever its outcome.
type Progress struct {
	Done   int
	Total  int
	Window model.QueryWindow
	Status string
}

// ProgressFunc receives progress updates on the run's goroutine.
type ProgressFunc func(Progress)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithSleep replaces the inter-request pause (for testing).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
	}
}

// Orchestrator runs fetches sequentially. At most one run is active at a time.
type Orchestrator struct {
	legs     LegSource
	progress ProgressFunc
	sleep    func(ctx context.Context, d time.Duration) error
	mu       sync.Mutex
}

// NewOrchestrator creates an Orchestrator that issues calls through legs.
func NewOrchestrator(legs LegSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		legs:  legs,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TotalCalls returns the number of calls Run issues for req.
func TotalCalls(req model.Request) int {
	return len(req.Destinations) * window.Count(req.Range.Start, req.Range.End) * len(req.FlightType.Directions())
}

// Run fetches every destination, window and direction of req into buf,
// replacing its previous contents. Per-call failures are logged and never
// abort the run; a run where every call fails returns an empty buffer and no
// error. Cancellation is observed between calls and during the pause, in
// which case the records gathered so far stay in buf.
func (o *Orchestrator) Run(ctx context.Context, req model.Request, buf *Buffer) (model.RunStats, error) {
	if !o.mu.TryLock() {
		return model.RunStats{}, ErrRunInProgress
	}
	defer o.mu.Unlock()

	buf.Reset()

	var stats model.RunStats
	total := TotalCalls(req)
	dirs := req.FlightType.Directions()
	starts := window.Starts(req.Range.Start, req.Range.End)

	zap.L().Info("fetch: starting run",
		zap.String("departure", req.Departure),
		zap.Strings("destinations", req.Destinations),
		zap.String("flight_type", string(req.FlightType)),
		zap.Int("windows", len(starts)),
		zap.Int("total_calls", total),
	)

	for _, dest := range req.Destinations {
		for _, start := range starts {
			for _, dir := range dirs {
				if err := ctx.Err(); err != nil {
					stats.Records = buf.Len()
					return stats, eris.Wrap(err, "fetch: run cancelled")
				}

				w := legWindow(req.Departure, dest, dir, start)
				status := o.call(ctx, w, req.Token, buf, &stats)

				if o.progress != nil {
					o.progress(Progress{Done: stats.Calls, Total: total, Window: w, Status: status})
				}

				if stats.Calls < total && req.Delay > 0 {
					if err := o.sleep(ctx, req.Delay); err != nil {
						stats.Records = buf.Len()
						return stats, eris.Wrap(err, "fetch: run cancelled")
					}
				}
			}
		}
	}

	stats.Records = buf.Len()
	zap.L().Info("fetch: run complete",
		zap.Int("calls", stats.Calls),
		zap.Int("successes", stats.Successes),
		zap.Int("skips", stats.Skips),
		zap.Int("failures", stats.Failures),
		zap.Int("records", stats.Records),
	)
	return stats, nil
}

// call issues one leg query and folds its outcome into buf and stats.
// It returns a human-readable status line.
func (o *Orchestrator) call(ctx context.Context, w model.QueryWindow, token string, buf *Buffer, stats *model.RunStats) string {
	date := w.Start.Format(model.DateLayout)
	route := w.Route().String()
	log := zap.L().With(
		zap.String("direction", string(w.Direction)),
		zap.String("route", route),
		zap.String("window_start", date),
	)
	log.Debug("fetch: querying window")

	stats.Calls++
	switch out := o.legs.FetchLeg(ctx, w, token).(type) {
	case Success:
		stats.Successes++
		buf.Append(out.Records...)
		log.Info("fetch: window fetched", zap.Int("records", len(out.Records)))
		return fmt.Sprintf("Fetched %s %s for %s", w.Direction, route, date)
	case Skip:
		stats.Skips++
		log.Info("fetch: skipping window", zap.String("reason", out.Reason))
		return fmt.Sprintf("Skipped %s %s for %s: %s", w.Direction, route, date, out.Reason)
	case Failure:
		stats.Failures++
		log.Warn("fetch: window failed", zap.Error(out.Err))
		return fmt.Sprintf("Error (%s) %s for %s: %v", w.Direction, route, date, out.Err)
	default:
		stats.Failures++
		log.Error("fetch: unknown outcome", zap.String("type", fmt.Sprintf("%T", out)))
		return fmt.Sprintf("Error (%s) %s for %s", w.Direction, route, date)
	}
}

// legWindow builds the window for one direction: outbound flies
// departure to destination, return flies it back on the same start date.
func legWindow(departure, dest string, dir model.Direction, start time.Time) model.QueryWindow {
	w := model.QueryWindow{
		Origin:      departure,
		Destination: dest,
		Start:       start,
		Days:        window.Size,
		Direction:   dir,
	}
	if dir == model.DirectionReturn {
		w.Origin, w.Destination = dest, departure
	}
	return w
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
