package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/citycodes"
	"github.com/sells-group/fare-cli/internal/fetch"
	"github.com/sells-group/fare-cli/internal/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch low fares, pair round trips and export a workbook",
	Long: "Queries the low-fare calendar for every destination in 30-day windows, " +
		"pairs outbound and return legs for round trips, and writes Flight_Prices_<date>.xlsx.",
	Example: `  fare-cli fetch --departure KUL --dest PEN --dest LGK --flight-type round-trip
  fare-cli fetch --request trip.yaml --token "$FARE_TOKEN"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		raw, err := buildRawRequest(cmd, defaultRawRequest())
		if err != nil {
			return err
		}
		req, warnings, err := model.ParseRequest(raw, time.Now())
		if err != nil {
			return err
		}
		for _, w := range warnings {
			zap.L().Warn("fetch: " + w)
		}

		env, err := initPipeline(ctx, "fetch")
		if err != nil {
			return err
		}
		defer env.Close()

		return runFetch(ctx, env, req, os.Stdout)
	},
}

func init() {
	addRequestFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

// addRequestFlags registers the request descriptor flags on cmd.
func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("request", "", "YAML request descriptor; flags override its fields")
	f.String("token", "", "API access token (default $FARE_TOKEN)")
	f.String("delay", "", "pause between calls in seconds (default fetch.delay_secs)")
	f.String("departure", "", "departure station code or \"CODE - City\" entry")
	f.StringSlice("dest", nil, "destination station code (repeatable)")
	f.Bool("all-cities", false, "use every city in the city list except the departure")
	f.String("flight-type", "", "one-way or round-trip (default one-way)")
	f.String("from", "", "first travel date dd/mm/yyyy (default today)")
	f.String("to", "", "last travel date dd/mm/yyyy (default today + 365 days)")
	f.String("min-days", "", "minimum trip length in days")
	f.String("max-days", "", "maximum trip length in days")
	f.String("sort", "", "price_asc, price_desc, trip_days or destination")
}

// buildRawRequest layers the request file and the explicitly set flags over
// base.
func buildRawRequest(cmd *cobra.Command, base model.RawRequest) (model.RawRequest, error) {
	f := cmd.Flags()

	raw := base
	if path, _ := f.GetString("request"); path != "" {
		fromFile, err := loadRequestFile(path)
		if err != nil {
			return raw, err
		}
		raw = mergeRawRequest(raw, fromFile)
	}

	var over model.RawRequest
	flagString := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	flagString("token", &over.Token)
	flagString("delay", &over.DelaySecs)
	flagString("departure", &over.Departure)
	flagString("flight-type", &over.FlightType)
	flagString("from", &over.FromDate)
	flagString("to", &over.ToDate)
	flagString("min-days", &over.MinTripDays)
	flagString("max-days", &over.MaxTripDays)
	flagString("sort", &over.Sort)
	if f.Changed("dest") {
		over.Destinations, _ = f.GetStringSlice("dest")
	}
	raw = mergeRawRequest(raw, over)

	if all, _ := f.GetBool("all-cities"); all {
		cities, err := citycodes.Load(cfg.Cities.File)
		if err != nil {
			return raw, err
		}
		raw.Destinations = cityDestinations(cities, raw.Departure)
	}
	return raw, nil
}

// cityDestinations lists every city code except the departure's.
func cityDestinations(cities []citycodes.City, departure string) []string {
	dep := citycodes.Code(departure)
	var dests []string
	for _, c := range cities {
		if c.Code != dep {
			dests = append(dests, c.Code)
		}
	}
	return dests
}

// runFetch executes one run and prints its summary to out.
func runFetch(ctx context.Context, env *pipelineEnv, req model.Request, out io.Writer) error {
	runID, err := createRun(ctx, env, req)
	if err != nil {
		return eris.Wrap(err, "fetch: create run")
	}

	zap.L().Info("fetch: run accepted",
		zap.String("run_id", runID),
		zap.Int("total_calls", fetch.TotalCalls(req)),
	)

	res, err := executeRun(ctx, env, req, runID)
	if err != nil {
		return eris.Wrap(err, "fetch")
	}

	formatRunSummary(out, res)
	if req.RoundTrip() {
		formatItineraries(out, res.Analysis.Itineraries, 20)
	}
	return nil
}

// formatRunSummary writes the call counts and output path of a run to w.
func formatRunSummary(out io.Writer, res *runOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	}
	_, _ = fmt.Fprintf(w, "Calls:\t%d\n", res.Stats.Calls)
	_, _ = fmt.Fprintf(w, "  Fetched:\t%d\n", res.Stats.Successes)
	_, _ = fmt.Fprintf(w, "  Skipped:\t%d\n", res.Stats.Skips)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", res.Stats.Failures)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", res.Stats.Records)
	if res.OutputPath != "" {
		_, _ = fmt.Fprintf(w, "Workbook:\t%s\n", res.OutputPath)
	} else {
		_, _ = fmt.Fprintln(w, "Workbook:\tnone (no flight data)")
	}
	_ = w.Flush()
}

// formatItineraries writes up to limit round trips to w. A limit of zero
// or less writes all of them.
func formatItineraries(out io.Writer, its []model.PairedItinerary, limit int) {
	if len(its) == 0 {
		_, _ = fmt.Fprintln(out, "No round trips found within the trip-day window.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DESTINATION\tOUTBOUND\tINBOUND\tOUT_PRICE\tIN_PRICE\tTOTAL\tDAYS")
	_, _ = fmt.Fprintln(w, "-----------\t--------\t-------\t---------\t--------\t-----\t----")

	shown := its
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, it := range shown {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			it.Destination,
			dateWithWeekend(it.OutboundDate, it.OutboundWeekend),
			dateWithWeekend(it.InboundDate, it.InboundWeekend),
			it.OutboundPrice.StringFixed(2),
			it.InboundPrice.StringFixed(2),
			it.TotalPrice.StringFixed(2),
			it.TripDays,
		)
	}
	_ = w.Flush()

	if len(shown) < len(its) {
		_, _ = fmt.Fprintf(out, "... and %d more\n", len(its)-len(shown))
	}
}

func dateWithWeekend(d time.Time, weekend bool) string {
	s := d.Format(model.DateLayout)
	if weekend {
		s += " (wknd)"
	}
	return s
}
