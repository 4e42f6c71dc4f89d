package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/analysis"
	"github.com/sells-group/fare-cli/internal/export"
	"github.com/sells-group/fare-cli/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Re-pair stored or exported fares into round trips",
	Long: "Loads the records of a stored run (--run) or an exported workbook (--input) " +
		"and pairs them again with new trip-day bounds or sort order.",
	Example: `  fare-cli analyze --run 3f2c9a51 --min-days 2 --max-days 7
  fare-cli analyze --input Flight_Prices_20240520.xlsx --sort trip_days --export`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		opts, err := analyzeOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runAnalyze(ctx, opts, os.Stdout)
	},
}

// analyzeOptions selects the records to analyze and how to pair them.
type analyzeOptions struct {
	RunID   string
	Input   string
	MinDays string
	MaxDays string
	Sort    string
	Export  bool
	Limit   int
}

func init() {
	f := analyzeCmd.Flags()
	f.String("run", "", "stored run id")
	f.String("input", "", "exported Flight_Prices workbook")
	f.String("min-days", "", "minimum trip length in days (default from the run or config)")
	f.String("max-days", "", "maximum trip length in days (default from the run or config)")
	f.String("sort", "", "price_asc, price_desc, trip_days or destination")
	f.Bool("export", false, "write a new workbook with the re-analyzed round trips")
	f.Int("limit", 50, "max number of round trips to display (0 for all)")
	analyzeCmd.MarkFlagsMutuallyExclusive("run", "input")
	analyzeCmd.MarkFlagsOneRequired("run", "input")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeOptionsFromFlags(cmd *cobra.Command) (analyzeOptions, error) {
	f := cmd.Flags()
	var o analyzeOptions
	o.RunID, _ = f.GetString("run")
	o.Input, _ = f.GetString("input")
	o.MinDays, _ = f.GetString("min-days")
	o.MaxDays, _ = f.GetString("max-days")
	o.Sort, _ = f.GetString("sort")
	o.Export, _ = f.GetBool("export")
	o.Limit, _ = f.GetInt("limit")
	if (o.RunID == "") == (o.Input == "") {
		return o, eris.New("analyze: exactly one of --run or --input is required")
	}
	return o, nil
}

// runAnalyze loads the selected records, pairs them and prints the result.
func runAnalyze(ctx context.Context, o analyzeOptions, out io.Writer) error {
	defaults := model.TripBounds{Min: cfg.Analysis.MinTripDays, Max: cfg.Analysis.MaxTripDays}
	sortKey := cfg.Analysis.Sort

	var records []model.FlightRecord
	if o.RunID != "" {
		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, o.RunID)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		if run.Request.Trip.Valid() {
			defaults = run.Request.Trip
		}
		if run.Request.Sort != "" {
			sortKey = string(run.Request.Sort)
		}
		if records, err = st.ListRecords(ctx, run.ID); err != nil {
			return eris.Wrap(err, "analyze")
		}
	} else {
		var err error
		if records, err = export.ReadRecords(o.Input); err != nil {
			return eris.Wrap(err, "analyze")
		}
	}

	if o.Sort != "" {
		sortKey = o.Sort
	}
	key, err := model.ParseSortKey(sortKey)
	if err != nil {
		return eris.Wrap(err, "analyze")
	}
	bounds := resolveBounds(o.MinDays, o.MaxDays, defaults)

	res := analysis.Analyze(records, bounds, key)
	zap.L().Info("analyze: paired round trips",
		zap.Int("records", len(records)),
		zap.Int("itineraries", len(res.Itineraries)),
		zap.Int("excluded", res.Excluded),
		zap.Int("min_trip_days", bounds.Min),
		zap.Int("max_trip_days", bounds.Max),
	)
	formatItineraries(out, res.Itineraries, o.Limit)

	if o.Export {
		path, err := export.New(cfg.Export.Dir).Export(records, res.Itineraries)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		_, _ = fmt.Fprintf(out, "Workbook: %s\n", path)
	}
	return nil
}

// resolveBounds parses the flag values, filling an omitted side from
// defaults. Unusable bounds fall back with a logged warning.
func resolveBounds(minStr, maxStr string, defaults model.TripBounds) model.TripBounds {
	if minStr == "" {
		minStr = strconv.Itoa(defaults.Min)
	}
	if maxStr == "" {
		maxStr = strconv.Itoa(defaults.Max)
	}
	bounds, warnings := model.ParseTripBounds(minStr, maxStr)
	for _, w := range warnings {
		zap.L().Warn("analyze: " + w)
	}
	return bounds
}
