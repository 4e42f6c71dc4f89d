// Package export writes flight records and round-trip analysis to XLSX workbooks.
package export

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/model"
)

// ErrNothingToExport is returned when there are no records; no file is written.
var ErrNothingToExport = eris.New("export: no flight data to export")

const (
	// MaxSheetName is the longest sheet name XLSX accepts.
	MaxSheetName = 31

	// AnalysisSheet names the round-trip analysis sheet.
	AnalysisSheet = "Analysis"

	// WeekendMarker flags weekend dates in the analysis sheet.
	WeekendMarker = "🏖️"

	filePrefix = "Flight_Prices_"
	fileExt    = ".xlsx"
)

// RecordColumns is the header row of every route sheet.
var RecordColumns = []string{
	"departure_station", "arrival_station", "departure_date", "price",
	"formatted_price", "short_price", "airline_profile", "flight_number",
	"direction", "fetch_date",
}

// AnalysisColumns is the header row of the analysis sheet.
var AnalysisColumns = []string{
	"Destination", "Outbound Date", "Outbound Weekend", "Inbound Date",
	"Inbound Weekend", "Outbound Price", "Inbound Price", "Total Price", "Trip Days",
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used to date the output file (for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// Exporter writes one workbook per call into a directory.
type Exporter struct {
	dir string
	now func() time.Time
}

// New creates an Exporter writing into dir.
func New(dir string, opts ...Option) *Exporter {
	if dir == "" {
		dir = "."
	}
	e := &Exporter{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes one sheet per route plus, if itineraries is non-empty, an
// Analysis sheet. The file is named Flight_Prices_<YYYYMMDD>.xlsx, or
// Flight_Prices_<YYYYMMDD>_<n>.xlsx with the smallest free n, and an
// existing file is never overwritten. It returns the path written.
func (e *Exporter) Export(records []model.FlightRecord, itineraries []model.PairedItinerary) (string, error) {
	if len(records) == 0 {
		zap.L().Warn("export: no flight data available to export")
		return "", ErrNothingToExport
	}

	wb, err := buildWorkbook(records, itineraries)
	if err != nil {
		return "", err
	}

	fh, path, err := e.claim()
	if err != nil {
		return "", err
	}
	if err := wb.Write(fh); err != nil {
		_ = fh.Close()
		_ = os.Remove(path)
		return "", eris.Wrapf(err, "export: write %s", path)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(path)
		return "", eris.Wrapf(err, "export: close %s", path)
	}

	zap.L().Info("export: data exported",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("itineraries", len(itineraries)),
	)
	return path, nil
}

// claim creates the first unused file name with O_EXCL, so two exports
// racing for the same name cannot both win it.
func (e *Exporter) claim() (*os.File, string, error) {
	base := filePrefix + e.now().Format("20060102")
	for n := 0; ; n++ {
		name := base + fileExt
		if n > 0 {
			name = base + "_" + strconv.Itoa(n) + fileExt
		}
		path := filepath.Join(e.dir, name)
		fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return fh, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", eris.Wrapf(err, "export: create %s", path)
		}
	}
}

func buildWorkbook(records []model.FlightRecord, itineraries []model.PairedItinerary) (*xlsx.File, error) {
	wb := xlsx.NewFile()
	used := map[string]bool{AnalysisSheet: true}

	for _, g := range groupByRoute(records) {
		name := sheetName(g.route.String(), used)
		used[name] = true
		if name != truncate(g.route.String(), MaxSheetName) {
			zap.L().Warn("export: sheet name collided after truncation",
				zap.String("route", g.route.String()),
				zap.String("sheet", name),
			)
		}

		sheet, err := wb.AddSheet(name)
		if err != nil {
			return nil, eris.Wrapf(err, "export: add sheet %s", name)
		}
		addRow(sheet, RecordColumns...)
		for _, r := range g.records {
			row := sheet.AddRow()
			row.AddCell().SetString(r.DepartureStation)
			row.AddCell().SetString(r.ArrivalStation)
			row.AddCell().SetString(r.DepartureDate)
			row.AddCell().SetFloat(r.Price.InexactFloat64())
			row.AddCell().SetString(r.FormattedPrice)
			row.AddCell().SetString(r.ShortPrice)
			row.AddCell().SetString(r.AirlineProfile)
			row.AddCell().SetString(r.FlightNumber)
			row.AddCell().SetString(string(r.Direction))
			row.AddCell().SetString(r.FetchDate)
		}
	}

	if len(itineraries) == 0 {
		return wb, nil
	}

	sheet, err := wb.AddSheet(AnalysisSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add analysis sheet")
	}
	addRow(sheet, AnalysisColumns...)
	for _, it := range itineraries {
		row := sheet.AddRow()
		row.AddCell().SetString(it.Destination)
		row.AddCell().SetString(it.OutboundDate.Format(model.DateLayout))
		row.AddCell().SetString(weekend(it.OutboundWeekend))
		row.AddCell().SetString(it.InboundDate.Format(model.DateLayout))
		row.AddCell().SetString(weekend(it.InboundWeekend))
		row.AddCell().SetFloat(it.OutboundPrice.InexactFloat64())
		row.AddCell().SetFloat(it.InboundPrice.InexactFloat64())
		row.AddCell().SetFloat(it.TotalPrice.InexactFloat64())
		row.AddCell().SetInt(it.TripDays)
	}
	return wb, nil
}

type routeGroup struct {
	route   model.Route
	records []model.FlightRecord
}

// groupByRoute groups records by (departure, arrival), ordered by route.
// Records keep their input order within a group.
func groupByRoute(records []model.FlightRecord) []routeGroup {
	idx := make(map[model.Route]int)
	var groups []routeGroup
	for _, r := range records {
		key := r.Route()
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, routeGroup{route: key})
		}
		groups[i].records = append(groups[i].records, r)
	}
	slices.SortFunc(groups, func(a, b routeGroup) int {
		return cmp.Or(cmp.Compare(a.route.From, b.route.From), cmp.Compare(a.route.To, b.route.To))
	})
	return groups
}

// sheetName truncates name to MaxSheetName characters. If the result is
// already taken it replaces the tail with "~n" for the smallest free n.
func sheetName(name string, used map[string]bool) string {
	cand := truncate(name, MaxSheetName)
	for n := 1; used[cand]; n++ {
		suffix := "~" + strconv.Itoa(n)
		cand = truncate(name, MaxSheetName-len(suffix)) + suffix
	}
	return cand
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func weekend(b bool) string {
	if b {
		return WeekendMarker
	}
	return ""
}
