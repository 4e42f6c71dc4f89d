package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidRequest marks request validation failures. Nothing is fetched
// for a request that fails validation.
var ErrInvalidRequest = eris.New("invalid request")

// RawRequest is the string-typed request as collected from flags, a YAML
// request file, or an HTTP body.
type RawRequest struct {
	Token        string   `json:"token" yaml:"token"`
	DelaySecs    string   `json:"delay_secs" yaml:"delay_secs"`
	Departure    string   `json:"departure" yaml:"departure"`
	Destinations []string `json:"destinations" yaml:"destinations"`
	FlightType   string   `json:"flight_type" yaml:"flight_type"`
	FromDate     string   `json:"from_date" yaml:"from_date"`
	ToDate       string   `json:"to_date" yaml:"to_date"`
	MinTripDays  string   `json:"min_trip_days" yaml:"min_trip_days"`
	MaxTripDays  string   `json:"max_trip_days" yaml:"max_trip_days"`
	Sort         string   `json:"sort" yaml:"sort"`
}

// DateRange is an inclusive span of UTC calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Request is the validated, immutable request descriptor consumed by the
// fetch, analysis and export stages.
type Request struct {
	Token        string        `json:"-"`
	Delay        time.Duration `json:"delay"`
	Departure    string        `json:"departure"`
	Destinations []string      `json:"destinations"`
	FlightType   FlightType    `json:"flight_type"`
	Range        DateRange     `json:"range"`
	Trip         TripBounds    `json:"trip"`
	Sort         SortKey       `json:"sort"`
}

// RoundTrip reports whether return legs are fetched and analyzed.
func (r Request) RoundTrip() bool {
	return r.FlightType == FlightTypeRoundTrip
}

const maxDelaySecs = float64(math.MaxInt64) / float64(time.Second)

func invalid(format string, args ...any) error {
	return eris.Wrap(ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StationCode extracts the code from a "CODE - City Name" entry and upper-cases it.
func StationCode(entry string) string {
	code, _, _ := strings.Cut(entry, " - ")
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseRequest validates raw and converts it into a Request. Empty dates
// default to today and today + 365 days. Unusable trip-day bounds fall back
// to DefaultTripBounds; the returned warnings describe each fallback.
func ParseRequest(raw RawRequest, now time.Time) (Request, []string, error) {
	var req Request
	var warnings []string

	req.Token = strings.TrimSpace(raw.Token)
	if req.Token == "" {
		return Request{}, nil, invalid("access token is required")
	}

	delay, err := strconv.ParseFloat(strings.TrimSpace(raw.DelaySecs), 64)
	if err != nil {
		return Request{}, nil, invalid("invalid delay %q: expected a number of seconds", raw.DelaySecs)
	}
	if math.IsNaN(delay) || math.IsInf(delay, 0) {
		return Request{}, nil, invalid("invalid delay %q: expected a number of seconds", raw.DelaySecs)
	}
	if delay < 0 {
		return Request{}, nil, invalid("delay must not be negative")
	}
	if delay >= maxDelaySecs {
		return Request{}, nil, invalid("delay %q is too large", raw.DelaySecs)
	}
	req.Delay = time.Duration(delay * float64(time.Second))

	req.Departure = StationCode(raw.Departure)
	if req.Departure == "" {
		return Request{}, nil, invalid("a departure code is required")
	}

	seen := make(map[string]bool, len(raw.Destinations))
	for _, d := range raw.Destinations {
		code := StationCode(d)
		if code == "" || seen[code] {
			continue
		}
		if code == req.Departure {
			return Request{}, nil, invalid("destination %s equals the departure", code)
		}
		seen[code] = true
		req.Destinations = append(req.Destinations, code)
	}
	if len(req.Destinations) == 0 {
		return Request{}, nil, invalid("at least one destination code is required")
	}

	ft := raw.FlightType
	if strings.TrimSpace(ft) == "" {
		ft = string(FlightTypeOneWay)
	}
	req.FlightType, err = ParseFlightType(ft)
	if err != nil {
		return Request{}, nil, invalid("unknown flight type %q", raw.FlightType)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	req.Range.Start, err = parseDateOr(raw.FromDate, today)
	if err != nil {
		return Request{}, nil, err
	}
	req.Range.End, err = parseDateOr(raw.ToDate, today.AddDate(0, 0, 365))
	if err != nil {
		return Request{}, nil, err
	}
	if req.Range.Start.After(req.Range.End) {
		return Request{}, nil, invalid("from date %s is after to date %s",
			req.Range.Start.Format(DateLayout), req.Range.End.Format(DateLayout))
	}

	req.Sort, err = ParseSortKey(raw.Sort)
	if err != nil {
		return Request{}, nil, invalid("unknown sort key %q", raw.Sort)
	}

	req.Trip, warnings = ParseTripBounds(raw.MinTripDays, raw.MaxTripDays)
	if !req.RoundTrip() {
		warnings = nil
	}

	return req, warnings, nil
}

// ParseTripBounds parses trip-day bounds, falling back to DefaultTripBounds
// when either value is missing, unparsable, negative, or min exceeds max.
func ParseTripBounds(minStr, maxStr string) (TripBounds, []string) {
	lo, errLo := strconv.Atoi(strings.TrimSpace(minStr))
	hi, errHi := strconv.Atoi(strings.TrimSpace(maxStr))
	if errLo != nil || errHi != nil {
		return DefaultTripBounds, []string{fmt.Sprintf(
			"invalid trip days input (min %q, max %q); using defaults %d and %d",
			minStr, maxStr, DefaultTripBounds.Min, DefaultTripBounds.Max)}
	}
	b := TripBounds{Min: lo, Max: hi}
	if !b.Valid() {
		return DefaultTripBounds, []string{fmt.Sprintf(
			"trip days out of range (min %d, max %d); using defaults %d and %d",
			lo, hi, DefaultTripBounds.Min, DefaultTripBounds.Max)}
	}
	return b, nil
}

func parseDateOr(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("invalid date %q: use dd/mm/yyyy", s)
	}
	return d, nil
}
