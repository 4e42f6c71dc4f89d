package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 20, 15, 4, 5, 0, time.FixedZone("MYT", 8*3600))

func validRaw() RawRequest {
	return RawRequest{
		Token:        "tok",
		DelaySecs:    "1.5",
		Departure:    "KUL - Kuala Lumpur",
		Destinations: []string{"PEN - Penang", "lgk"},
		FlightType:   "round-trip",
		FromDate:     "01/06/2024",
		ToDate:       "30/06/2024",
		MinTripDays:  "2",
		MaxTripDays:  "4",
		Sort:         "trip_days",
	}
}

func TestParseRequest_Valid(t *testing.T) {
	t.Parallel()

	req, warnings, err := ParseRequest(validRaw(), testNow)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "tok", req.Token)
	assert.Equal(t, 1500*time.Millisecond, req.Delay)
	assert.Equal(t, "KUL", req.Departure)
	assert.Equal(t, []string{"PEN", "LGK"}, req.Destinations)
	assert.Equal(t, FlightTypeRoundTrip, req.FlightType)
	assert.True(t, req.RoundTrip())
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), req.Range.Start)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), req.Range.End)
	assert.Equal(t, TripBounds{Min: 2, Max: 4}, req.Trip)
	assert.Equal(t, SortTripDays, req.Sort)
}

func TestParseRequest_DefaultDates(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.FromDate = ""
	raw.ToDate = ""
	req, _, err := ParseRequest(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), req.Range.Start)
	assert.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), req.Range.End)
}

func TestParseRequest_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *RawRequest)
	}{
		{"missing token", func(r *RawRequest) { r.Token = "  " }},
		{"bad delay", func(r *RawRequest) { r.DelaySecs = "soon" }},
		{"empty delay", func(r *RawRequest) { r.DelaySecs = "" }},
		{"negative delay", func(r *RawRequest) { r.DelaySecs = "-1" }},
		{"NaN delay", func(r *RawRequest) { r.DelaySecs = "NaN" }},
		{"infinite delay", func(r *RawRequest) { r.DelaySecs = "Inf" }},
		{"negative infinite delay", func(r *RawRequest) { r.DelaySecs = "-Inf" }},
		{"overflowing delay", func(r *RawRequest) { r.DelaySecs = "1e300" }},
		{"no departure", func(r *RawRequest) { r.Departure = "" }},
		{"no destinations", func(r *RawRequest) { r.Destinations = nil }},
		{"destination equals departure", func(r *RawRequest) { r.Destinations = []string{"KUL"} }},
		{"bad flight type", func(r *RawRequest) { r.FlightType = "multi-city" }},
		{"bad from date", func(r *RawRequest) { r.FromDate = "2024-06-01" }},
		{"bad to date", func(r *RawRequest) { r.ToDate = "31/02/2024" }},
		{"inverted range", func(r *RawRequest) { r.FromDate = "01/07/2024" }},
		{"bad sort", func(r *RawRequest) { r.Sort = "airline" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := validRaw()
			tt.mutate(&raw)
			_, _, err := ParseRequest(raw, testNow)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestParseRequest_TripDayFallback(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.MinTripDays = "three"
	req, warnings, err := ParseRequest(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, DefaultTripBounds, req.Trip)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "using defaults 3 and 5")
}

func TestParseRequest_OneWaySuppressesTripWarnings(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.FlightType = "One Way"
	raw.MinTripDays = ""
	raw.MaxTripDays = ""
	req, warnings, err := ParseRequest(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, FlightTypeOneWay, req.FlightType)
	assert.Empty(t, warnings)
}

func TestParseRequest_DuplicateDestinations(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Destinations = []string{"PEN", "PEN - Penang", "", "LGK"}
	req, _, err := ParseRequest(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"PEN", "LGK"}, req.Destinations)
}

func TestParseTripBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lo, hi   string
		want     TripBounds
		warnings int
	}{
		{"valid", "1", "7", TripBounds{Min: 1, Max: 7}, 0},
		{"equal", "4", "4", TripBounds{Min: 4, Max: 4}, 0},
		{"zero", "0", "0", TripBounds{Min: 0, Max: 0}, 0},
		{"empty", "", "", DefaultTripBounds, 1},
		{"inverted", "6", "2", DefaultTripBounds, 1},
		{"negative", "-1", "2", DefaultTripBounds, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, warnings := ParseTripBounds(tt.lo, tt.hi)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want SortKey
	}{
		{"", SortPriceAsc},
		{"price_asc", SortPriceAsc},
		{"Price (Low to High)", SortPriceAsc},
		{"Price (High to Low)", SortPriceDesc},
		{"price_desc", SortPriceDesc},
		{"Trip Days", SortTripDays},
		{"Destination", SortDestination},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSortKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSortKey("cheapest")
	assert.Error(t, err)
}

func TestStationCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "KUL", StationCode("KUL - Kuala Lumpur"))
	assert.Equal(t, "PEN", StationCode(" pen "))
	assert.Equal(t, "", StationCode(""))
}
