package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightRecord_Date(t *testing.T) {
	t.Parallel()

	r := FlightRecord{DepartureDate: "01/06/2024"}
	d, err := r.Date()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), d)

	r.DepartureDate = "2024-06-01"
	_, err = r.Date()
	assert.Error(t, err)
}

func TestFlightRecord_Validate(t *testing.T) {
	t.Parallel()

	ok := FlightRecord{
		DepartureStation: "KUL",
		ArrivalStation:   "PEN",
		Price:            decimal.NewFromInt(100),
		Direction:        DirectionOutbound,
	}
	assert.NoError(t, ok.Validate())

	same := ok
	same.ArrivalStation = "KUL"
	assert.Error(t, same.Validate())

	neg := ok
	neg.Price = decimal.NewFromInt(-1)
	assert.Error(t, neg.Validate())

	noDir := ok
	noDir.Direction = ""
	assert.Error(t, noDir.Validate())

	missing := ok
	missing.DepartureStation = ""
	assert.Error(t, missing.Validate())
}

func TestRoute(t *testing.T) {
	t.Parallel()

	r := Route{From: "KUL", To: "PEN"}
	assert.Equal(t, Route{From: "PEN", To: "KUL"}, r.Reverse())
	assert.Equal(t, "KUL_to_PEN", r.String())
}

func TestParseFlightType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]FlightType{
		"one-way":    FlightTypeOneWay,
		"One Way":    FlightTypeOneWay,
		"round-trip": FlightTypeRoundTrip,
		"Round Trip": FlightTypeRoundTrip,
		"round_trip": FlightTypeRoundTrip,
	} {
		got, err := ParseFlightType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFlightType("open-jaw")
	assert.Error(t, err)
}

func TestFlightType_Directions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Direction{DirectionOutbound}, FlightTypeOneWay.Directions())
	assert.Equal(t, []Direction{DirectionOutbound, DirectionReturn}, FlightTypeRoundTrip.Directions())
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	d, err := ParseDirection("Outbound")
	require.NoError(t, err)
	assert.Equal(t, DirectionOutbound, d)

	d, err = ParseDirection("inbound")
	require.NoError(t, err)
	assert.Equal(t, DirectionReturn, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	assert.True(t, IsWeekend(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))  // Saturday
	assert.True(t, IsWeekend(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))  // Sunday
	assert.False(t, IsWeekend(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))) // Monday
	assert.False(t, IsWeekend(time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC))) // Friday
}
