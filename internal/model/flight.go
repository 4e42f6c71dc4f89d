package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// DateLayout is the dd/mm/yyyy layout used by the fare API and the request descriptor.
const DateLayout = "02/01/2006"

// FetchDateLayout is the layout of FlightRecord.FetchDate.
const FetchDateLayout = "2006-01-02"

// Direction tags a leg as outbound (departure to destination) or return.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

// ParseDirection parses a direction token.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionOutbound:
		return DirectionOutbound, nil
	case DirectionReturn, "inbound":
		return DirectionReturn, nil
	}
	return "", eris.Errorf("model: unknown direction %q", s)
}

// FlightType selects one-way or round-trip fetching.
type FlightType string

const (
	FlightTypeOneWay    FlightType = "one-way"
	FlightTypeRoundTrip FlightType = "round-trip"
)

// ParseFlightType accepts the canonical tokens and the legacy form labels
// ("One Way", "Round Trip").
func ParseFlightType(s string) (FlightType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	switch FlightType(norm) {
	case FlightTypeOneWay, "oneway":
		return FlightTypeOneWay, nil
	case FlightTypeRoundTrip, "roundtrip":
		return FlightTypeRoundTrip, nil
	}
	return "", eris.Errorf("model: unknown flight type %q", s)
}

// Directions returns the directions fetched for each window.
func (t FlightType) Directions() []Direction {
	if t == FlightTypeRoundTrip {
		return []Direction{DirectionOutbound, DirectionReturn}
	}
	return []Direction{DirectionOutbound}
}

// FlightRecord is one priced leg returned by the fare API.
type FlightRecord struct {
	DepartureStation string          `json:"departure_station"`
	ArrivalStation   string          `json:"arrival_station"`
	DepartureDate    string          `json:"departure_date"` // dd/mm/yyyy, as returned by the API
	Price            decimal.Decimal `json:"price"`
	FormattedPrice   string          `json:"formatted_price"`
	ShortPrice       string          `json:"short_price"`
	AirlineProfile   string          `json:"airline_profile"`
	FlightNumber     string          `json:"flight_number"`
	Direction        Direction       `json:"direction"`
	FetchDate        string          `json:"fetch_date"` // yyyy-mm-dd
}

// Date parses DepartureDate into a UTC calendar date.
func (r FlightRecord) Date() (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(r.DepartureDate))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "model: parse departure date %q", r.DepartureDate)
	}
	return d, nil
}

// Route returns the (departure, arrival) pair.
func (r FlightRecord) Route() Route {
	return Route{From: r.DepartureStation, To: r.ArrivalStation}
}

// Validate checks the record invariants.
func (r FlightRecord) Validate() error {
	if r.DepartureStation == "" || r.ArrivalStation == "" {
		return eris.New("model: record missing station code")
	}
	if r.DepartureStation == r.ArrivalStation {
		return eris.Errorf("model: record departs and arrives at %s", r.DepartureStation)
	}
	if r.Price.IsNegative() {
		return eris.Errorf("model: negative price %s", r.Price)
	}
	switch r.Direction {
	case DirectionOutbound, DirectionReturn:
	default:
		return eris.Errorf("model: record has unknown direction %q", r.Direction)
	}
	return nil
}

// Route is an ordered station pair.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Reverse returns the route flown in the opposite direction.
func (r Route) Reverse() Route {
	return Route{From: r.To, To: r.From}
}

func (r Route) String() string {
	return r.From + "_to_" + r.To
}

// QueryWindow is one (route, date window) unit of work.
type QueryWindow struct {
	Origin      string
	Destination string
	Start       time.Time
	Days        int
	Direction   Direction
}

// Route returns the window's route.
func (w QueryWindow) Route() Route {
	return Route{From: w.Origin, To: w.Destination}
}
