package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// SortKey selects the ordering of analysis results.
type SortKey string

const (
	SortPriceAsc    SortKey = "price_asc"
	SortPriceDesc   SortKey = "price_desc"
	SortTripDays    SortKey = "trip_days"
	SortDestination SortKey = "destination"
)

// ParseSortKey accepts the canonical tokens and the legacy form labels.
// An empty string selects SortPriceAsc.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SortPriceAsc), "price (low to high)", "price":
		return SortPriceAsc, nil
	case string(SortPriceDesc), "price (high to low)":
		return SortPriceDesc, nil
	case string(SortTripDays), "trip days", "trip-days":
		return SortTripDays, nil
	case string(SortDestination):
		return SortDestination, nil
	}
	return "", eris.Errorf("model: unknown sort key %q", s)
}

// TripBounds is the inclusive trip-length window in days.
type TripBounds struct {
	Min int `json:"min_trip_days" yaml:"min_trip_days"`
	Max int `json:"max_trip_days" yaml:"max_trip_days"`
}

// DefaultTripBounds are used when the caller supplies no usable bounds.
var DefaultTripBounds = TripBounds{Min: 3, Max: 5}

// Valid reports whether 0 <= Min <= Max.
func (b TripBounds) Valid() bool {
	return b.Min >= 0 && b.Min <= b.Max
}

// Contains reports whether days falls within the bounds.
func (b TripBounds) Contains(days int) bool {
	return days >= b.Min && days <= b.Max
}

// PairedItinerary is one candidate round trip.
type PairedItinerary struct {
	Destination     string          `json:"destination"`
	OutboundDate    time.Time       `json:"outbound_date"`
	OutboundWeekend bool            `json:"outbound_weekend"`
	InboundDate     time.Time       `json:"inbound_date"`
	InboundWeekend  bool            `json:"inbound_weekend"`
	OutboundPrice   decimal.Decimal `json:"outbound_price"`
	InboundPrice    decimal.Decimal `json:"inbound_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	TripDays        int             `json:"trip_days"`
	Outbound        Route           `json:"outbound_route"`
	Inbound         Route           `json:"inbound_route"`
}

// IsWeekend reports whether d falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
