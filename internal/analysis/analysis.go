// Package analysis pairs outbound and return legs into round trips.
package analysis

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/model"
)

// Result is the outcome of one analysis pass.
type Result struct {
	Itineraries []model.PairedItinerary
	// Excluded counts records dropped for an unparsable departure date.
	Excluded int
}

// Found reports whether any round trip satisfied the constraints. A false
// value is the "no combinations" signal, not an error.
func (r Result) Found() bool {
	return len(r.Itineraries) > 0
}

type leg struct {
	rec  model.FlightRecord
	date time.Time
}

// Analyze joins every outbound leg with every return leg on the reversed
// route departing between Min and Max days later (inclusive), then sorts
// the pairs stably by key. Records with unparsable dates are excluded.
// Analyze does not modify records and returns the same output for the same
// input.
func Analyze(records []model.FlightRecord, bounds model.TripBounds, key model.SortKey) Result {
	var res Result
	var outbound []leg
	inbound := make(map[model.Route][]leg)

	for _, rec := range records {
		d, err := rec.Date()
		if err != nil {
			res.Excluded++
			continue
		}
		switch rec.Direction {
		case model.DirectionOutbound:
			outbound = append(outbound, leg{rec: rec, date: d})
		case model.DirectionReturn:
			inbound[rec.Route()] = append(inbound[rec.Route()], leg{rec: rec, date: d})
		}
	}
	if res.Excluded > 0 {
		zap.L().Warn("analysis: excluded records with unparsable dates", zap.Int("excluded", res.Excluded))
	}

	for _, out := range outbound {
		earliest := out.date.AddDate(0, 0, bounds.Min)
		latest := out.date.AddDate(0, 0, bounds.Max)
		for _, in := range inbound[out.rec.Route().Reverse()] {
			if in.date.Before(earliest) || in.date.After(latest) {
				continue
			}
			res.Itineraries = append(res.Itineraries, pair(out, in))
		}
	}

	Sort(res.Itineraries, key)

	if res.Found() {
		zap.L().Info("analysis: complete", zap.Int("itineraries", len(res.Itineraries)))
	} else {
		zap.L().Info("analysis: no valid round-trip combinations found")
	}
	return res
}

func pair(out, in leg) model.PairedItinerary {
	return model.PairedItinerary{
		Destination:     out.rec.ArrivalStation,
		OutboundDate:    out.date,
		OutboundWeekend: model.IsWeekend(out.date),
		InboundDate:     in.date,
		InboundWeekend:  model.IsWeekend(in.date),
		OutboundPrice:   out.rec.Price,
		InboundPrice:    in.rec.Price,
		TotalPrice:      out.rec.Price.Add(in.rec.Price),
		TripDays:        int(in.date.Sub(out.date).Hours() / 24),
		Outbound:        out.rec.Route(),
		Inbound:         in.rec.Route(),
	}
}

// Sort orders itineraries in place by key. The sort is stable: pairs that
// compare equal keep their relative order.
func Sort(its []model.PairedItinerary, key model.SortKey) {
	byTotal := func(a, b model.PairedItinerary) int { return a.TotalPrice.Cmp(b.TotalPrice) }

	var fn func(a, b model.PairedItinerary) int
	switch key {
	case model.SortPriceDesc:
		fn = func(a, b model.PairedItinerary) int { return b.TotalPrice.Cmp(a.TotalPrice) }
	case model.SortTripDays:
		fn = func(a, b model.PairedItinerary) int {
			return cmp.Or(cmp.Compare(a.TripDays, b.TripDays), byTotal(a, b))
		}
	case model.SortDestination:
		fn = func(a, b model.PairedItinerary) int {
			return cmp.Or(cmp.Compare(a.Destination, b.Destination), byTotal(a, b))
		}
	default:
		fn = byTotal
	}
	slices.SortStableFunc(its, fn)
}
