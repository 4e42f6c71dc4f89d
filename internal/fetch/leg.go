package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fare-cli/internal/model"
	"github.com/sells-group/fare-cli/pkg/lowfare"
)

// Outcome is the result of one leg query: Success, Skip or Failure.
type Outcome interface {
	outcome()
}

// Success carries the records parsed from a 2xx response. It may be empty.
type Success struct {
	Records []model.FlightRecord
}

// Skip means the API reported no more data for the window (HTTP 417).
type Skip struct {
	Reason string
}

// Failure is a transport, HTTP or decode error. It contributes no records.
type Failure struct {
	Err error
}

func (Success) outcome() {}
func (Skip) outcome()    {}
func (Failure) outcome() {}

// LegSource issues one query for a window.
type LegSource interface {
	FetchLeg(ctx context.Context, w model.QueryWindow, token string) Outcome
}

// LegFetcher maps low-fare API responses into flight records.
type LegFetcher struct {
	client lowfare.Client
	now    func() time.Time
}

// NewLegFetcher creates a LegFetcher backed by client.
func NewLegFetcher(client lowfare.Client) *LegFetcher {
	return &LegFetcher{client: client, now: time.Now}
}

// FetchLeg queries one window and tags every record with the window's
// direction and today's fetch date. Items that violate the record
// invariants are dropped.
func (f *LegFetcher) FetchLeg(ctx context.Context, w model.QueryWindow, token string) Outcome {
	fares, err := f.client.LowFares(ctx, lowfare.Query{
		DepartStation:  w.Origin,
		ArrivalStation: w.Destination,
		Date:           w.Start,
		Token:          token,
	})
	if errors.Is(err, lowfare.ErrNoMoreData) {
		return Skip{Reason: "no more data for window (HTTP 417)"}
	}
	if err != nil {
		return Failure{Err: err}
	}

	fetchDate := f.now().Format(model.FetchDateLayout)
	records := make([]model.FlightRecord, 0, len(fares))
	for _, fare := range fares {
		rec := model.FlightRecord{
			DepartureStation: w.Origin,
			ArrivalStation:   w.Destination,
			DepartureDate:    fare.DepartureDate,
			Price:            fare.Price,
			FormattedPrice:   fare.ShortFormattedPrice,
			ShortPrice:       string(fare.ShortPrice),
			AirlineProfile:   fare.AirlineProfile,
			FlightNumber:     string(fare.AAFlight),
			Direction:        w.Direction,
			FetchDate:        fetchDate,
		}
		if err := rec.Validate(); err != nil {
			zap.L().Warn("fetch: dropping invalid fare",
				zap.String("route", w.Route().String()),
				zap.String("date", fare.DepartureDate),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return Success{Records: records}
}
