package main

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fare-cli/internal/model"
)

// defaultRawRequest fills the request fields that have configured defaults.
func defaultRawRequest() model.RawRequest {
	return model.RawRequest{
		Token:       cfg.Fetch.Token,
		DelaySecs:   strconv.FormatFloat(cfg.Fetch.DelaySecs, 'f', -1, 64),
		MinTripDays: strconv.Itoa(cfg.Analysis.MinTripDays),
		MaxTripDays: strconv.Itoa(cfg.Analysis.MaxTripDays),
		Sort:        cfg.Analysis.Sort,
	}
}

// mergeRawRequest returns base with every non-empty field of over applied.
func mergeRawRequest(base, over model.RawRequest) model.RawRequest {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Token, over.Token)
	set(&base.DelaySecs, over.DelaySecs)
	set(&base.Departure, over.Departure)
	set(&base.FlightType, over.FlightType)
	set(&base.FromDate, over.FromDate)
	set(&base.ToDate, over.ToDate)
	set(&base.MinTripDays, over.MinTripDays)
	set(&base.MaxTripDays, over.MaxTripDays)
	set(&base.Sort, over.Sort)
	if len(over.Destinations) > 0 {
		base.Destinations = over.Destinations
	}
	return base
}

// loadRequestFile reads a YAML request descriptor.
func loadRequestFile(path string) (model.RawRequest, error) {
	var raw model.RawRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, eris.Wrapf(err, "read request file %s", path)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return raw, eris.Wrapf(err, "parse request file %s", path)
	}
	return raw, nil
}
