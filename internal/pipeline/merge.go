package pipeline

import (
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/geocode"
)

// NoDataReason is the failure reason stored when no source contributed.
const NoDataReason = "No data found"

// SourceListing is the listing one named source resolved.
type SourceListing struct {
	Source  string
	Listing model.Listing
}

// Merge combines geocoder output with listings given in priority order.
// Price, year built and acreage take the first value present; home type is
// read only from Zillow and solar notes only from Redfin. Sources names the
// geocoder when it matched, then every listing source with any field. When
// nothing contributed the result is the fetch-failure sentinel.
func Merge(geo *geocode.Result, listings []SourceListing) model.Outcome {
	var rec model.PropertyRecord

	if geo != nil && geo.Matched {
		lat, lon := geo.Latitude, geo.Longitude
		rec.Lat, rec.Lon = &lat, &lon
		rec.Sources = append(rec.Sources, model.SourceNominatim)
	}

	for _, sl := range listings {
		l := sl.Listing
		if rec.Price == nil {
			rec.Price = l.Price
		}
		if rec.YearBuilt == nil {
			rec.YearBuilt = l.YearBuilt
		}
		if rec.Acreage == nil {
			rec.Acreage = l.Acreage
		}
		switch sl.Source {
		case model.SourceZillow:
			rec.HomeType = l.HomeType
		case model.SourceRedfin:
			rec.SolarInfo = l.SolarInfo
		}
		if !l.Empty() {
			rec.Sources = append(rec.Sources, sl.Source)
		}
	}

	if len(rec.Sources) == 0 {
		return model.FailedOutcome(NoDataReason)
	}
	return model.RecordOutcome(rec)
}

// Label returns the source label of a freshly fetched outcome.
func Label(o model.Outcome) string {
	if o.Failed() {
		return model.LabelNone
	}
	return o.Record.Label()
}
