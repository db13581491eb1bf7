package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Source names reported in the source label.
const (
	SourceNominatim = "Nominatim"
	SourceRedfin    = "Redfin"
	SourceZillow    = "Zillow"

	// LabelCached is reported when a lookup is served from the store.
	LabelCached = "Cached"
	// LabelNone is reported when no source contributed.
	LabelNone = "None"
)

// Listing holds the property attributes one listing source resolved.
// A nil field means the source did not find it.
type Listing struct {
	Price     *int64   `json:"price,omitempty"`
	YearBuilt *int     `json:"year_built,omitempty"`
	Acreage   *float64 `json:"acreage,omitempty"`
	HomeType  *string  `json:"home_type,omitempty"`
	SolarInfo *string  `json:"solar_info,omitempty"`
}

// Empty reports whether no field was resolved.
func (l Listing) Empty() bool {
	return l.Price == nil && l.YearBuilt == nil && l.Acreage == nil &&
		l.HomeType == nil && l.SolarInfo == nil
}

// PropertyRecord is the merged view of an address across all sources.
type PropertyRecord struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Price     *int64   `json:"price,omitempty"`
	YearBuilt *int     `json:"year_built,omitempty"`
	Acreage   *float64 `json:"acreage,omitempty"`
	HomeType  *string  `json:"home_type,omitempty"`
	SolarInfo *string  `json:"solar_info,omitempty"`
	Sources   []string `json:"sources"`
}

// Label joins the contributing sources with " + ", or returns "None".
func (r PropertyRecord) Label() string {
	if len(r.Sources) == 0 {
		return LabelNone
	}
	return strings.Join(r.Sources, " + ")
}

// OutcomeKind discriminates the persisted Outcome variants.
type OutcomeKind string

const (
	OutcomeRecord      OutcomeKind = "record"
	OutcomeFetchFailed OutcomeKind = "fetch_failed"
)

// Outcome is either a merged record or a fetch failure.
type Outcome struct {
	Kind   OutcomeKind     `json:"kind"`
	Record *PropertyRecord `json:"record,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// RecordOutcome wraps a merged record.
func RecordOutcome(r PropertyRecord) Outcome {
	return Outcome{Kind: OutcomeRecord, Record: &r}
}

// FailedOutcome returns the failure sentinel.
func FailedOutcome(reason string) Outcome {
	return Outcome{Kind: OutcomeFetchFailed, Reason: reason}
}

// Failed reports whether the outcome is the failure sentinel.
func (o Outcome) Failed() bool {
	return o.Kind != OutcomeRecord || o.Record == nil
}

// Encode serializes the outcome for storage.
func (o Outcome) Encode() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", eris.Wrap(err, "model: encode outcome")
	}
	return string(b), nil
}

// DecodeOutcome parses stored outcome text. Text that is not a tagged outcome
// document decodes as a fetch failure carrying the raw text.
func DecodeOutcome(data string) Outcome {
	var o Outcome
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return FailedOutcome(data)
	}
	switch o.Kind {
	case OutcomeRecord:
		if o.Record == nil {
			return FailedOutcome(data)
		}
		return o
	case OutcomeFetchFailed:
		return o
	default:
		return FailedOutcome(data)
	}
}
