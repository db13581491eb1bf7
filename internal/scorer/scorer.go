// Package scorer maps a merged property outcome to a solar/repair viability score.
package scorer

import (
	"math"
	"strings"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// ReferenceYear is the year property age is measured against.
const ReferenceYear = 2025

// Component weights (sum = 1).
const (
	SolarWeight   = 0.5
	RepairWeight  = 0.3
	AcreageWeight = 0.2
)

// FailedScore is returned for the fetch-failure sentinel.
var FailedScore = model.ScoreResult{Score: 0.1, Confidence: 10.0}

// maxConfidence caps the reported confidence. There is no floor.
const maxConfidence = 100.0

// Components holds the intermediate component scores, exposed for logging.
type Components struct {
	Solar      float64
	Repair     float64
	Acreage    float64
	Confidence float64
}

// Score computes the viability score for an outcome. It is pure: the same
// outcome always yields the same result.
func Score(o model.Outcome) model.ScoreResult {
	if o.Failed() {
		return FailedScore
	}
	c := Breakdown(*o.Record)
	return model.ScoreResult{
		Score:      c.Solar*SolarWeight + c.Repair*RepairWeight + c.Acreage*AcreageWeight,
		Confidence: math.Min(c.Confidence, maxConfidence),
	}
}

// Breakdown computes the component scores and the unclamped confidence.
func Breakdown(r model.PropertyRecord) Components {
	var c Components
	c.Solar, c.Confidence = latitudeBucket(r.Lat)

	if r.SolarInfo != nil {
		info := strings.ToLower(*r.SolarInfo)
		if strings.Contains(info, "save") {
			c.Solar += 0.2
			c.Confidence += 10
		}
		if strings.Contains(info, "rooftop solar") {
			c.Solar += 0.1
			c.Confidence += 5
		}
	}

	c.Repair = 0.5
	if r.YearBuilt != nil {
		age := ReferenceYear - *r.YearBuilt
		switch {
		case age > 30:
			c.Repair = 0.3
			c.Confidence += 10
		case age < 10:
			c.Repair = 0.7
			c.Confidence += 10
		}
	}

	c.Acreage = 0.5
	if r.Acreage != nil {
		switch acres := *r.Acreage; {
		case acres > 1.0:
			c.Acreage = 0.8
			c.Confidence += 10
		case acres < 0.1:
			c.Acreage = 0.2
		}
	}
	return c
}

// latitudeBucket returns the baseline solar score and confidence. The
// mid-latitude band and the fallback intentionally share the same values.
func latitudeBucket(lat *float64) (solar, confidence float64) {
	if lat == nil {
		return 0.5, 60
	}
	switch l := *lat; {
	case l >= 25 && l <= 35:
		return 0.8, 70
	case l > 35 && l <= 45:
		return 0.5, 60
	default:
		return 0.5, 60
	}
}
