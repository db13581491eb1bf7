package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-qualifier/internal/model"
)

func ptr[T any](v T) *T { return &v }

func record(r model.PropertyRecord) model.Outcome {
	return model.RecordOutcome(r)
}

func TestScore_FailedSentinel(t *testing.T) {
	got := Score(model.FailedOutcome("No data found"))
	assert.Equal(t, 0.1, got.Score)
	assert.Equal(t, 10.0, got.Confidence)

	// A failure never looks at anything else.
	got = Score(model.Outcome{Kind: model.OutcomeFetchFailed, Record: &model.PropertyRecord{Lat: ptr(30.0)}})
	assert.Equal(t, FailedScore, got)
}

func TestScore_LatitudeBuckets(t *testing.T) {
	tests := []struct {
		name     string
		lat      *float64
		wantConf float64
		wantSol  float64
	}{
		{"lower edge", ptr(25.0), 70, 0.8},
		{"upper edge", ptr(35.0), 70, 0.8},
		{"just above 35", ptr(35.0001), 60, 0.5},
		{"45", ptr(45.0), 60, 0.5},
		{"far south", ptr(10.0), 60, 0.5},
		{"far north", ptr(50.0), 60, 0.5},
		{"missing", nil, 60, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(record(model.PropertyRecord{Lat: tt.lat}))
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.InDelta(t, tt.wantSol*0.5+0.5*0.3+0.5*0.2, got.Score, 1e-12)
		})
	}
}

func TestScore_SolarText(t *testing.T) {
	base := model.PropertyRecord{Lat: ptr(30.0)}

	save := base
	save.SolarInfo = ptr("Est. $120/mo SAVE with solar")
	c := Breakdown(save)
	assert.InDelta(t, 1.0, c.Solar, 1e-12)
	assert.Equal(t, 80.0, c.Confidence)

	both := base
	both.SolarInfo = ptr("Rooftop solar could save $90")
	c = Breakdown(both)
	assert.InDelta(t, 1.1, c.Solar, 1e-12)
	assert.Equal(t, 85.0, c.Confidence)

	rooftopOnly := base
	rooftopOnly.SolarInfo = ptr("Rooftop solar potential: high")
	c = Breakdown(rooftopOnly)
	assert.InDelta(t, 0.9, c.Solar, 1e-12)
	assert.Equal(t, 75.0, c.Confidence)

	none := base
	none.SolarInfo = ptr("Electric: grid")
	c = Breakdown(none)
	assert.InDelta(t, 0.8, c.Solar, 1e-12)
	assert.Equal(t, 70.0, c.Confidence)
}

func TestScore_RepairAge(t *testing.T) {
	tests := []struct {
		year     int
		repair   float64
		confBump float64
	}{
		{1990, 0.3, 10}, // 35 years old
		{1995, 0.5, 0},  // exactly 30
		{2010, 0.5, 0},
		{2015, 0.5, 0}, // exactly 10
		{2016, 0.7, 10},
		{2020, 0.7, 10},
	}

	for _, tt := range tests {
		c := Breakdown(model.PropertyRecord{YearBuilt: ptr(tt.year)})
		assert.Equal(t, tt.repair, c.Repair, "year %d", tt.year)
		assert.Equal(t, 60+tt.confBump, c.Confidence, "year %d", tt.year)
	}

	c := Breakdown(model.PropertyRecord{})
	assert.Equal(t, 0.5, c.Repair)
}

func TestScore_Acreage(t *testing.T) {
	c := Breakdown(model.PropertyRecord{Acreage: ptr(2.5)})
	assert.Equal(t, 0.8, c.Acreage)
	assert.Equal(t, 70.0, c.Confidence)

	c = Breakdown(model.PropertyRecord{Acreage: ptr(0.05)})
	assert.Equal(t, 0.2, c.Acreage)
	assert.Equal(t, 60.0, c.Confidence, "small lots do not change confidence")

	c = Breakdown(model.PropertyRecord{Acreage: ptr(1.0)})
	assert.Equal(t, 0.5, c.Acreage)

	c = Breakdown(model.PropertyRecord{Acreage: ptr(0.1)})
	assert.Equal(t, 0.5, c.Acreage)
}

func TestScore_ConfidenceClampedAtHundred(t *testing.T) {
	r := model.PropertyRecord{
		Lat:       ptr(30.0),
		SolarInfo: ptr("rooftop solar, save big"),
		YearBuilt: ptr(2022),
		Acreage:   ptr(3.0),
	}
	c := Breakdown(r)
	assert.Equal(t, 105.0, c.Confidence, "unclamped confidence may exceed 100")

	got := Score(record(r))
	assert.Equal(t, 100.0, got.Confidence)
	assert.InDelta(t, 1.1*0.5+0.7*0.3+0.8*0.2, got.Score, 1e-12)
	assert.LessOrEqual(t, got.Score, 1.0)
}

func TestScore_ConfidenceMonotonic(t *testing.T) {
	r := model.PropertyRecord{Lat: ptr(40.0)}
	prev := Score(record(r)).Confidence

	steps := []func(*model.PropertyRecord){
		func(r *model.PropertyRecord) { r.SolarInfo = ptr("save") },
		func(r *model.PropertyRecord) { r.SolarInfo = ptr("save with rooftop solar") },
		func(r *model.PropertyRecord) { r.YearBuilt = ptr(2020) },
		func(r *model.PropertyRecord) { r.Acreage = ptr(5.0) },
	}
	for i, step := range steps {
		step(&r)
		cur := Score(record(r)).Confidence
		assert.GreaterOrEqual(t, cur, prev, "step %d", i)
		assert.LessOrEqual(t, cur, 100.0)
		prev = cur
	}
}

func TestScore_Deterministic(t *testing.T) {
	r := model.PropertyRecord{
		Lat:       ptr(33.3),
		SolarInfo: ptr("Save"),
		YearBuilt: ptr(1970),
		Acreage:   ptr(0.02),
	}
	first := Score(record(r))
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(record(r)))
	}
}
