package model

import "fmt"

// ScoreResult is the viability score and the heuristic confidence behind it.
type ScoreResult struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// CacheEntry is one row of the property cache.
type CacheEntry struct {
	Address    string  `json:"address"`
	Outcome    Outcome `json:"outcome"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Feedback   *string `json:"feedback,omitempty"`
}

// Feedback is a user correction attached to a cached address.
type Feedback struct {
	Solar   string `json:"solar"`
	Repairs string `json:"repairs"`
}

// String renders the stored feedback text.
func (f Feedback) String() string {
	return fmt.Sprintf("solar:%s,repairs:%s", f.Solar, f.Repairs)
}

// Lookup is what a caller gets back for an address.
type Lookup struct {
	Address    Address `json:"address"`
	Outcome    Outcome `json:"outcome"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Feedback   *string `json:"feedback,omitempty"`
}
