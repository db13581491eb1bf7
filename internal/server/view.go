package server

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// NotAvailable is shown for any field no source resolved.
const NotAvailable = "N/A"

var printer = message.NewPrinter(language.AmericanEnglish)

// pageData is the template context for index.html.
type pageData struct {
	Form            model.Address
	Error           string
	Result          *resultView
	FeedbackEnabled bool
}

// resultView is the display projection of a lookup.
type resultView struct {
	Address string
	Street  string
	City    string
	State   string
	Zip     string
	Line    string

	Lat        string
	Lon        string
	Price      string
	YearBuilt  string
	Acreage    string
	HomeType   string
	SolarInfo  string
	Source     string
	Score      string
	Confidence string
	Feedback   string
}

func newResultView(l *model.Lookup) *resultView {
	v := &resultView{
		Address:    l.Address.Key(),
		Street:     l.Address.Street,
		City:       l.Address.City,
		State:      l.Address.State,
		Zip:        l.Address.Zip,
		Line:       l.Address.Line,
		Lat:        NotAvailable,
		Lon:        NotAvailable,
		Price:      NotAvailable,
		YearBuilt:  NotAvailable,
		Acreage:    NotAvailable,
		HomeType:   NotAvailable,
		SolarInfo:  NotAvailable,
		Source:     l.Source,
		Score:      fmt.Sprintf("%.2f", l.Score),
		Confidence: fmt.Sprintf("%.1f", l.Confidence),
	}
	if l.Feedback != nil {
		v.Feedback = *l.Feedback
	}
	if l.Outcome.Failed() {
		return v
	}

	r := l.Outcome.Record
	if r.Lat != nil {
		v.Lat = strconv.FormatFloat(*r.Lat, 'f', -1, 64)
	}
	if r.Lon != nil {
		v.Lon = strconv.FormatFloat(*r.Lon, 'f', -1, 64)
	}
	if r.Price != nil {
		v.Price = printer.Sprintf("$%d", *r.Price)
	}
	if r.YearBuilt != nil {
		v.YearBuilt = strconv.Itoa(*r.YearBuilt)
	}
	if r.Acreage != nil {
		v.Acreage = fmt.Sprintf("%.2f", *r.Acreage)
	}
	if r.HomeType != nil {
		v.HomeType = *r.HomeType
	}
	if r.SolarInfo != nil {
		v.SolarInfo = *r.SolarInfo
	}
	return v
}
