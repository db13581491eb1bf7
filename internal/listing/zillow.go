package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Zillow page selectors.
const (
	ZillowPriceCSS  = `span[data-testid="price"]`
	ZillowYearXPath = `//span[contains(@class, "dFxMdJ") and contains(text(), "Built in")]`
	ZillowLotXPath  = `//span[contains(@class, "dFxMdJ") and contains(text(), "Lot size") or contains(text(), "Acres")]`
	ZillowTypeXPath = `//span[contains(@class, "dFxMdJ") and (contains(text(), "Single Family") or contains(text(), "Condo") or contains(text(), "Townhouse"))]`
)

// DefaultZillowURL is the public Zillow site.
const DefaultZillowURL = "https://www.zillow.com"

// ZillowSource reads price, year built, lot size and home type from Zillow
// through the browser.
type ZillowSource struct {
	browser    Browser
	baseURL    string
	renderWait time.Duration
	clock      clockwork.Clock
}

// NewZillowSource creates a Zillow source.
func NewZillowSource(browser Browser, baseURL string, renderWait time.Duration, clock clockwork.Clock) *ZillowSource {
	if baseURL == "" {
		baseURL = DefaultZillowURL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ZillowSource{browser: browser, baseURL: baseURL, renderWait: renderWait, clock: clock}
}

// Name implements Source.
func (s *ZillowSource) Name() string { return model.SourceZillow }

// PageURL builds the search-result URL for an address.
func (s *ZillowSource) PageURL(addr model.Address) string {
	return fmt.Sprintf("%s/homes/%s-%s-%s-%s_rb/",
		strings.TrimRight(s.baseURL, "/"),
		dashed(addr.Street),
		url.PathEscape(addr.City),
		strings.ToUpper(addr.State),
		addr.Zip,
	)
}

// Resolve implements Source.
func (s *ZillowSource) Resolve(ctx context.Context, addr model.Address) (model.Listing, error) {
	page, err := s.browser.Open(ctx, s.PageURL(addr))
	if err != nil {
		return model.Listing{}, eris.Wrap(err, "zillow: open page")
	}
	defer closePage(page, s.Name())

	if err := sleep(ctx, s.clock, s.renderWait); err != nil {
		return model.Listing{}, err
	}

	var l model.Listing
	if text, ok := extract(ctx, page, s.Name(), locator{field: "price", query: ZillowPriceCSS}); ok {
		l.Price = ParsePrice(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "year_built", query: ZillowYearXPath, xpath: true}); ok {
		l.YearBuilt = ParseYearBuiltIn(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "acreage", query: ZillowLotXPath, xpath: true}); ok {
		l.Acreage = ParseLotSize(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "home_type", query: ZillowTypeXPath, xpath: true}); ok {
		l.HomeType = &text
	}

	if l.Empty() {
		if err := checkBlocked(ctx, page, s.Name()); err != nil {
			return model.Listing{}, err
		}
	}

	zap.L().Info("zillow: lookup finished",
		zap.String("address", addr.Key()),
		zap.Bool("empty", l.Empty()),
	)
	return l, nil
}
