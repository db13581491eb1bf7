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
	"github.com/sells-group/lead-qualifier/pkg/redfin"
)

// Redfin page selectors.
const (
	RedfinPriceCSS   = `div[class*="home-main-stats"] span`
	RedfinYearXPath  = `//span[contains(text(), 'Built')]`
	RedfinLotXPath   = `//span[contains(text(), 'Lot size')]`
	RedfinSolarXPath = `//div[contains(., 'Electricity and solar')]//following-sibling::p[contains(., 'Est.')]`
)

// DefaultRedfinURL is the public Redfin site.
const DefaultRedfinURL = "https://www.redfin.com"

// RedfinConfig configures the Redfin source.
type RedfinConfig struct {
	// BaseURL is the site root used to build property page URLs.
	BaseURL string
	// APIDelay is waited after the search call. Zero means no wait.
	APIDelay time.Duration
	// RenderWait is waited after the page loads. Zero means no wait.
	RenderWait time.Duration
}

// RedfinSource reads price, year built, lot size and solar notes from Redfin.
// The structured API is tried first; the browser is used when the API is
// not configured or yields nothing.
type RedfinSource struct {
	api     redfin.Client
	browser Browser
	cfg     RedfinConfig
	clock   clockwork.Clock
}

// NewRedfinSource creates a Redfin source. api may be nil.
func NewRedfinSource(api redfin.Client, browser Browser, cfg RedfinConfig, clock clockwork.Clock) *RedfinSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRedfinURL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedfinSource{api: api, browser: browser, cfg: cfg, clock: clock}
}

// Name implements Source.
func (s *RedfinSource) Name() string { return model.SourceRedfin }

// Resolve implements Source.
func (s *RedfinSource) Resolve(ctx context.Context, addr model.Address) (model.Listing, error) {
	if s.api != nil {
		l, err := s.resolveAPI(ctx, addr)
		switch {
		case ctx.Err() != nil:
			return model.Listing{}, ctx.Err()
		case err != nil:
			zap.L().Error("redfin: api lookup failed", zap.String("address", addr.Key()), zap.Error(err))
		case !l.Empty():
			zap.L().Info("redfin: api lookup succeeded", zap.String("address", addr.Key()))
			return l, nil
		}
	}
	if s.browser == nil {
		return model.Listing{}, nil
	}
	return s.resolveBrowser(ctx, addr)
}

// PageURL builds the property page URL for an address.
func (s *RedfinSource) PageURL(addr model.Address) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		strings.ToUpper(addr.State),
		url.PathEscape(addr.City),
		dashed(addr.Street),
	)
}

func (s *RedfinSource) resolveAPI(ctx context.Context, addr model.Address) (model.Listing, error) {
	var l model.Listing

	search, err := s.api.Search(ctx, addr.Key())
	if err != nil {
		return l, eris.Wrap(err, "redfin: search")
	}
	if err := sleep(ctx, s.clock, s.cfg.APIDelay); err != nil {
		return l, err
	}

	path := search.Get("payload.exactMatch.url").String()
	if path == "" {
		zap.L().Warn("redfin: no exact match", zap.String("address", addr.Key()))
		return l, nil
	}

	info, err := s.api.InitialInfo(ctx, path)
	if err != nil {
		return l, eris.Wrap(err, "redfin: initial info")
	}
	propertyID := info.Get("payload.propertyId").String()
	if propertyID == "" {
		return l, eris.Errorf("redfin: no property id for %s", path)
	}

	facts, err := s.api.BelowTheFold(ctx, propertyID)
	if err != nil {
		return l, eris.Wrap(err, "redfin: below the fold")
	}

	payload := facts.Get("payload")
	if v := payload.Get("price.value"); v.Exists() {
		price := v.Int()
		l.Price = &price
	}
	if v := payload.Get("yearBuilt"); v.Exists() {
		year := int(v.Int())
		l.YearBuilt = &year
	}
	if v := payload.Get("lotSize.value"); v.Exists() {
		acres := v.Float()
		l.Acreage = &acres
	}
	if v := payload.Get("utilityInfo.solarDetails"); v.Exists() && v.String() != "" {
		solar := v.String()
		l.SolarInfo = &solar
	}
	zap.L().Debug("redfin: api payload", zap.String("address", addr.Key()), zap.String("payload", payload.Raw))
	return l, nil
}

func (s *RedfinSource) resolveBrowser(ctx context.Context, addr model.Address) (model.Listing, error) {
	page, err := s.browser.Open(ctx, s.PageURL(addr))
	if err != nil {
		return model.Listing{}, eris.Wrap(err, "redfin: open page")
	}
	defer closePage(page, s.Name())

	if err := sleep(ctx, s.clock, s.cfg.RenderWait); err != nil {
		return model.Listing{}, err
	}

	var l model.Listing
	if text, ok := extract(ctx, page, s.Name(), locator{field: "price", query: RedfinPriceCSS}); ok {
		l.Price = ParsePrice(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "year_built", query: RedfinYearXPath, xpath: true}); ok {
		l.YearBuilt = ParseYearLastToken(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "acreage", query: RedfinLotXPath, xpath: true}); ok {
		l.Acreage = ParseLotSize(text)
	}
	if text, ok := extract(ctx, page, s.Name(), locator{field: "solar_info", query: RedfinSolarXPath, xpath: true}); ok {
		l.SolarInfo = &text
	}

	if l.Empty() {
		if err := checkBlocked(ctx, page, s.Name()); err != nil {
			return model.Listing{}, err
		}
	}

	zap.L().Info("redfin: browser lookup finished",
		zap.String("address", addr.Key()),
		zap.Bool("empty", l.Empty()),
	)
	return l, nil
}
