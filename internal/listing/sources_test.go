package listing_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/listing"
	"github.com/sells-group/lead-qualifier/internal/listing/mocks"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/redfin"
)

var addr = model.Address{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}

func stingrayServer(t *testing.T, facts string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/do/location-autocomplete":
			_, _ = io.WriteString(w, `{}&&{"payload":{"exactMatch":{"url":"/TX/Austin/123-Main-St-78701/home/42"}}}`)
		case "/api/home/details/initialInfo":
			_, _ = io.WriteString(w, `{}&&{"payload":{"propertyId":42}}`)
		case "/api/home/details/belowTheFold":
			_, _ = io.WriteString(w, `{}&&`+facts)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRedfinSource_API(t *testing.T) {
	srv := stingrayServer(t, `{"payload":{
		"price":{"value":450000},
		"yearBuilt":1988,
		"lotSize":{"value":0.3},
		"utilityInfo":{"solarDetails":"Est. $120/mo savings with rooftop solar"}
	}}`)
	browser := mocks.NewMockBrowser(t)

	src := listing.NewRedfinSource(redfin.NewClient(redfin.WithBaseURL(srv.URL)), browser, listing.RedfinConfig{}, nil)
	l, err := src.Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, model.SourceRedfin, src.Name())
	assert.Equal(t, int64(450000), *l.Price)
	assert.Equal(t, 1988, *l.YearBuilt)
	assert.InDelta(t, 0.3, *l.Acreage, 1e-12)
	assert.Equal(t, "Est. $120/mo savings with rooftop solar", *l.SolarInfo)
	assert.Nil(t, l.HomeType)
	browser.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestRedfinSource_APIPartialFields(t *testing.T) {
	srv := stingrayServer(t, `{"payload":{"yearBuilt":2019}}`)

	src := listing.NewRedfinSource(redfin.NewClient(redfin.WithBaseURL(srv.URL)), mocks.NewMockBrowser(t), listing.RedfinConfig{}, nil)
	l, err := src.Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.Nil(t, l.Price)
	assert.Nil(t, l.SolarInfo)
	assert.Equal(t, 2019, *l.YearBuilt)
}

func TestRedfinSource_APIDelayUsesClock(t *testing.T) {
	srv := stingrayServer(t, `{"payload":{"yearBuilt":2019}}`)
	clock := clockwork.NewFakeClock()

	src := listing.NewRedfinSource(
		redfin.NewClient(redfin.WithBaseURL(srv.URL)),
		nil,
		listing.RedfinConfig{APIDelay: 5 * time.Second},
		clock,
	)

	done := make(chan model.Listing, 1)
	go func() {
		l, _ := src.Resolve(context.Background(), addr)
		done <- l
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("resolved before the delay elapsed")
	default:
	}

	clock.Advance(5 * time.Second)
	l := <-done
	assert.Equal(t, 2019, *l.YearBuilt)
}

func TestRedfinSource_APIDelayHonoursCancel(t *testing.T) {
	srv := stingrayServer(t, `{"payload":{}}`)
	clock := clockwork.NewFakeClock()
	src := listing.NewRedfinSource(
		redfin.NewClient(redfin.WithBaseURL(srv.URL)),
		nil,
		listing.RedfinConfig{APIDelay: time.Hour},
		clock,
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := src.Resolve(ctx, addr)
		errc <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestRedfinSource_BrowserFallbackWhenAPIEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}&&{"payload":{"sections":[]}}`)
	}))
	defer srv.Close()

	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.RedfinPriceCSS).Return("$450,000", nil)
	page.On("TextX", mock.Anything, listing.RedfinYearXPath).Return("Built in 1998", nil)
	page.On("TextX", mock.Anything, listing.RedfinLotXPath).Return("Lot size: 8,712 sqft", nil)
	page.On("TextX", mock.Anything, listing.RedfinSolarXPath).Return("", listing.ErrNoSuchElement)
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, "https://www.redfin.com/TX/Austin/123-Main-St").Return(page, nil).Once()

	src := listing.NewRedfinSource(redfin.NewClient(redfin.WithBaseURL(srv.URL)), browser, listing.RedfinConfig{}, nil)
	l, err := src.Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, int64(450000), *l.Price)
	assert.Equal(t, 1998, *l.YearBuilt)
	assert.InDelta(t, 0.2, *l.Acreage, 1e-12)
	assert.Nil(t, l.SolarInfo, "a missing element only drops its own field")
}

func TestRedfinSource_BrowserOnlyWithoutAPI(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, mock.Anything).Return("", listing.ErrNoSuchElement)
	page.On("TextX", mock.Anything, mock.Anything).Return("", errors.New("cdp: target closed"))
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	src := listing.NewRedfinSource(nil, browser, listing.RedfinConfig{BaseURL: "http://redfin.test/"}, nil)
	assert.Equal(t, "http://redfin.test/TX/Round%20Rock/9-Elm-Rd",
		src.PageURL(model.Address{Street: "9 Elm Rd", City: "Round Rock", State: "tx"}))

	l, err := src.Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, l.Empty())
}

func TestRedfinSource_BrowserLaunchFailure(t *testing.T) {
	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(nil, errors.New("chrome not found")).Once()

	src := listing.NewRedfinSource(nil, browser, listing.RedfinConfig{}, nil)
	l, err := src.Resolve(context.Background(), addr)
	assert.ErrorContains(t, err, "redfin: open page")
	assert.True(t, l.Empty())
}

func TestZillowSource_Resolve(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.ZillowPriceCSS).Return("$512,500", nil)
	page.On("TextX", mock.Anything, listing.ZillowYearXPath).Return("Built in 2019", nil)
	page.On("TextX", mock.Anything, listing.ZillowLotXPath).Return("1.5 Acres", nil)
	page.On("TextX", mock.Anything, listing.ZillowTypeXPath).Return("Single Family Residence", nil)
	page.On("Close").Return(errors.New("already closed")).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, "https://www.zillow.com/homes/123-Main-St-Austin-TX-78701_rb/").Return(page, nil).Once()

	src := listing.NewZillowSource(browser, "", 0, nil)
	l, err := src.Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, model.SourceZillow, src.Name())
	assert.Equal(t, int64(512500), *l.Price)
	assert.Equal(t, 2019, *l.YearBuilt)
	assert.InDelta(t, 1.5, *l.Acreage, 1e-12)
	assert.Equal(t, "Single Family Residence", *l.HomeType)
	assert.Nil(t, l.SolarInfo)
}

func TestZillowSource_MissingElements(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.ZillowPriceCSS).Return("$300,000", nil)
	page.On("TextX", mock.Anything, mock.Anything).Return("", listing.ErrNoSuchElement)
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	l, err := listing.NewZillowSource(browser, "http://zillow.test", 0, nil).Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), *l.Price)
	assert.Nil(t, l.YearBuilt)
	assert.Nil(t, l.Acreage)
	assert.Nil(t, l.HomeType)
}

func TestZillowSource_RenderWaitCancelled(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := listing.NewZillowSource(browser, "", time.Hour, clockwork.NewFakeClock()).Resolve(ctx, addr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZillowSource_BlockedPageIsHardFailure(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.ZillowPriceCSS).Return("", listing.ErrNoSuchElement)
	page.On("TextX", mock.Anything, mock.Anything).Return("", listing.ErrNoSuchElement)
	page.On("Text", mock.Anything, listing.BodyCSS).Return("Press & Hold to confirm you are a human (and not a bot).", nil).Once()
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	l, err := listing.NewZillowSource(browser, "", 0, nil).Resolve(context.Background(), addr)
	assert.ErrorIs(t, err, listing.ErrBlocked)
	assert.ErrorContains(t, err, "zillow: captcha")
	assert.True(t, l.Empty())
}

func TestZillowSource_EmptyPageNotBlocked(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.ZillowPriceCSS).Return("", listing.ErrNoSuchElement)
	page.On("TextX", mock.Anything, mock.Anything).Return("", listing.ErrNoSuchElement)
	page.On("Text", mock.Anything, listing.BodyCSS).Return("This home is not currently listed.", nil).Once()
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	l, err := listing.NewZillowSource(browser, "", 0, nil).Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, l.Empty())
}

func TestRedfinSource_BlockedBrowserFallback(t *testing.T) {
	page := mocks.NewMockPage(t)
	page.On("Text", mock.Anything, listing.RedfinPriceCSS).Return("", listing.ErrNoSuchElement)
	page.On("TextX", mock.Anything, mock.Anything).Return("", listing.ErrNoSuchElement)
	page.On("Text", mock.Anything, listing.BodyCSS).Return("Checking your browser before accessing redfin.com", nil).Once()
	page.On("Close").Return(nil).Once()

	browser := mocks.NewMockBrowser(t)
	browser.On("Open", mock.Anything, mock.Anything).Return(page, nil).Once()

	_, err := listing.NewRedfinSource(nil, browser, listing.RedfinConfig{}, nil).Resolve(context.Background(), addr)
	assert.ErrorIs(t, err, listing.ErrBlocked)
	assert.ErrorContains(t, err, "redfin: cloudflare")
}
