package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/listing"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
	"github.com/sells-group/lead-qualifier/internal/pipeline"
	"github.com/sells-group/lead-qualifier/internal/resilience"
	"github.com/sells-group/lead-qualifier/internal/store"
	"github.com/sells-group/lead-qualifier/pkg/geocode"
	"github.com/sells-group/lead-qualifier/pkg/redfin"
)

// pipelineEnv holds the store, metrics and pipeline needed by the serve and
// batch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Metrics  *monitoring.Metrics
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens and migrates the store,
// and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	m := monitoring.NewMetrics()
	breakers := resilience.NewServiceBreakers(
		resilience.FromCircuitConfig(cfg.Resilience.FailureThreshold, cfg.Resilience.ResetTimeoutSecs),
	)

	p := pipeline.New(st, newGeocoder(cfg.Geocode),
		pipeline.WithSources(newSources(cfg)...),
		pipeline.WithScraping(cfg.Scrape.Enabled),
		pipeline.WithBreakers(breakers),
		pipeline.WithMetrics(m),
	)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("scraping", cfg.Scrape.Enabled),
		zap.Bool("redfin_api", cfg.Scrape.RedfinAPIEnabled),
	)

	return &pipelineEnv{Store: st, Pipeline: p, Metrics: m}, nil
}

func newGeocoder(gc config.GeocodeConfig) geocode.Client {
	return geocode.NewClient(
		geocode.WithBaseURL(gc.URL),
		geocode.WithUserAgent(gc.UserAgent),
		geocode.WithTimeout(secs(gc.TimeoutSecs)),
		geocode.WithRateLimit(gc.RateLimit),
	)
}

// newSources builds the listing sources in merge priority order. Both share
// one browser, which identifies itself with the geocoder user agent.
func newSources(c *config.Config) []listing.Source {
	browser := listing.NewRodBrowser(listing.RodConfig{
		Bin:        c.Scrape.BrowserBin,
		Headless:   c.Scrape.Headless,
		UserAgent:  c.Geocode.UserAgent,
		NavTimeout: secs(c.Scrape.NavTimeoutSecs),
	})

	var api redfin.Client
	if c.Scrape.RedfinAPIEnabled {
		api = redfin.NewClient(
			redfin.WithBaseURL(c.Scrape.RedfinAPIURL),
			redfin.WithUserAgent(c.Geocode.UserAgent),
		)
	}

	renderWait := secs(c.Scrape.RenderWaitSecs)
	return []listing.Source{
		listing.NewRedfinSource(api, browser, listing.RedfinConfig{
			BaseURL:    c.Scrape.RedfinURL,
			APIDelay:   secs(c.Scrape.APIDelaySecs),
			RenderWait: renderWait,
		}, nil),
		listing.NewZillowSource(browser, c.Scrape.ZillowURL, renderWait, nil),
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
