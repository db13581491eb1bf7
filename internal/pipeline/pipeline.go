// Package pipeline turns an address into a scored, cached property lookup:
// fetch from the geocoder and listing sources, merge, score, persist.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/lead-qualifier/internal/listing"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
	"github.com/sells-group/lead-qualifier/internal/resilience"
	"github.com/sells-group/lead-qualifier/internal/store"
	"github.com/sells-group/lead-qualifier/pkg/geocode"
)

// Pipeline orchestrates fetch, merge, score and cache for one address.
type Pipeline struct {
	store    store.Store
	geocoder geocode.Client
	sources  []listing.Source
	breakers *resilience.ServiceBreakers
	metrics  *monitoring.Metrics
	scrape   bool

	fetchTimeout time.Duration
	inflight     singleflight.Group
}

// DefaultFetchTimeout bounds one shared fetch. It covers the Redfin API
// delay plus a browser fallback on each source.
const DefaultFetchTimeout = 2 * time.Minute

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSources sets the listing sources in merge priority order.
func WithSources(sources ...listing.Source) Option {
	return func(p *Pipeline) {
		p.sources = sources
	}
}

// WithScraping toggles the listing sources. When disabled only the geocoder runs.
func WithScraping(enabled bool) Option {
	return func(p *Pipeline) {
		p.scrape = enabled
	}
}

// WithBreakers sets the per-source circuit breakers.
func WithBreakers(sb *resilience.ServiceBreakers) Option {
	return func(p *Pipeline) {
		p.breakers = sb
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithFetchTimeout bounds a fetch. The fetch is shared by every caller
// waiting on the same address, so it is not tied to any one caller's context.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// New creates a Pipeline. Scraping is enabled by default.
func New(st store.Store, gc geocode.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        st,
		geocoder:     gc,
		scrape:       true,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breakers == nil {
		p.breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return p
}

// Fetch queries the geocoder and every listing source concurrently and
// merges what they return. Source failures degrade to missing fields; the
// only error is cancellation of ctx.
func (p *Pipeline) Fetch(ctx context.Context, addr model.Address) (model.Outcome, error) {
	var (
		g        errgroup.Group
		geo      *geocode.Result
		listings []SourceListing
	)

	g.Go(func() error {
		geo = p.geocode(ctx, addr)
		return nil
	})

	if p.scrape {
		listings = make([]SourceListing, len(p.sources))
		for i, src := range p.sources {
			g.Go(func() error {
				listings[i] = SourceListing{Source: src.Name(), Listing: p.resolve(ctx, src, addr)}
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return model.Outcome{}, eris.Wrap(err, "pipeline: fetch")
	}
	return Merge(geo, listings), nil
}

func (p *Pipeline) geocode(ctx context.Context, addr model.Address) *geocode.Result {
	if p.geocoder == nil {
		return nil
	}
	log := zap.L().With(zap.String("address", addr.Key()), zap.String("source", model.SourceNominatim))
	start := time.Now()

	res, err := p.geocoder.Geocode(ctx, geocode.AddressInput{
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		ZipCode: addr.Zip,
	})
	switch {
	case err != nil:
		log.Error("pipeline: geocode failed", zap.Error(err))
		p.metrics.ObserveSource(model.SourceNominatim, monitoring.OutcomeError, time.Since(start))
		return nil
	case res == nil || !res.Matched:
		log.Warn("pipeline: geocode returned no match")
		p.metrics.ObserveSource(model.SourceNominatim, monitoring.OutcomeEmpty, time.Since(start))
		return nil
	}
	log.Info("pipeline: geocode matched", zap.Float64("lat", res.Latitude), zap.Float64("lon", res.Longitude))
	p.metrics.ObserveSource(model.SourceNominatim, monitoring.OutcomeSuccess, time.Since(start))
	return res
}

func (p *Pipeline) resolve(ctx context.Context, src listing.Source, addr model.Address) model.Listing {
	name := src.Name()
	log := zap.L().With(zap.String("address", addr.Key()), zap.String("source", name))
	cb := p.breakers.Get(name)
	start := time.Now()

	l, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (model.Listing, error) {
		return src.Resolve(ctx, addr)
	})
	p.metrics.SetCircuitState(name, int(cb.State()))

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		log.Warn("pipeline: source skipped, circuit open")
		p.metrics.ObserveSource(name, monitoring.OutcomeSkipped, 0)
		return model.Listing{}
	case err != nil:
		log.Error("pipeline: source failed", zap.Error(err))
		p.metrics.ObserveSource(name, monitoring.OutcomeError, time.Since(start))
		return model.Listing{}
	case l.Empty():
		p.metrics.ObserveSource(name, monitoring.OutcomeEmpty, time.Since(start))
	default:
		p.metrics.ObserveSource(name, monitoring.OutcomeSuccess, time.Since(start))
	}
	return l
}
