package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/monitoring"
	"github.com/sells-group/lead-qualifier/internal/scorer"
)

// LookupOrFetch serves an address from the cache or fetches, scores and
// caches it. A cached entry is returned as stored, labelled "Cached", and
// no source is queried. Concurrent misses for one key share a single fetch,
// which keeps running to completion when a waiting caller gives up.
func (p *Pipeline) LookupOrFetch(ctx context.Context, addr model.Address) (*model.Lookup, error) {
	key := addr.Key()

	entry, err := p.store.GetEntry(ctx, key)
	if err != nil {
		p.metrics.ObserveLookup(monitoring.ResultError)
		return nil, eris.Wrap(err, "pipeline: read cache")
	}
	if entry != nil {
		p.metrics.ObserveLookup(monitoring.ResultHit)
		zap.L().Debug("pipeline: cache hit", zap.String("address", key))
		return &model.Lookup{
			Address:    addr,
			Outcome:    entry.Outcome,
			Score:      entry.Score,
			Confidence: entry.Confidence,
			Source:     model.LabelCached,
			Feedback:   entry.Feedback,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		p.metrics.ObserveLookup(monitoring.ResultError)
		return nil, eris.Wrap(err, "pipeline: lookup cancelled")
	}

	// The fetch outlives any single caller so that one disconnect does not
	// fail every request waiting on the same address.
	ch := p.inflight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		return p.fetchAndStore(fctx, addr)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		p.metrics.ObserveLookup(monitoring.ResultError)
		return nil, eris.Wrap(ctx.Err(), "pipeline: lookup cancelled")
	case res = <-ch:
	}
	if res.Err != nil {
		p.metrics.ObserveLookup(monitoring.ResultError)
		return nil, res.Err
	}
	p.metrics.ObserveLookup(monitoring.ResultMiss)
	if res.Shared {
		zap.L().Debug("pipeline: shared in-flight fetch", zap.String("address", key))
	}
	lookup := *res.Val.(*model.Lookup)
	return &lookup, nil
}

func (p *Pipeline) fetchAndStore(ctx context.Context, addr model.Address) (*model.Lookup, error) {
	key := addr.Key()

	outcome, err := p.Fetch(ctx, addr)
	if err != nil {
		return nil, err
	}
	result := scorer.Score(outcome)
	if !outcome.Failed() {
		c := scorer.Breakdown(*outcome.Record)
		zap.L().Debug("pipeline: score components",
			zap.String("address", key),
			zap.Float64("solar", c.Solar),
			zap.Float64("repair", c.Repair),
			zap.Float64("acreage", c.Acreage),
			zap.Float64("confidence_raw", c.Confidence),
		)
	}

	if err := p.store.PutEntry(ctx, model.CacheEntry{
		Address:    key,
		Outcome:    outcome,
		Score:      result.Score,
		Confidence: result.Confidence,
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: write cache")
	}
	p.metrics.ObserveScore(result.Score)

	label := Label(outcome)
	zap.L().Info("pipeline: fetched",
		zap.String("address", key),
		zap.String("source", label),
		zap.Float64("score", result.Score),
		zap.Float64("confidence", result.Confidence),
	)
	return &model.Lookup{
		Address:    addr,
		Outcome:    outcome,
		Score:      result.Score,
		Confidence: result.Confidence,
		Source:     label,
	}, nil
}

// RecordFeedback attaches feedback to a cached address and returns the
// lookup again. The stored score is not recomputed. Feedback for an address
// that is not cached is dropped and the lookup fetches it as usual.
func (p *Pipeline) RecordFeedback(ctx context.Context, addr model.Address, fb model.Feedback) (*model.Lookup, error) {
	key := addr.Key()

	matched, err := p.store.SetFeedback(ctx, key, fb.String())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: record feedback")
	}
	p.metrics.ObserveFeedback(matched)
	if !matched {
		zap.L().Info("pipeline: feedback for uncached address dropped", zap.String("address", key))
	}
	return p.LookupOrFetch(ctx, addr)
}
