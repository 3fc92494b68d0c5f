package feed

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// Source is the subset of Client the fetch strategies need. Tests substitute
// a stub.
type Source interface {
	FetchWindow(ctx context.Context, w Window) (domain.FeatureCollection, error)
	Query(ctx context.Context, p QueryParams) (domain.FeatureCollection, error)
}

// Fetcher retrieves, normalizes, and region-filters one poll's event set.
// The two implementations correspond to the two upstream strategies; callers
// never branch on which one they hold.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Earthquake, error)
}

// RegionFilter describes the region of interest and magnitude floor.
type RegionFilter struct {
	Center       domain.Geo
	RadiusKm     float64
	MinMagnitude float64
}

// Select picks the fetch strategy for the configured magnitude floor: a
// near-zero floor uses the aggregated summary feed with client-side
// filtering, an explicit floor above 0.1 pushes all constraints into the
// query endpoint.
func Select(src Source, region RegionFilter, window Window, clk clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) Fetcher {
	if region.MinMagnitude > 0.1 {
		return NewQueryFetcher(src, region, window, clk, logger, metrics)
	}
	return NewAggregatedFetcher(src, region, window, logger, metrics)
}

// AggregatedFetcher fetches the pre-aggregated global feed and applies the
// region and magnitude filters client-side.
type AggregatedFetcher struct {
	src     Source
	region  RegionFilter
	window  Window
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewAggregatedFetcher(src Source, region RegionFilter, window Window,
	logger *slog.Logger, metrics *observability.Metrics) *AggregatedFetcher {
	return &AggregatedFetcher{src: src, region: region, window: window, logger: logger, metrics: metrics}
}

func (f *AggregatedFetcher) Fetch(ctx context.Context) ([]domain.Earthquake, error) {
	fc, err := f.src.FetchWindow(ctx, f.window)
	if err != nil {
		return nil, err
	}

	events, rejected := domain.NormalizeBatch(fc, f.logger)
	f.metrics.EventsNormalized.Add(float64(len(events)))
	f.metrics.EventsRejected.Add(float64(rejected))
	if rejected > 0 {
		f.logger.Warn("feed batch contained malformed records", "rejected", rejected)
	}

	filtered := events[:0]
	for _, ev := range events {
		if !domain.WithinRadius(f.region.Center, ev.Geo, f.region.RadiusKm) {
			continue
		}
		if ev.Magnitude < f.region.MinMagnitude {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered, nil
}

// QueryFetcher issues a parametrized query with the region, window, and
// magnitude floor bound server-side. No client-side geofilter is needed.
type QueryFetcher struct {
	src     Source
	region  RegionFilter
	window  Window
	clk     clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewQueryFetcher(src Source, region RegionFilter, window Window, clk clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) *QueryFetcher {
	return &QueryFetcher{src: src, region: region, window: window, clk: clk, logger: logger, metrics: metrics}
}

func (f *QueryFetcher) Fetch(ctx context.Context) ([]domain.Earthquake, error) {
	now := f.clk.Now().UTC()
	fc, err := f.src.Query(ctx, QueryParams{
		Center:       f.region.Center,
		RadiusKm:     f.region.RadiusKm,
		Start:        now.Add(-f.window.Duration()),
		End:          now,
		MinMagnitude: f.region.MinMagnitude,
	})
	if err != nil {
		return nil, err
	}

	// The server already constrained region and magnitude; normalization
	// still guards against malformed rows.
	events, rejected := domain.NormalizeBatch(fc, f.logger)
	f.metrics.EventsNormalized.Add(float64(len(events)))
	f.metrics.EventsRejected.Add(float64(rejected))
	if rejected > 0 {
		f.logger.Warn("query batch contained malformed records", "rejected", rejected)
	}
	return events, nil
}
