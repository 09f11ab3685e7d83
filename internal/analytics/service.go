// Package analytics composes dashboard bundles from the storefront, falling
// back through local aggregation to synthetic data.
package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/forecast"
	"github.com/angelmondragon/admin-analytics/internal/analytics/mock"
	"github.com/angelmondragon/admin-analytics/internal/analytics/timerange"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"go.uber.org/multierr"
)

// Service builds dashboard bundles and the per-section insights.
type Service interface {
	// Dashboard always returns a structurally complete bundle.
	Dashboard(ctx context.Context, req types.DashboardRequest) *types.Bundle
	Overview(ctx context.Context, req types.DashboardRequest) *types.OverviewInsight
	Products(ctx context.Context, req types.DashboardRequest) *types.ProductInsight
	Sales(ctx context.Context, req types.DashboardRequest) *types.SalesInsight
	Customers(ctx context.Context, req types.DashboardRequest) *types.CustomerInsight
	// Export prefers the storefront's rendered report and renders the bundle
	// locally when that fails.
	Export(ctx context.Context, req types.DashboardRequest, format enums.ExportFormat) (*Export, error)
}

// ServiceParams configure the analytics service. API and Raw may be nil, in
// which case their strategies are skipped. Without Reports every export is
// rendered locally. Strategies overrides the default chain.
type ServiceParams struct {
	API             AnalyticsFetcher
	Reports         ReportFetcher
	Raw             RawFetcher
	Generator       *mock.Generator
	Forecaster      *forecast.Forecaster
	Sequencer       *Sequencer
	Strategies      []Strategy
	ForecastPeriods int
	Logger          *logger.Logger
	Metrics         *metrics.AnalyticsMetrics
	Rand            func() float64
	Clock           func() time.Time
}

type service struct {
	api             AnalyticsFetcher
	reports         ReportFetcher
	gen             *mock.Generator
	forecaster      *forecast.Forecaster
	sequencer       *Sequencer
	strategies      []Strategy
	forecastPeriods int
	logg            *logger.Logger
	metrics         *metrics.AnalyticsMetrics
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	gen := params.Generator
	if gen == nil {
		gen = mock.New()
	}
	fc := params.Forecaster
	if fc == nil {
		fc = forecast.New()
	}
	seq := params.Sequencer
	if seq == nil {
		seq = NewSequencer()
	}
	random := params.Rand
	if random == nil {
		random = rand.Float64
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	periods := params.ForecastPeriods
	if periods <= 0 {
		periods = forecast.DefaultPeriods
	}

	strategies := params.Strategies
	if len(strategies) == 0 {
		if params.API != nil {
			strategies = append(strategies, &apiStrategy{api: params.API, gen: gen})
		}
		if params.Raw != nil {
			strategies = append(strategies, &localStrategy{raw: params.Raw, agg: aggregate.New(gen, random), gen: gen})
		}
		strategies = append(strategies, &mockStrategy{gen: gen})
	}

	return &service{
		api:             params.API,
		reports:         params.Reports,
		gen:             gen,
		forecaster:      fc,
		sequencer:       seq,
		strategies:      strategies,
		forecastPeriods: periods,
		logg:            params.Logger,
		metrics:         params.Metrics,
		now:             now,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, req types.DashboardRequest) *types.Bundle {
	started := s.now()
	seq := s.sequencer.Begin(req.Session)
	in := BuildInput{
		RangeKey: req.RangeKey,
		Custom:   req.Custom,
		Window:   timerange.Resolve(req.RangeKey, req.Custom, started),
	}
	ctx = s.logg.WithFields(s.logg.WithSession(ctx, req.Session), map[string]any{
		"range":    req.RangeKey,
		"sequence": seq,
	})
	if req.RangeKey != "" && !timerange.IsKnown(req.RangeKey) {
		s.logg.Warn(ctx, "unknown range key; resolving to the last 7 days")
	}

	var failures error
	var bundle *types.Bundle
	src := enums.BundleSourceFallback
	for _, strategy := range s.strategies {
		b, err := s.try(ctx, strategy, in)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", strategy.Source(), err))
			s.metrics.IncTierFailure(strategy.Source().String())
			s.logg.Warn(s.logg.WithFields(ctx, tierFields(strategy.Source(), err)), "analytics strategy failed; trying next")
			continue
		}
		bundle, src = b, strategy.Source()
		break
	}

	if bundle == nil {
		s.logg.Error(ctx, "every analytics strategy failed; serving fixed fallback", failures)
		bundle = FallbackBundle(s.safeSalesSeries(req.RangeKey))
		bundle.SalesForecast = []types.SalesPoint{}
	} else {
		bundle.SalesForecast = s.forecaster.Generate(bundle.SalesTrend, s.periods(req.ForecastPeriods))
	}
	bundle.CombinedSalesData = combine(bundle.SalesTrend, bundle.SalesForecast)

	bundle.Meta = types.BundleMeta{
		Source:      src,
		RangeKey:    req.RangeKey,
		Window:      in.Window.Window(),
		GeneratedAt: s.now().UTC(),
		RequestID:   req.RequestID,
		Sequence:    seq,
		Superseded:  s.sequencer.Superseded(req.Session, seq),
	}
	if bundle.Meta.Superseded {
		s.metrics.IncSuperseded()
	}
	s.metrics.ObserveBuild(src.String(), s.now().Sub(started))
	return bundle
}

// try runs one strategy, turning a panic into an error.
func (s *service) try(ctx context.Context, strategy Strategy, in BuildInput) (bundle *types.Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("strategy panicked: %v", r))
		}
	}()
	bundle, err = strategy.Build(ctx, in)
	if err == nil && bundle == nil {
		err = pkgerrors.New(pkgerrors.CodeInternal, "strategy returned no bundle")
	}
	return bundle, err
}

func (s *service) safeSalesSeries(rangeKey string) (series []types.SalesPoint) {
	defer func() {
		if recover() != nil {
			series = []types.SalesPoint{}
		}
	}()
	return s.gen.SalesSeries(enums.MockGranularityForRange(rangeKey))
}

func (s *service) periods(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.forecastPeriods
}

func combine(history, forecast []types.SalesPoint) []types.SalesPoint {
	out := make([]types.SalesPoint, 0, len(history)+len(forecast))
	out = append(out, history...)
	return append(out, forecast...)
}

func tierFields(src enums.BundleSource, err error) map[string]any {
	fields := pkgerrors.Dump(err).Fields()
	fields["tier"] = src.String()
	return fields
}
