// Package analytics computes real-time sales metrics, hourly historical
// profiles, a same-day forecast, and a peak-hour ranking from the approved
// transaction ledger. Real-time metrics are cached in process for a short
// TTL; forecasts and peak-hour rankings are recomputed on every call.
package analytics

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/platedesk/backoffice/internal/transactions"
	"github.com/platedesk/backoffice/pkg/config"
	"github.com/platedesk/backoffice/pkg/metrics"
	"github.com/platedesk/backoffice/pkg/tracing"
)

// realTimeCacheKey is the single metric key used for today's snapshot. The
// cache is process-wide; all callers share the same snapshot.
const realTimeCacheKey = "realtime_sales"

// Store is the transaction-ledger query surface the service depends on.
// *transactions.Store satisfies it; tests substitute fakes.
type Store interface {
	AggregateToday(ctx context.Context, now time.Time) (transactions.DailyAggregate, error)
	AggregateByDateHour(ctx context.Context, since time.Time) ([]transactions.DateHourAggregate, error)
	AggregateByHour(ctx context.Context, since time.Time) ([]transactions.HourAggregate, error)
}

type cacheEntry struct {
	payload  RealTimeMetrics
	storedAt time.Time
}

// Service owns the metrics cache and serves the three derived views over the
// transaction ledger. Construct once at process start; the cache lives for
// the lifetime of the process.
type Service struct {
	store Store
	cfg   config.AnalyticsConfig
	m     *metrics.Metrics

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64

	logger *slog.Logger

	// Overridable in tests.
	now    func() time.Time
	multFn func() float64
}

// NewService creates the analytics service. m may be nil when Prometheus
// metrics are not wired (tests).
func NewService(store Store, cfg config.AnalyticsConfig, m *metrics.Metrics) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.ForecastWindowDays <= 0 {
		cfg.ForecastWindowDays = 30
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		m:      m,
		cache:  make(map[string]cacheEntry),
		logger: slog.Default().With("component", "analytics-service"),
		now:    time.Now,
		multFn: trendMultiplier,
	}
}

// trendMultiplier draws uniformly from [0.9, 1.1]. The jitter is deliberate:
// it keeps repeated forecasts from collapsing into a flat line.
func trendMultiplier() float64 {
	return 0.9 + rand.Float64()*0.2
}

// RealTimeSales returns today's sales snapshot, served from the in-process
// cache while the entry is younger than the TTL. On a miss, concurrent
// callers are collapsed into a single store query; the cache entry is only
// overwritten after a successful recompute, so a failed refresh never
// clobbers the last good snapshot.
func (s *Service) RealTimeSales(ctx context.Context) (RealTimeMetrics, error) {
	if payload, ok := s.cached(realTimeCacheKey); ok {
		s.recordHit()
		return payload, nil
	}

	v, err, _ := s.group.Do(realTimeCacheKey, func() (any, error) {
		// A racing caller may have refreshed the entry while this one
		// waited on the flight group.
		if payload, ok := s.cached(realTimeCacheKey); ok {
			s.recordHit()
			return payload, nil
		}
		s.recordMiss()
		payload, err := s.computeRealTime(ctx)
		if err != nil {
			return nil, err
		}
		s.put(realTimeCacheKey, payload)
		return payload, nil
	})
	if err != nil {
		return RealTimeMetrics{}, err
	}
	return v.(RealTimeMetrics), nil
}

func (s *Service) computeRealTime(ctx context.Context) (RealTimeMetrics, error) {
	now := s.now()

	spanCtx, span := tracing.StartChildSpan(ctx, "store.aggregate_today")
	start := time.Now()
	agg, err := s.store.AggregateToday(spanCtx, now)
	s.observeQuery("aggregate_today", start)
	span.End()
	if err != nil {
		s.storeError("aggregate_today")
		return RealTimeMetrics{}, err
	}

	return RealTimeMetrics{
		Date:           now.Format("2006-01-02"),
		SalesCount:     agg.SalesCount,
		ExpensesCount:  agg.ExpensesCount,
		SalesTotal:     agg.SalesTotal,
		ExpensesTotal:  agg.ExpensesTotal,
		SalesAverage:   agg.SalesAverage,
		SalesMax:       agg.SalesMax,
		Profit:         agg.SalesTotal - agg.ExpensesTotal,
		SalesLastHour:  agg.SalesLastHour,
		SalesLast15Min: agg.SalesLast15Min,
		// Extrapolated from the rolling-hour count, not the 15-minute
		// count; callers must not assume it matches SalesLast15Min.
		SalesVelocity: float64(agg.SalesLastHour) / 4,
		Timestamp:     now.Format(time.RFC3339),
	}, nil
}

// Forecast projects transaction counts and revenue for the remaining hours
// of today from the trailing forecast window. Never cached.
func (s *Service) Forecast(ctx context.Context) (ForecastResult, error) {
	now := s.now()
	since := now.AddDate(0, 0, -s.cfg.ForecastWindowDays)

	spanCtx, span := tracing.StartChildSpan(ctx, "store.aggregate_by_date_hour")
	start := time.Now()
	rows, err := s.store.AggregateByDateHour(spanCtx, since)
	s.observeQuery("aggregate_by_date_hour", start)
	span.End()
	if err != nil {
		s.storeError("aggregate_by_date_hour")
		return ForecastResult{}, err
	}

	profile := buildHourlyProfile(rows)

	points := make([]ForecastPoint, 0, 24-now.Hour())
	for hour := now.Hour(); hour <= 23; hour++ {
		entry := profile[hour]
		multiplier := s.multFn()
		points = append(points, ForecastPoint{
			Hour:                  hour,
			PredictedTransactions: int64(math.Round(entry.AvgTransactions * multiplier)),
			PredictedAmount:       entry.AvgAmount * multiplier,
			Confidence:            pointConfidence(entry.DataPoints),
		})
	}

	return ForecastResult{
		Forecast:       points,
		HistoricalData: profile,
		Confidence:     overallConfidence(rows),
	}, nil
}

// PeakHours ranks hours of day by approved sales volume over the trailing
// forecast window. The busiest quartile (at least one hour when any rows
// exist) is reported as the peak set alongside the full ranking.
func (s *Service) PeakHours(ctx context.Context) (PeakHoursAnalysis, error) {
	since := s.now().AddDate(0, 0, -s.cfg.ForecastWindowDays)

	spanCtx, span := tracing.StartChildSpan(ctx, "store.aggregate_by_hour")
	start := time.Now()
	rows, err := s.store.AggregateByHour(spanCtx, since)
	s.observeQuery("aggregate_by_hour", start)
	span.End()
	if err != nil {
		s.storeError("aggregate_by_hour")
		return PeakHoursAnalysis{}, err
	}

	all := make([]HourStat, len(rows))
	for i, row := range rows {
		all[i] = HourStat{
			Hour:             row.Hour,
			TransactionCount: row.TransactionCount,
			AvgAmount:        row.AvgAmount,
			TotalAmount:      row.TotalAmount,
		}
	}
	// Stable sort keeps the store's natural hour order for tied counts.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TransactionCount > all[j].TransactionCount
	})

	peakCount := int(math.Ceil(float64(len(all)) * 0.25))
	return PeakHoursAnalysis{
		PeakHours: all[:peakCount],
		AllHours:  all,
	}, nil
}

// ClearCache drops every cached entry. The next read is guaranteed to hit
// the store.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}

// Stats returns cache hit/miss counters.
func (s *Service) Stats() CacheStats {
	return CacheStats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

func (s *Service) cached(key string) (RealTimeMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return RealTimeMetrics{}, false
	}
	if s.now().Sub(entry.storedAt) >= s.cfg.CacheTTL {
		return RealTimeMetrics{}, false
	}
	return entry.payload, true
}

func (s *Service) put(key string, payload RealTimeMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{payload: payload, storedAt: s.now()}
}

func (s *Service) recordHit() {
	s.hits.Add(1)
	if s.m != nil {
		s.m.AnalyticsCacheHits.Inc()
	}
}

func (s *Service) recordMiss() {
	s.misses.Add(1)
	if s.m != nil {
		s.m.AnalyticsCacheMisses.Inc()
	}
}

func (s *Service) observeQuery(query string, start time.Time) {
	if s.m != nil {
		s.m.StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) storeError(query string) {
	if s.m != nil {
		s.m.StoreQueryErrors.WithLabelValues(query).Inc()
	}
}

// buildHourlyProfile averages (day, hour) sales buckets into a 24-entry
// hour-of-day profile. All 24 hours are always present; hours with no
// history carry zero-valued entries.
func buildHourlyProfile(rows []transactions.DateHourAggregate) HourlyProfile {
	type sums struct {
		transactions int64
		amount       float64
		dataPoints   int
	}
	byHour := make(map[int]sums, 24)
	for _, row := range rows {
		s := byHour[row.Hour]
		s.transactions += row.TransactionCount
		s.amount += row.TotalAmount
		s.dataPoints++
		byHour[row.Hour] = s
	}

	profile := make(HourlyProfile, 24)
	for hour := 0; hour < 24; hour++ {
		s := byHour[hour]
		entry := HourlyProfileEntry{DataPoints: s.dataPoints}
		if s.dataPoints > 0 {
			entry.AvgTransactions = float64(s.transactions) / float64(s.dataPoints)
			entry.AvgAmount = s.amount / float64(s.dataPoints)
		}
		profile[hour] = entry
	}
	return profile
}

func pointConfidence(dataPoints int) string {
	switch {
	case dataPoints > 5:
		return ConfidenceHigh
	case dataPoints > 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// overallConfidence rates the whole forecast from the size and date span of
// the historical sample.
func overallConfidence(rows []transactions.DateHourAggregate) string {
	if len(rows) == 0 {
		return ConfidenceLow
	}
	minDate, maxDate := rows[0].Date, rows[0].Date
	for _, row := range rows[1:] {
		if row.Date.Before(minDate) {
			minDate = row.Date
		}
		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}
	spanDays := int(maxDate.Sub(minDate).Hours() / 24)

	switch {
	case len(rows) > 100 && spanDays > 14:
		return ConfidenceHigh
	case len(rows) > 50 && spanDays > 7:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
