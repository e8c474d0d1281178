// Package broadcast pushes the real-time sales snapshot to subscribers on a
// fixed cadence. Each cycle recomputes (or reuses, within the cache TTL) the
// snapshot, publishes it to the sales-metrics Kafka topic for the WebSocket
// push layer, and mirrors it into Redis for pull-based consumers.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/platedesk/backoffice/internal/analytics"
	"github.com/platedesk/backoffice/pkg/kafka"
	"github.com/platedesk/backoffice/pkg/metrics"
	"github.com/platedesk/backoffice/pkg/resilience"
)

// snapshotRedisKey is where the latest snapshot is mirrored.
const snapshotRedisKey = "analytics:realtime:latest"

// Source produces the snapshot to broadcast.
type Source interface {
	RealTimeSales(ctx context.Context) (analytics.RealTimeMetrics, error)
}

// Publisher pushes an event to the sales-metrics topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Mirror stores the latest snapshot for pull-based consumers.
type Mirror interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Broadcaster runs the periodic snapshot push loop.
type Broadcaster struct {
	source    Source
	publisher Publisher
	mirror    Mirror
	breaker   *resilience.CircuitBreaker
	interval  time.Duration
	mirrorTTL time.Duration
	m         *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Broadcaster. mirror may be nil to disable the Redis mirror;
// m may be nil when Prometheus metrics are not wired.
func New(source Source, publisher Publisher, mirror Mirror, interval, mirrorTTL time.Duration, m *metrics.Metrics) *Broadcaster {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Broadcaster{
		source:    source,
		publisher: publisher,
		mirror:    mirror,
		breaker:   resilience.NewCircuitBreaker("snapshot-mirror", resilience.CircuitBreakerConfig{}),
		interval:  interval,
		mirrorTTL: mirrorTTL,
		m:         m,
		logger:    slog.Default().With("component", "broadcaster"),
	}
}

// Run broadcasts on every tick until ctx is cancelled. A failed cycle is
// logged and counted but never stops the loop.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("broadcast loop started", "interval", b.interval)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.broadcastOnce(ctx); err != nil {
				b.recordCycle("error")
				b.logger.Error("broadcast cycle failed", "error", err)
				continue
			}
			b.recordCycle("ok")
		case <-ctx.Done():
			b.logger.Info("broadcast loop stopping", "reason", ctx.Err())
			return
		}
	}
}

func (b *Broadcaster) broadcastOnce(ctx context.Context) error {
	return resilience.WithTimeout(ctx, b.interval, "broadcast-cycle", func(ctx context.Context) error {
		snapshot, err := b.source.RealTimeSales(ctx)
		if err != nil {
			return err
		}

		err = resilience.Retry(ctx, "publish-sales-metrics", resilience.RetryConfig{MaxAttempts: 2}, func() error {
			return b.publisher.Publish(ctx, kafka.Event{
				Key:   snapshot.Date,
				Value: snapshot,
			})
		})
		if err != nil {
			return err
		}

		b.mirrorSnapshot(ctx, snapshot)
		return nil
	})
}

// mirrorSnapshot writes the snapshot to Redis behind a circuit breaker. The
// mirror is best effort; Kafka remains the authoritative push path, so
// mirror failures are logged without failing the cycle.
func (b *Broadcaster) mirrorSnapshot(ctx context.Context, snapshot analytics.RealTimeMetrics) {
	if b.mirror == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		b.logger.Error("failed to marshal snapshot for mirror", "error", err)
		return
	}
	err = b.breaker.Execute(func() error {
		return b.mirror.Set(ctx, snapshotRedisKey, data, b.mirrorTTL)
	})
	if err != nil {
		b.logger.Warn("snapshot mirror write failed", "error", err)
	}
}

func (b *Broadcaster) recordCycle(status string) {
	if b.m != nil {
		b.m.BroadcastsTotal.WithLabelValues(status).Inc()
	}
}
