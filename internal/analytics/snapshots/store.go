// Package snapshots provides persistent storage and periodic snapshotting
// of real-time sales metrics to PostgreSQL.
package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/platedesk/backoffice/internal/analytics"
	"github.com/platedesk/backoffice/pkg/metrics"
	"github.com/platedesk/backoffice/pkg/postgres"

	apperrors "github.com/platedesk/backoffice/pkg/errors"
)

// Store persists real-time metric snapshots in PostgreSQL.
//
// It requires an `analytics_snapshots` table:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	m      *metrics.Metrics
	logger *slog.Logger
}

// NewStore creates a new snapshot persistence store. m may be nil.
func NewStore(db *postgres.Client, m *metrics.Metrics) *Store {
	return &Store{
		db:     db,
		m:      m,
		logger: slog.Default().With("component", "snapshot-store"),
	}
}

// SaveSnapshot persists a real-time metrics snapshot to the database.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot analytics.RealTimeMetrics) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: saving analytics snapshot: %v", apperrors.ErrStoreUnavailable, err)
	}

	if s.m != nil {
		s.m.SnapshotsSavedTotal.Inc()
	}
	s.logger.Info("analytics snapshot saved",
		"sales_count", snapshot.SalesCount,
		"profit", snapshot.Profit,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot from the database.
// Returns nil, nil if no snapshots exist yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.RealTimeMetrics, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying latest snapshot: %v", apperrors.ErrStoreUnavailable, err)
	}

	var snapshot analytics.RealTimeMetrics
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListSnapshots returns the last N snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.RealTimeMetrics, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing snapshots: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var snapshots []analytics.RealTimeMetrics
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scanning snapshot row: %v", apperrors.ErrStoreUnavailable, err)
		}
		var snapshot analytics.RealTimeMetrics
		if err := json.Unmarshal(data, &snapshot); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

// StartPeriodicSave launches a goroutine that periodically snapshots the
// service's real-time metrics to the database until ctx is cancelled.
func (s *Store) StartPeriodicSave(ctx context.Context, svc *analytics.Service, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snapshot, err := svc.RealTimeSales(ctx)
				if err != nil {
					s.logger.Error("periodic snapshot skipped", "error", err)
					continue
				}
				if err := s.SaveSnapshot(ctx, snapshot); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
