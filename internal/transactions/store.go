// Package transactions provides aggregate queries over the approved
// transaction ledger in PostgreSQL. The analytics service consumes these
// aggregates; raw transaction CRUD lives elsewhere in the platform.
package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/platedesk/backoffice/pkg/postgres"

	apperrors "github.com/platedesk/backoffice/pkg/errors"
)

// DailyAggregate summarises today's approved transactions in a single row.
type DailyAggregate struct {
	SalesCount     int64   `json:"sales_count"`
	ExpensesCount  int64   `json:"expenses_count"`
	SalesTotal     float64 `json:"sales_total"`
	ExpensesTotal  float64 `json:"expenses_total"`
	SalesAverage   float64 `json:"sales_average"`
	SalesMax       float64 `json:"sales_max"`
	SalesLastHour  int64   `json:"sales_last_hour"`
	SalesLast15Min int64   `json:"sales_last_15_min"`
}

// DateHourAggregate is one (calendar day, hour-of-day) bucket of approved
// sales, used to build hourly historical profiles.
type DateHourAggregate struct {
	Date             time.Time
	Hour             int
	TransactionCount int64
	TotalAmount      float64
}

// HourAggregate is one hour-of-day bucket of approved sales across the whole
// query window, used for peak-hour ranking.
type HourAggregate struct {
	Hour             int
	TransactionCount int64
	AvgAmount        float64
	TotalAmount      float64
}

// Store runs aggregate queries against the transactions table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a transaction aggregate store backed by PostgreSQL.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "transaction-store"),
	}
}

// AggregateToday returns the aggregate over today's approved transactions.
// "Today" is the calendar day of the supplied instant in the process's
// location; the rolling-hour and rolling-15-minute counts are relative to
// the same instant. Hours with no transactions yield all-zero fields.
func (s *Store) AggregateToday(ctx context.Context, now time.Time) (DailyAggregate, error) {
	var agg DailyAggregate

	err := s.db.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE type = 'sale'),
			COUNT(*) FILTER (WHERE type = 'expense'),
			COALESCE(SUM(amount) FILTER (WHERE type = 'sale'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0),
			COALESCE(AVG(amount) FILTER (WHERE type = 'sale'), 0),
			COALESCE(MAX(amount) FILTER (WHERE type = 'sale'), 0),
			COUNT(*) FILTER (WHERE type = 'sale' AND transaction_date >= $2),
			COUNT(*) FILTER (WHERE type = 'sale' AND transaction_date >= $3)
		FROM transactions
		WHERE status = 'approved' AND transaction_date::date = $1::date`,
		now, now.Add(-time.Hour), now.Add(-15*time.Minute),
	).Scan(
		&agg.SalesCount,
		&agg.ExpensesCount,
		&agg.SalesTotal,
		&agg.ExpensesTotal,
		&agg.SalesAverage,
		&agg.SalesMax,
		&agg.SalesLastHour,
		&agg.SalesLast15Min,
	)
	if err != nil {
		return DailyAggregate{}, fmt.Errorf("%w: aggregating today's transactions: %v", apperrors.ErrStoreUnavailable, err)
	}
	return agg, nil
}

// AggregateByDateHour returns approved sales since the given instant grouped
// by (calendar day, hour-of-day), ordered by day then hour. Buckets with no
// sales are absent from the result.
func (s *Store) AggregateByDateHour(ctx context.Context, since time.Time) ([]DateHourAggregate, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT
			transaction_date::date,
			EXTRACT(HOUR FROM transaction_date)::int,
			COUNT(*),
			COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE status = 'approved' AND type = 'sale' AND transaction_date >= $1
		GROUP BY 1, 2
		ORDER BY 1, 2`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregating sales by date and hour: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var aggs []DateHourAggregate
	for rows.Next() {
		var agg DateHourAggregate
		if err := rows.Scan(&agg.Date, &agg.Hour, &agg.TransactionCount, &agg.TotalAmount); err != nil {
			return nil, fmt.Errorf("%w: scanning date-hour aggregate row: %v", apperrors.ErrStoreUnavailable, err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating date-hour aggregate rows: %v", apperrors.ErrStoreUnavailable, err)
	}
	return aggs, nil
}

// AggregateByHour returns approved sales since the given instant grouped
// strictly by hour-of-day, at most 24 rows, in ascending hour order. Hours
// with no sales are absent from the result.
func (s *Store) AggregateByHour(ctx context.Context, since time.Time) ([]HourAggregate, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT
			EXTRACT(HOUR FROM transaction_date)::int,
			COUNT(*),
			COALESCE(AVG(amount), 0),
			COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE status = 'approved' AND type = 'sale' AND transaction_date >= $1
		GROUP BY 1
		ORDER BY 1`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregating sales by hour: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var aggs []HourAggregate
	for rows.Next() {
		var agg HourAggregate
		if err := rows.Scan(&agg.Hour, &agg.TransactionCount, &agg.AvgAmount, &agg.TotalAmount); err != nil {
			return nil, fmt.Errorf("%w: scanning hour aggregate row: %v", apperrors.ErrStoreUnavailable, err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating hour aggregate rows: %v", apperrors.ErrStoreUnavailable, err)
	}
	return aggs, nil
}
