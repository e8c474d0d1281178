package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platedesk/backoffice/pkg/postgres"

	apperrors "github.com/platedesk/backoffice/pkg/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(&postgres.Client{DB: db}), mock
}

func TestAggregateToday(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 6, 12, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs(now, now.Add(-time.Hour), now.Add(-15*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{
			"sales_count", "expenses_count", "sales_total", "expenses_total",
			"sales_average", "sales_max", "sales_last_hour", "sales_last_15_min",
		}).AddRow(25, 4, 300.0, 120.0, 12.0, 48.50, 8, 3))

	agg, err := store.AggregateToday(context.Background(), now)
	if err != nil {
		t.Fatalf("AggregateToday failed: %v", err)
	}

	if agg.SalesCount != 25 || agg.ExpensesCount != 4 {
		t.Errorf("unexpected counts: %+v", agg)
	}
	if agg.SalesTotal != 300 || agg.ExpensesTotal != 120 {
		t.Errorf("unexpected totals: %+v", agg)
	}
	if agg.SalesLastHour != 8 || agg.SalesLast15Min != 3 {
		t.Errorf("unexpected rolling-window counts: %+v", agg)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAggregateTodayWrapsStoreError(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := store.AggregateToday(context.Background(), now)
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected error to wrap the store-unavailable sentinel, got %v", err)
	}
}

func TestAggregateByDateHour(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"date", "hour", "count", "total"}).
			AddRow(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 9, 10, 100.0).
			AddRow(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 12, 40, 600.0).
			AddRow(time.Date(2026, 6, 11, 0, 0, 0, 0, time.UTC), 9, 20, 200.0))

	rows, err := store.AggregateByDateHour(context.Background(), since)
	if err != nil {
		t.Fatalf("AggregateByDateHour failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(rows))
	}
	if rows[1].Hour != 12 || rows[1].TransactionCount != 40 || rows[1].TotalAmount != 600 {
		t.Errorf("unexpected bucket: %+v", rows[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAggregateByDateHourEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"date", "hour", "count", "total"}))

	rows, err := store.AggregateByDateHour(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no buckets, got %d", len(rows))
	}
}

func TestAggregateByHour(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "count", "avg", "total"}).
			AddRow(9, 30, 11.0, 330.0).
			AddRow(12, 80, 15.0, 1200.0))

	rows, err := store.AggregateByHour(context.Background(), since)
	if err != nil {
		t.Fatalf("AggregateByHour failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rows))
	}
	if rows[1].Hour != 12 || rows[1].TransactionCount != 80 || rows[1].AvgAmount != 15 {
		t.Errorf("unexpected bucket: %+v", rows[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAggregateByHourWrapsStoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("server closed the connection"))

	_, err := store.AggregateByHour(context.Background(), time.Now())
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected error to wrap the store-unavailable sentinel, got %v", err)
	}
}
