package snapshots

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platedesk/backoffice/internal/analytics"
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
	return NewStore(&postgres.Client{DB: db}, nil), mock
}

func TestSaveSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analytics_snapshots").
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := analytics.RealTimeMetrics{Date: "2026-06-12", SalesCount: 25, Profit: 180}
	if err := store.SaveSnapshot(context.Background(), snapshot); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveSnapshotWrapsStoreError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analytics_snapshots").
		WillReturnError(errors.New("connection refused"))

	err := store.SaveSnapshot(context.Background(), analytics.RealTimeMetrics{})
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected error to wrap the store-unavailable sentinel, got %v", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM analytics_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"date":"2026-06-12","sales_count":25,"profit":180}`)))

	snapshot, err := store.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("expected a snapshot")
	}
	if snapshot.Date != "2026-06-12" || snapshot.SalesCount != 25 || snapshot.Profit != 180 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM analytics_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	snapshot, err := store.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("empty table must not be an error: %v", err)
	}
	if snapshot != nil {
		t.Errorf("expected nil snapshot, got %+v", snapshot)
	}
}

func TestListSnapshots(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM analytics_snapshots").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"date":"2026-06-12","sales_count":30}`)).
			AddRow([]byte(`{"date":"2026-06-12","sales_count":25}`)))

	snapshots, err := store.ListSnapshots(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].SalesCount != 30 {
		t.Errorf("expected newest snapshot first, got %+v", snapshots[0])
	}
}

func TestListSnapshotsSkipsCorruptRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM analytics_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{not json`)).
			AddRow([]byte(`{"date":"2026-06-12","sales_count":25}`)))

	snapshots, err := store.ListSnapshots(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected corrupt row to be skipped, got %d snapshots", len(snapshots))
	}
}
