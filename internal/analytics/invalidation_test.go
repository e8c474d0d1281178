package analytics

import (
	"context"
	"encoding/json"
	"testing"
)

func TestHandleTransactionEventClearsCache(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)
	handler := HandleTransactionEvent(svc, nil)

	if _, err := svc.RealTimeSales(context.Background()); err != nil {
		t.Fatalf("priming call failed: %v", err)
	}

	payload, _ := json.Marshal(TransactionEvent{Type: TransactionApproved, TransactionID: "tx-123"})
	if err := handler(context.Background(), []byte("tx-123"), payload); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if _, err := svc.RealTimeSales(context.Background()); err != nil {
		t.Fatalf("post-invalidation call failed: %v", err)
	}
	if got := store.todayCalls.Load(); got != 2 {
		t.Errorf("expected a fresh store query after invalidation, got %d total queries", got)
	}
}

func TestHandleTransactionEventIgnoresUnknownTypes(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)
	handler := HandleTransactionEvent(svc, nil)

	if _, err := svc.RealTimeSales(context.Background()); err != nil {
		t.Fatalf("priming call failed: %v", err)
	}

	payload, _ := json.Marshal(TransactionEvent{Type: "transaction_viewed"})
	if err := handler(context.Background(), nil, payload); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if _, err := svc.RealTimeSales(context.Background()); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if got := store.todayCalls.Load(); got != 1 {
		t.Errorf("unknown event type must not clear the cache, got %d queries", got)
	}
}

func TestHandleTransactionEventSkipsMalformedPayload(t *testing.T) {
	svc, _ := newTestService(&fakeStore{})
	handler := HandleTransactionEvent(svc, nil)

	if err := handler(context.Background(), nil, []byte("{not json")); err != nil {
		t.Fatalf("malformed payload must be skipped, not fail the consumer: %v", err)
	}
}
