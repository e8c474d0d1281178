package analytics

import "time"

// TransactionEventType labels ledger changes published by the bookkeeping
// service.
type TransactionEventType string

const (
	TransactionApproved TransactionEventType = "transaction_approved"
	TransactionUpdated  TransactionEventType = "transaction_updated"
	TransactionDeleted  TransactionEventType = "transaction_deleted"
)

// TransactionEvent is the payload on the transaction-events topic. Only
// events touching approved ledger rows can change analytics output.
type TransactionEvent struct {
	Type          TransactionEventType `json:"type"`
	TransactionID string               `json:"transaction_id"`
	Status        string               `json:"status"`
	Amount        float64              `json:"amount"`
	Timestamp     time.Time            `json:"timestamp"`
}
