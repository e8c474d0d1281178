package analytics

import (
	"context"
	"log/slog"

	"github.com/platedesk/backoffice/pkg/kafka"
	"github.com/platedesk/backoffice/pkg/metrics"
)

// HandleTransactionEvent returns a Kafka message handler that clears the
// service cache whenever the approved ledger changes, so the next read
// recomputes against fresh rows instead of waiting out the TTL. Malformed
// events are logged and skipped; they never stall the consumer.
func HandleTransactionEvent(svc *Service, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "analytics-invalidation")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[TransactionEvent](value)
		if err != nil {
			logger.Error("failed to decode transaction event", "error", err)
			return nil
		}

		switch event.Type {
		case TransactionApproved, TransactionUpdated, TransactionDeleted:
		default:
			logger.Debug("ignoring transaction event", "type", event.Type)
			return nil
		}

		svc.ClearCache()
		if m != nil {
			m.CacheInvalidations.Inc()
		}
		logger.Debug("cache cleared",
			"event_type", event.Type,
			"transaction_id", event.TransactionID,
		)
		return nil
	}
}
