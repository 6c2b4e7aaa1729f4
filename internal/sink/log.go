package sink

import (
	"context"
	"log/slog"

	"eventstream/internal/models"
)

// LogSink writes one structured log line per event
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a new LogSink instance
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Write logs the record
func (s *LogSink) Write(_ context.Context, record models.EventRecord) error {
	s.logger.Info("Event",
		"id", record.ID,
		"type", record.Type,
		"ledger", record.Ledger,
		"contract_id", record.ContractID,
		"tx_hash", record.TxHash,
		"topics", record.Topics,
		"value", record.Value,
	)
	return nil
}

// Name returns the sink name
func (s *LogSink) Name() string {
	return "log"
}
