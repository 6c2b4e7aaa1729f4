package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"eventstream/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contract_events (
		id                          TEXT PRIMARY KEY,
		event_type                  TEXT NOT NULL,
		ledger_seq                  BIGINT NOT NULL,
		ledger_closed_at            TIMESTAMPTZ NOT NULL,
		contract_id                 TEXT,
		tx_hash                     TEXT NOT NULL,
		in_successful_contract_call BOOLEAN NOT NULL,
		topics                      JSONB NOT NULL,
		topics_xdr                  TEXT[] NOT NULL,
		value                       JSONB,
		value_xdr                   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS contract_events_contract_ledger_idx
		ON contract_events (contract_id, ledger_seq)`,
	`CREATE INDEX IF NOT EXISTS contract_events_ledger_idx
		ON contract_events (ledger_seq)`,
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// EnsureSchema creates the events table and its indexes when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	slog.Debug("Database schema ready")
	return nil
}

// SaveEvent stores an event. It reports false when the id was already stored.
func (r *PostgresRepository) SaveEvent(ctx context.Context, record *models.EventRecord) (bool, error) {
	topicsJSON, err := json.Marshal(record.Topics)
	if err != nil {
		return false, fmt.Errorf("failed to marshal topics: %w", err)
	}
	valueJSON, err := json.Marshal(record.Value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	var contractID *string
	if record.ContractID != "" {
		contractID = &record.ContractID
	}

	query := `
		INSERT INTO contract_events (
			id, event_type, ledger_seq, ledger_closed_at, contract_id, tx_hash,
			in_successful_contract_call, topics, topics_xdr, value, value_xdr
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		record.ID,
		string(record.Type),
		int64(record.Ledger),
		record.LedgerClosedAt,
		contractID,
		record.TxHash,
		record.InSuccessfulContractCall,
		topicsJSON,
		record.TopicsXDR,
		valueJSON,
		record.ValueXDR,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save event: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListEvents lists stored events in ledger order, optionally for one contract
func (r *PostgresRepository) ListEvents(ctx context.Context, contractID string, limit, offset int) ([]models.EventRecord, error) {
	query := `
		SELECT
			id, event_type, ledger_seq, ledger_closed_at, contract_id, tx_hash,
			in_successful_contract_call, topics, topics_xdr, value, value_xdr
		FROM contract_events
		WHERE ($1::text = '' OR contract_id = $1::text)
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, contractID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.EventRecord{}
	for rows.Next() {
		var (
			rec        models.EventRecord
			eventType  string
			ledgerSeq  int64
			contract   *string
			topicsJSON []byte
			valueJSON  []byte
		)

		err := rows.Scan(
			&rec.ID,
			&eventType,
			&ledgerSeq,
			&rec.LedgerClosedAt,
			&contract,
			&rec.TxHash,
			&rec.InSuccessfulContractCall,
			&topicsJSON,
			&rec.TopicsXDR,
			&valueJSON,
			&rec.ValueXDR,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		rec.Type = models.EventType(eventType)
		rec.Ledger = uint32(ledgerSeq)
		if contract != nil {
			rec.ContractID = *contract
		}
		if err := json.Unmarshal(topicsJSON, &rec.Topics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
		}
		if len(valueJSON) > 0 {
			if err := json.Unmarshal(valueJSON, &rec.Value); err != nil {
				return nil, fmt.Errorf("failed to unmarshal value: %w", err)
			}
		}

		events = append(events, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// GetLastProcessedLedger returns the highest ledger with a stored event
func (r *PostgresRepository) GetLastProcessedLedger(ctx context.Context) (uint32, error) {
	query := `SELECT COALESCE(MAX(ledger_seq), 0) FROM contract_events`

	var sequence int64
	err := r.pool.QueryRow(ctx, query).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get last processed ledger: %w", err)
	}

	return uint32(sequence), nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
