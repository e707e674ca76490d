// ./internal/state/records_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vaultd/internal/types"
)

// OperationRecord is a persisted audit row for a completed operation.
type OperationRecord struct {
	RecordID    int64           `json:"record_id"`
	Kind        string          `json:"kind"`
	VaultID     types.VaultID   `json:"vault_id"`
	OperationID string          `json:"operation_id"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SaveOperationRecord inserts one audit row and returns its id.
func SaveOperationRecord(kind string, vault types.VaultID, operationID string, payload any, ts time.Time) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s record payload: %w", kind, err)
	}

	var recordID int64
	err = DB.QueryRow(`
        INSERT INTO operation_records (kind, vault_id, operation_id, payload, record_timestamp)
        VALUES ($1, $2, $3, $4, $5) RETURNING record_id;`,
		kind, uint64(vault), operationID, payloadJSON, ts,
	).Scan(&recordID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s record: %w", kind, err)
	}

	log.Debug().
		Str("kind", kind).
		Uint64("vault_id", uint64(vault)).
		Int64("record_id", recordID).
		Msg("Saved operation record")
	return recordID, nil
}

// LoadRecentRecords returns the most recent audit rows, newest first.
func LoadRecentRecords(limit int) ([]OperationRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
        SELECT record_id, kind, vault_id, operation_id, payload, record_timestamp
        FROM operation_records
        ORDER BY record_timestamp DESC
        LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation records: %w", err)
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		var rec OperationRecord
		var vaultID uint64
		if err := rows.Scan(&rec.RecordID, &rec.Kind, &vaultID, &rec.OperationID, &rec.Payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan operation record: %w", err)
		}
		rec.VaultID = types.VaultID(vaultID)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AuditStore adapts the global database to the coordinator's Store interface.
type AuditStore struct{}

// NewAuditStore creates the Postgres-backed record store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) RecordDeposit(rec types.DepositRecord) error {
	_, err := SaveOperationRecord(types.RecordKindDeposit, rec.VaultID, rec.OperationID, rec, rec.Timestamp)
	return err
}

func (s *AuditStore) RecordWithdraw(rec types.WithdrawRecord) error {
	_, err := SaveOperationRecord(types.RecordKindWithdraw, rec.VaultID, rec.OperationID, rec, rec.Timestamp)
	return err
}

func (s *AuditStore) RecordManage(rec types.ManageRecord) error {
	_, err := SaveOperationRecord(types.RecordKindManage, rec.VaultID, rec.OperationID, rec, rec.Timestamp)
	return err
}

func (s *AuditStore) AdvanceFeeTimestamp(vault types.VaultID, unixSec int64) error {
	return UpdateFeeTimestamp(vault, unixSec)
}
