package coordinator

import (
	"sync"

	"github.com/meridianfi/vaultd/internal/types"
)

// Store persists operation records and the fee-collection timestamps the
// coordinator advances. The Postgres implementation lives in internal/state;
// MemoryStore backs tests and dry-run mode.
type Store interface {
	RecordDeposit(rec types.DepositRecord) error
	RecordWithdraw(rec types.WithdrawRecord) error
	RecordManage(rec types.ManageRecord) error
	AdvanceFeeTimestamp(vault types.VaultID, unixSec int64) error
}

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu        sync.Mutex
	Deposits  []types.DepositRecord
	Withdraws []types.WithdrawRecord
	Manages   []types.ManageRecord
}

// NewMemoryStore creates an empty record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) RecordDeposit(rec types.DepositRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deposits = append(s.Deposits, rec)
	return nil
}

func (s *MemoryStore) RecordWithdraw(rec types.WithdrawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Withdraws = append(s.Withdraws, rec)
	return nil
}

func (s *MemoryStore) RecordManage(rec types.ManageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Manages = append(s.Manages, rec)
	return nil
}

func (s *MemoryStore) AdvanceFeeTimestamp(vault types.VaultID, unixSec int64) error {
	return nil
}
