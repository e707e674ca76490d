package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Operation kinds recorded in the audit trail.
const (
	RecordKindDeposit  = "DEPOSIT"
	RecordKindWithdraw = "WITHDRAW"
	RecordKindManage   = "MANAGE"
)

// DepositRecord is emitted after every successful deposit.
type DepositRecord struct {
	OperationID   string      `json:"operation_id"`
	VaultID       VaultID     `json:"vault_id"`
	Beneficiary   string      `json:"beneficiary"`
	Deposits      sdk.Coins   `json:"deposits"`
	SharesMinted  sdkmath.Int `json:"shares_minted"`
	EquityChanged sdkmath.Int `json:"equity_changed"`
	Timestamp     time.Time   `json:"timestamp"`
}

// WithdrawRecord is emitted after every successful withdrawal.
type WithdrawRecord struct {
	OperationID     string      `json:"operation_id"`
	VaultID         VaultID     `json:"vault_id"`
	Account         string      `json:"account"`
	SharesWithdrawn sdkmath.Int `json:"shares_withdrawn"`
	FeeShares       sdkmath.Int `json:"fee_shares"`
	EquityChanged   sdkmath.Int `json:"equity_changed"`
	Returned        sdk.Coins   `json:"returned"`
	Timestamp       time.Time   `json:"timestamp"`
}

// ManageRecord is emitted after every successful manage operation. No share
// supply mutation occurs during manage; the record exists so delegated
// strategy activity stays auditable.
type ManageRecord struct {
	OperationID  string           `json:"operation_id"`
	VaultID      VaultID          `json:"vault_id"`
	Manager      string           `json:"manager"`
	Batch        InstructionBatch `json:"batch"`
	EquityBefore sdkmath.Int      `json:"equity_before"`
	EquityAfter  sdkmath.Int      `json:"equity_after"`
	Timestamp    time.Time        `json:"timestamp"`
}
