/*

This file contains the per-vault configuration record and its invariants.
A vault with an empty strategy reference is treated as non-existent.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// VaultID identifies a vault managed by this instance.
type VaultID uint64

// VaultConfig holds the full configuration for a single vault. It is created
// by OpenVault, mutated by owner-gated setters, and never deleted. The
// coordinator only advances LastFeeCollected.
type VaultConfig struct {
	VaultID VaultID `json:"vault_id"`

	// Strategy is the reference of the strategy executor plugin. Empty means
	// the vault does not exist.
	Strategy string `json:"strategy"`
	// Worker is the underlying worker/position reference the executor acts on.
	Worker string `json:"worker"`
	// Oracle is the reference of the valuation oracle for this vault.
	Oracle string `json:"oracle"`

	DepositPaused  bool `json:"deposit_paused"`
	WithdrawPaused bool `json:"withdraw_paused"`

	// MinDeposit and Capacity are stored compressed and expanded at read time.
	MinDeposit Compressed `json:"min_deposit"`
	Capacity   Compressed `json:"capacity"`

	// WithdrawalFeeBps is charged on withdrawn shares, in basis points.
	WithdrawalFeeBps uint64 `json:"withdrawal_fee_bps"`
	// ManagementFeeRate is the per-second fee rate scaled by FeeScale.
	ManagementFeeRate sdkmath.Int `json:"management_fee_rate"`
	// LastFeeCollected is the unix second of the last management fee accrual.
	LastFeeCollected int64 `json:"last_fee_collected"`

	// ToleranceBps bounds equity loss during a manage operation: the operation
	// fails when equityAfter*MaxBPS < equityBefore*ToleranceBps.
	ToleranceBps uint64 `json:"tolerance_bps"`
	// MaxLeverage bounds (debt+equity)/equity after a manage operation.
	MaxLeverage uint64 `json:"max_leverage"`
}

// Exists reports whether this config describes a registered vault.
func (c VaultConfig) Exists() bool {
	return c.Strategy != ""
}
