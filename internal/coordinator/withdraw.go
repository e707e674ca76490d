package coordinator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/meridianfi/vaultd/internal/types"
)

// Withdraw redeems shares for the caller's proportional slice of the vault.
// The full requested amount is burned; the fee portion is re-minted to the
// withdrawal treasury, so supply conservation holds in value terms. The
// burn/mint pair happens before the per-asset slippage checks and transfers
// on purpose: reordering would change the failure-atomicity guarantees of
// treasury accounting.
func (c *Coordinator) Withdraw(vault types.VaultID, caller string, shares sdkmath.Int, minAmountsOut sdk.Coins) (types.WithdrawRecord, error) {
	if err := c.enter(); err != nil {
		return types.WithdrawRecord{}, err
	}
	defer c.exit()

	opID := uuid.New().String()
	opLog := c.logger.With().
		Str("op_id", opID).
		Uint64("vaultId", uint64(vault)).
		Str("account", caller).
		Logger()

	cfg, err := c.registry.Get(vault)
	if err != nil {
		return types.WithdrawRecord{}, err
	}
	if cfg.WithdrawPaused {
		return types.WithdrawRecord{}, ErrWithdrawPaused
	}
	if shares.IsNil() || !shares.IsPositive() {
		return types.WithdrawRecord{}, errors.Join(ErrInvalidRequest, errors.New("share amount must be positive"))
	}
	if balance := c.ledger.BalanceOf(vault, caller); balance.LT(shares) {
		return types.WithdrawRecord{}, errors.Join(ErrWithdrawExceedBalance,
			fmt.Errorf("balance %s, requested %s", balance, shares))
	}

	exec, err := c.executors.Resolve(cfg.Strategy)
	if err != nil {
		return types.WithdrawRecord{}, err
	}
	orc, err := c.oracles.Resolve(cfg.Oracle)
	if err != nil {
		return types.WithdrawRecord{}, err
	}

	now := c.now()
	if err := c.accrueManagementFee(&cfg, now, opLog); err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("fee accrual failed: %w", err)
	}

	// Net withdrawable shares; the difference is the withdrawal fee. Fee
	// rate is capped at MaxBPS on registration, so actual never exceeds
	// requested and the fee is non-negative by construction.
	actual := shares
	if !c.registry.IsFeeExempt(caller) {
		actual = shares.MulRaw(types.MaxBPS - int64(cfg.WithdrawalFeeBps)).QuoRaw(types.MaxBPS)
	}
	feeShares := shares.Sub(actual)

	scope, err := c.scopes.Open(cfg.Strategy, cfg.Worker, vault)
	if err != nil {
		return types.WithdrawRecord{}, err
	}
	defer scope.Close()

	if _, err := exec.Refresh(scope, cfg.Worker, vault); err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("executor refresh failed: %w", err)
	}
	equityBefore, _, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("valuation before withdraw failed: %w", err)
	}
	returned, err := exec.OnWithdraw(scope, cfg.Worker, vault, actual)
	if err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("executor withdraw hook failed: %w", err)
	}
	scope.Close()

	equityAfter, _, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("valuation after withdraw failed: %w", err)
	}
	equityChanged := equityBefore.Sub(equityAfter)

	// Burn the full requested amount from the caller; the fee portion is
	// value redirected to the treasury rather than redeemed.
	if err := c.ledger.Burn(vault, caller, shares); err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("share burn failed: %w", err)
	}
	if feeShares.IsPositive() {
		if err := c.ledger.Mint(vault, c.withdrawTreasury, feeShares); err != nil {
			return types.WithdrawRecord{}, fmt.Errorf("fee share mint failed: %w", err)
		}
	}

	if len(minAmountsOut) < len(returned) {
		return types.WithdrawRecord{}, errors.Join(ErrInvalidMinAmountOut,
			fmt.Errorf("%d minimums for %d outputs", len(minAmountsOut), len(returned)))
	}
	for i, coin := range returned {
		min := minAmountsOut[i]
		if coin.Denom != min.Denom {
			return types.WithdrawRecord{}, errors.Join(ErrTokenMismatch,
				fmt.Errorf("position %d: got %s, expected %s", i, coin.Denom, min.Denom))
		}
		if coin.Amount.LT(min.Amount) {
			return types.WithdrawRecord{}, errors.Join(ErrTooLittleReceived,
				fmt.Errorf("position %d: got %s, minimum %s", i, coin.Amount, min.Amount))
		}
	}
	if err := c.bank.TransferToAccount(caller, returned); err != nil {
		return types.WithdrawRecord{}, fmt.Errorf("withdrawal payout failed: %w", err)
	}

	rec := types.WithdrawRecord{
		OperationID:     opID,
		VaultID:         vault,
		Account:         caller,
		SharesWithdrawn: shares,
		FeeShares:       feeShares,
		EquityChanged:   equityChanged,
		Returned:        returned,
		Timestamp:       now,
	}
	if err := c.store.RecordWithdraw(rec); err != nil {
		opLog.Error().Err(err).Msg("Failed to persist withdrawal record")
	}

	opLog.Info().
		Str("sharesWithdrawn", shares.String()).
		Str("feeShares", feeShares.String()).
		Str("equityChanged", equityChanged.String()).
		Msg("Withdrawal completed")
	return rec, nil
}
