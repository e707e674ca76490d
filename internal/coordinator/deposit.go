package coordinator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/meridianfi/vaultd/internal/types"
)

// Deposit moves declared assets from the caller to the vault's executor,
// lets the executor deploy them, and mints shares to the beneficiary in
// proportion to the equity the deposit actually added. Share issuance tracks
// measured equity change, never raw token quantities.
func (c *Coordinator) Deposit(vault types.VaultID, caller, beneficiary string, deposits sdk.Coins, minShares sdkmath.Int) (types.DepositRecord, error) {
	if err := c.enter(); err != nil {
		return types.DepositRecord{}, err
	}
	defer c.exit()

	opID := uuid.New().String()
	opLog := c.logger.With().
		Str("op_id", opID).
		Uint64("vaultId", uint64(vault)).
		Str("beneficiary", beneficiary).
		Logger()

	cfg, err := c.registry.Get(vault)
	if err != nil {
		return types.DepositRecord{}, err
	}
	if cfg.DepositPaused {
		return types.DepositRecord{}, ErrDepositPaused
	}
	if len(deposits) == 0 {
		return types.DepositRecord{}, errors.Join(ErrInvalidRequest, errors.New("deposit list is empty"))
	}
	if minShares.IsNil() || minShares.IsNegative() {
		return types.DepositRecord{}, errors.Join(ErrInvalidRequest, errors.New("minimum shares is invalid"))
	}
	for _, coin := range deposits {
		if !c.registry.IsAssetAllowed(vault, coin.Denom) {
			return types.DepositRecord{}, errors.Join(ErrAssetNotAllowed, fmt.Errorf("denom %s", coin.Denom))
		}
	}

	exec, err := c.executors.Resolve(cfg.Strategy)
	if err != nil {
		return types.DepositRecord{}, err
	}
	orc, err := c.oracles.Resolve(cfg.Oracle)
	if err != nil {
		return types.DepositRecord{}, err
	}

	now := c.now()
	if err := c.accrueManagementFee(&cfg, now, opLog); err != nil {
		return types.DepositRecord{}, fmt.Errorf("fee accrual failed: %w", err)
	}

	// Pre-deposit supply, captured after fee accrual so the dilution is in.
	supplyBefore := c.ledger.TotalSupply(vault)

	// Deposit assets go to the executor, not the manager; the executor is
	// responsible for consuming them in its deposit hook.
	if err := c.bank.TransferToExecutor(caller, cfg.Strategy, deposits); err != nil {
		return types.DepositRecord{}, fmt.Errorf("deposit transfer failed: %w", err)
	}

	scope, err := c.scopes.Open(cfg.Strategy, cfg.Worker, vault)
	if err != nil {
		return types.DepositRecord{}, err
	}
	defer scope.Close()

	if _, err := exec.Refresh(scope, cfg.Worker, vault); err != nil {
		return types.DepositRecord{}, fmt.Errorf("executor refresh failed: %w", err)
	}
	equityBefore, _, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.DepositRecord{}, fmt.Errorf("valuation before deposit failed: %w", err)
	}
	if _, err := exec.OnDeposit(scope, cfg.Worker, vault); err != nil {
		return types.DepositRecord{}, fmt.Errorf("executor deposit hook failed: %w", err)
	}
	scope.Close()

	equityAfter, debtAfter, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.DepositRecord{}, fmt.Errorf("valuation after deposit failed: %w", err)
	}
	equityChanged := equityAfter.Sub(equityBefore)

	if equityAfter.Add(debtAfter).GT(cfg.Capacity.Expand()) {
		return types.DepositRecord{}, errors.Join(ErrExceedCapacity,
			fmt.Errorf("equity %s + debt %s exceeds capacity %s", equityAfter, debtAfter, cfg.Capacity.Expand()))
	}
	if equityChanged.LT(cfg.MinDeposit.Expand()) {
		return types.DepositRecord{}, errors.Join(ErrBelowMinimumDeposit,
			fmt.Errorf("equity changed %s, minimum %s", equityChanged, cfg.MinDeposit.Expand()))
	}

	minted := sharesForEquity(equityChanged, supplyBefore, equityBefore)
	if minted.LT(minShares) {
		return types.DepositRecord{}, errors.Join(ErrTooLittleReceived,
			fmt.Errorf("minted %s, minimum %s", minted, minShares))
	}

	if err := c.ledger.Mint(vault, beneficiary, minted); err != nil {
		return types.DepositRecord{}, fmt.Errorf("share mint failed: %w", err)
	}

	rec := types.DepositRecord{
		OperationID:   opID,
		VaultID:       vault,
		Beneficiary:   beneficiary,
		Deposits:      deposits,
		SharesMinted:  minted,
		EquityChanged: equityChanged,
		Timestamp:     now,
	}
	if err := c.store.RecordDeposit(rec); err != nil {
		opLog.Error().Err(err).Msg("Failed to persist deposit record")
	}

	opLog.Info().
		Str("sharesMinted", minted.String()).
		Str("equityChanged", equityChanged.String()).
		Str("supplyBefore", supplyBefore.String()).
		Msg("Deposit completed")
	return rec, nil
}
