package coordinator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridianfi/vaultd/internal/executor"
	"github.com/meridianfi/vaultd/internal/types"
)

// Manage lets an authorized manager run a batched instruction list against
// the vault's strategy. No share supply mutation occurs here; the operation
// only validates that the delegated actions kept equity loss and leverage
// within the vault's configured bounds.
func (c *Coordinator) Manage(vault types.VaultID, manager string, batch types.InstructionBatch) (types.ManageRecord, error) {
	if err := c.enter(); err != nil {
		return types.ManageRecord{}, err
	}
	defer c.exit()

	opID := uuid.New().String()
	opLog := c.logger.With().
		Str("op_id", opID).
		Uint64("vaultId", uint64(vault)).
		Str("manager", manager).
		Logger()

	cfg, err := c.registry.Get(vault)
	if err != nil {
		return types.ManageRecord{}, err
	}
	if !c.registry.IsManager(vault, manager) {
		return types.ManageRecord{}, errors.Join(ErrUnauthorizedManager, fmt.Errorf("account %s", manager))
	}
	if len(batch.Instructions) == 0 {
		return types.ManageRecord{}, errors.Join(ErrInvalidRequest, errors.New("instruction batch is empty"))
	}

	exec, err := c.executors.Resolve(cfg.Strategy)
	if err != nil {
		return types.ManageRecord{}, err
	}
	orc, err := c.oracles.Resolve(cfg.Oracle)
	if err != nil {
		return types.ManageRecord{}, err
	}

	now := c.now()
	if err := c.accrueManagementFee(&cfg, now, opLog); err != nil {
		return types.ManageRecord{}, fmt.Errorf("fee accrual failed: %w", err)
	}

	equityBefore, _, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.ManageRecord{}, fmt.Errorf("valuation before manage failed: %w", err)
	}

	scope, err := c.scopes.Open(cfg.Strategy, cfg.Worker, vault)
	if err != nil {
		return types.ManageRecord{}, err
	}
	defer scope.Close()

	err = runBatch(exec, scope, cfg, vault, batch)
	scope.Close()
	if err != nil {
		return types.ManageRecord{}, err
	}

	equityAfter, debtAfter, err := orc.GetEquityAndDebt(vault, cfg.Worker)
	if err != nil {
		return types.ManageRecord{}, fmt.Errorf("valuation after manage failed: %w", err)
	}

	// Loss tolerance compares scaled integers directly, no division:
	// equityAfter/equityBefore >= toleranceBps/MaxBPS.
	if equityAfter.MulRaw(types.MaxBPS).LT(equityBefore.MulRaw(int64(cfg.ToleranceBps))) {
		return types.ManageRecord{}, errors.Join(ErrTooMuchEquityLoss,
			fmt.Errorf("equity before %s, after %s, tolerance %d bps", equityBefore, equityAfter, cfg.ToleranceBps))
	}
	// debt/equity+1 <= maxLeverage, i.e. debt <= (maxLeverage-1)*equity.
	if debtAfter.GT(equityAfter.MulRaw(int64(cfg.MaxLeverage - 1))) {
		return types.ManageRecord{}, errors.Join(ErrTooMuchLeverage,
			fmt.Errorf("debt %s, equity %s, max leverage %dx", debtAfter, equityAfter, cfg.MaxLeverage))
	}

	rec := types.ManageRecord{
		OperationID:  opID,
		VaultID:      vault,
		Manager:      manager,
		Batch:        batch,
		EquityBefore: equityBefore,
		EquityAfter:  equityAfter,
		Timestamp:    now,
	}
	if err := c.store.RecordManage(rec); err != nil {
		opLog.Error().Err(err).Msg("Failed to persist manage record")
	}

	opLog.Info().
		Int("instructions", len(batch.Instructions)).
		Str("equityBefore", equityBefore.String()).
		Str("equityAfter", equityAfter.String()).
		Msg("Manage completed")
	return rec, nil
}

// runBatch executes the delegated strategy step: refresh, pin the active
// target, run the instructions as a unit, sweep residuals back to the
// worker, and clear the target again on every path.
func runBatch(exec executor.StrategyExecutor, scope *executor.Scope, cfg types.VaultConfig, vault types.VaultID, batch types.InstructionBatch) error {
	if _, err := exec.Refresh(scope, cfg.Worker, vault); err != nil {
		return fmt.Errorf("executor refresh failed: %w", err)
	}
	if err := exec.SetTarget(scope, cfg.Worker, vault); err != nil {
		return fmt.Errorf("set target failed: %w", err)
	}
	defer func() {
		// The scope is still open here, so the clear is authorized even on
		// failure paths.
		_ = exec.ClearTarget(scope)
	}()

	if err := exec.ExecuteBatch(scope, batch); err != nil {
		return fmt.Errorf("instruction batch failed: %w", err)
	}
	if err := exec.SweepToWorker(scope); err != nil {
		return fmt.Errorf("residual sweep failed: %w", err)
	}
	return nil
}
