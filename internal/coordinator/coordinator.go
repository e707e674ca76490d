/*

The coordinator is the deposit/withdraw/manage state machine. It sequences
valuation snapshots, delegates execution to the vault's strategy executor
under a temporary trust scope, applies the economic invariants, and issues
share-ledger mutations and fee accrual. All strategy logic lives behind the
executor interface; the coordinator only keeps the accounting honest.

*/

package coordinator

import (
	"errors"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/meridianfi/vaultd/internal/executor"
	"github.com/meridianfi/vaultd/internal/ledger"
	"github.com/meridianfi/vaultd/internal/logger"
	"github.com/meridianfi/vaultd/internal/oracle"
	"github.com/meridianfi/vaultd/internal/registry"
	"github.com/meridianfi/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrReentrancy            = errors.New("another operation is already in progress")
	ErrDepositPaused         = errors.New("deposits are paused for this vault")
	ErrWithdrawPaused        = errors.New("withdrawals are paused for this vault")
	ErrUnauthorizedManager   = errors.New("caller is not an authorized manager")
	ErrAssetNotAllowed       = errors.New("asset is not allow-listed for this vault")
	ErrExceedCapacity        = errors.New("vault capacity exceeded")
	ErrBelowMinimumDeposit   = errors.New("equity change below minimum deposit")
	ErrTooLittleReceived     = errors.New("received less than requested minimum")
	ErrTooMuchEquityLoss     = errors.New("equity loss exceeded tolerance")
	ErrTooMuchLeverage       = errors.New("leverage exceeded maximum")
	ErrWithdrawExceedBalance = errors.New("withdraw amount exceeds share balance")
	ErrInvalidMinAmountOut   = errors.New("minimum output list shorter than results")
	ErrTokenMismatch         = errors.New("returned asset does not align with minimum output entry")
	ErrInvalidRequest        = errors.New("request is invalid")
)

// Coordinator orchestrates all vault operations for one manager instance.
// Public operations are guarded by a single in-progress flag: while one
// operation is executing, any nested entry is rejected outright, so an
// executor calling back in cannot double-spend a valuation snapshot.
type Coordinator struct {
	logger    zerolog.Logger
	registry  *registry.Registry
	ledger    ledger.ShareLedger
	bank      ledger.AssetBank
	oracles   oracle.Resolver
	executors executor.Resolver
	store     Store
	scopes    *executor.ScopeGuard

	mgmtTreasury     string
	withdrawTreasury string

	inProgress atomic.Bool
	now        func() time.Time
}

// Config holds the dependencies for creating a Coordinator.
type Config struct {
	Registry  *registry.Registry
	Ledger    ledger.ShareLedger
	Bank      ledger.AssetBank
	Oracles   oracle.Resolver
	Executors executor.Resolver
	Store     Store

	// ManagementTreasury receives management fee shares.
	ManagementTreasury string
	// WithdrawalTreasury receives withdrawal fee shares.
	WithdrawalTreasury string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// New creates a Coordinator with dependency injection.
func New(cfg Config) (*Coordinator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Coordinator{
		logger:           logger.GetForComponent("tx_coordinator"),
		registry:         cfg.Registry,
		ledger:           cfg.Ledger,
		bank:             cfg.Bank,
		oracles:          cfg.Oracles,
		executors:        cfg.Executors,
		store:            cfg.Store,
		scopes:           executor.NewScopeGuard(),
		mgmtTreasury:     cfg.ManagementTreasury,
		withdrawTreasury: cfg.WithdrawalTreasury,
		now:              now,
	}

	c.logger.Info().
		Str("mgmtTreasury", c.mgmtTreasury).
		Str("withdrawTreasury", c.withdrawTreasury).
		Msg("Transaction coordinator created")
	return c, nil
}

func validateConfig(cfg Config) error {
	if cfg.Registry == nil {
		return errors.New("registry cannot be nil")
	}
	if cfg.Ledger == nil {
		return errors.New("share ledger cannot be nil")
	}
	if cfg.Bank == nil {
		return errors.New("asset bank cannot be nil")
	}
	if cfg.Oracles == nil {
		return errors.New("oracle resolver cannot be nil")
	}
	if cfg.Executors == nil {
		return errors.New("executor resolver cannot be nil")
	}
	if cfg.Store == nil {
		return errors.New("record store cannot be nil")
	}
	if cfg.ManagementTreasury == "" {
		return errors.New("management treasury cannot be empty")
	}
	if cfg.WithdrawalTreasury == "" {
		return errors.New("withdrawal treasury cannot be empty")
	}
	return nil
}

// enter claims the non-reentrant guard. Nested entry is rejected, not queued.
func (c *Coordinator) enter() error {
	if !c.inProgress.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (c *Coordinator) exit() {
	c.inProgress.Store(false)
}

// ScopeActive reports whether an execution scope is currently open.
func (c *Coordinator) ScopeActive() bool {
	return c.scopes.Active()
}

// accrueManagementFee mints the pending management fee to the treasury and
// advances the collection timestamp. It runs at most once per operation and
// always before any equity snapshot used for share-proportion math, so fee
// dilution is reflected consistently for all participants. Zero elapsed time
// performs no mutation.
func (c *Coordinator) accrueManagementFee(cfg *types.VaultConfig, now time.Time, opLog zerolog.Logger) error {
	elapsed := now.Unix() - cfg.LastFeeCollected
	if elapsed <= 0 {
		return nil
	}

	fee := pendingFee(c.ledger.TotalSupply(cfg.VaultID), cfg.ManagementFeeRate, elapsed)
	if fee.IsPositive() {
		if err := c.ledger.Mint(cfg.VaultID, c.mgmtTreasury, fee); err != nil {
			return err
		}
		opLog.Debug().
			Str("fee", fee.String()).
			Int64("elapsedSec", elapsed).
			Msg("Management fee accrued")
	}

	cfg.LastFeeCollected = now.Unix()
	if err := c.registry.AdvanceFeeTimestamp(cfg.VaultID, now.Unix()); err != nil {
		return err
	}
	return c.store.AdvanceFeeTimestamp(cfg.VaultID, now.Unix())
}

// PendingManagementFee returns the management fee that would be minted if an
// operation ran now. Read-only.
func (c *Coordinator) PendingManagementFee(vault types.VaultID) (sdkmath.Int, error) {
	cfg, err := c.registry.Get(vault)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	elapsed := c.now().Unix() - cfg.LastFeeCollected
	if elapsed <= 0 {
		return sdkmath.ZeroInt(), nil
	}
	return pendingFee(c.ledger.TotalSupply(vault), cfg.ManagementFeeRate, elapsed), nil
}

// pendingFee is supply * ratePerSecond * elapsed / FeeScale.
func pendingFee(supply, ratePerSecond sdkmath.Int, elapsedSec int64) sdkmath.Int {
	if supply.IsZero() || ratePerSecond.IsZero() {
		return sdkmath.ZeroInt()
	}
	return supply.Mul(ratePerSecond).MulRaw(elapsedSec).Quo(types.FeeScale)
}

// sharesForEquity computes the shares minted for an equity increase against
// the pre-deposit supply and equity, preserving equity per share. A vault
// with zero supply mints 1:1 with equity units; so does one with zero
// equity, where the proportion is undefined.
func sharesForEquity(equityChanged, supplyBefore, equityBefore sdkmath.Int) sdkmath.Int {
	if supplyBefore.IsZero() || equityBefore.IsZero() {
		return equityChanged
	}
	return equityChanged.Mul(supplyBefore).Quo(equityBefore)
}
