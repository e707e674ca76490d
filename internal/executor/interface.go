package executor

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/types"
)

var ErrExecutorNotFound = errors.New("executor reference is not registered")

// StrategyExecutor performs the actual asset-moving work of a vault's
// strategy. It is trusted only while the coordinator's scope names it; every
// hook receives the scope so the executor can verify it is the authorized
// party before touching anything.
type StrategyExecutor interface {
	// Refresh accrues any pending strategy-side yield or fees so the next
	// valuation snapshot is current. The payload is executor-specific.
	Refresh(scope *Scope, worker string, vault types.VaultID) ([]byte, error)

	// OnDeposit consumes the assets previously transferred to the executor
	// and deploys them into the strategy.
	OnDeposit(scope *Scope, worker string, vault types.VaultID) ([]byte, error)

	// OnWithdraw unwinds enough of the strategy to cover the given share
	// amount and returns the assets actually sent back to the manager.
	OnWithdraw(scope *Scope, worker string, vault types.VaultID, shares sdkmath.Int) (sdk.Coins, error)

	// SetTarget fixes the active worker+vault so a batched instruction list
	// does not need to repeat it on every call.
	SetTarget(scope *Scope, worker string, vault types.VaultID) error

	// ExecuteBatch runs an ordered instruction list atomically as a unit.
	ExecuteBatch(scope *Scope, batch types.InstructionBatch) error

	// SweepToWorker returns any residual assets to the underlying worker.
	SweepToWorker(scope *Scope) error

	// ClearTarget resets the active target set by SetTarget.
	ClearTarget(scope *Scope) error
}

// Resolver maps the strategy reference stored in a vault config to a live
// StrategyExecutor instance.
type Resolver interface {
	Resolve(ref string) (StrategyExecutor, error)
}

// MapResolver resolves executor references from a fixed registration map.
type MapResolver struct {
	mu        sync.Mutex
	executors map[string]StrategyExecutor
}

// NewMapResolver creates an empty resolver.
func NewMapResolver() *MapResolver {
	return &MapResolver{executors: make(map[string]StrategyExecutor)}
}

// Register binds a strategy reference to an implementation.
func (r *MapResolver) Register(ref string, e StrategyExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[ref] = e
}

// Resolve looks up a registered executor.
func (r *MapResolver) Resolve(ref string) (StrategyExecutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.executors[ref]
	if !ok {
		return nil, errors.Join(ErrExecutorNotFound, fmt.Errorf("reference %q", ref))
	}
	return e, nil
}
