package executor

import (
	"errors"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/types"
)

var ErrScopeNotAuthorized = errors.New("execution scope does not authorize this executor")

// Stub is a StrategyExecutor that performs no real strategy work. Hooks can
// be overridden per test; by default every call verifies the scope and
// succeeds. It also backs dry-run mode, where the operator wants the full
// transaction protocol without touching a live strategy.
type Stub struct {
	// Ref is the strategy reference this stub is registered under; each hook
	// verifies the scope names it.
	Ref string

	RefreshFn    func(worker string, vault types.VaultID) ([]byte, error)
	OnDepositFn  func(worker string, vault types.VaultID) ([]byte, error)
	OnWithdrawFn func(worker string, vault types.VaultID, shares sdkmath.Int) (sdk.Coins, error)
	ExecuteFn    func(batch types.InstructionBatch) error

	mu           sync.Mutex
	targetSet    bool
	sweepCount   int
	refreshCount int
}

// NewStub creates a stub executor answering to the given reference.
func NewStub(ref string) *Stub {
	return &Stub{Ref: ref}
}

func (s *Stub) authorize(scope *Scope, vault types.VaultID) error {
	if !scope.Authorizes(s.Ref, vault) {
		return ErrScopeNotAuthorized
	}
	return nil
}

// Refresh accrues nothing; it verifies the scope and counts the call.
func (s *Stub) Refresh(scope *Scope, worker string, vault types.VaultID) ([]byte, error) {
	if err := s.authorize(scope, vault); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.refreshCount++
	s.mu.Unlock()
	if s.RefreshFn != nil {
		return s.RefreshFn(worker, vault)
	}
	return nil, nil
}

// OnDeposit verifies the scope and delegates to the override if set.
func (s *Stub) OnDeposit(scope *Scope, worker string, vault types.VaultID) ([]byte, error) {
	if err := s.authorize(scope, vault); err != nil {
		return nil, err
	}
	if s.OnDepositFn != nil {
		return s.OnDepositFn(worker, vault)
	}
	return nil, nil
}

// OnWithdraw verifies the scope and delegates to the override if set.
func (s *Stub) OnWithdraw(scope *Scope, worker string, vault types.VaultID, shares sdkmath.Int) (sdk.Coins, error) {
	if err := s.authorize(scope, vault); err != nil {
		return nil, err
	}
	if s.OnWithdrawFn != nil {
		return s.OnWithdrawFn(worker, vault, shares)
	}
	return sdk.Coins{}, nil
}

// SetTarget records the active target for a batched instruction run.
func (s *Stub) SetTarget(scope *Scope, worker string, vault types.VaultID) error {
	if err := s.authorize(scope, vault); err != nil {
		return err
	}
	s.mu.Lock()
	s.targetSet = true
	s.mu.Unlock()
	return nil
}

// ExecuteBatch verifies the scope and delegates to the override if set.
func (s *Stub) ExecuteBatch(scope *Scope, batch types.InstructionBatch) error {
	if err := s.authorize(scope, scope.Vault()); err != nil {
		return err
	}
	if s.ExecuteFn != nil {
		return s.ExecuteFn(batch)
	}
	return nil
}

// SweepToWorker counts the sweep; residuals do not exist in a stub.
func (s *Stub) SweepToWorker(scope *Scope) error {
	if err := s.authorize(scope, scope.Vault()); err != nil {
		return err
	}
	s.mu.Lock()
	s.sweepCount++
	s.mu.Unlock()
	return nil
}

// ClearTarget resets the active target.
func (s *Stub) ClearTarget(scope *Scope) error {
	if err := s.authorize(scope, scope.Vault()); err != nil {
		return err
	}
	s.mu.Lock()
	s.targetSet = false
	s.mu.Unlock()
	return nil
}

// TargetSet reports whether an active target is currently set.
func (s *Stub) TargetSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetSet
}

// SweepCount returns how many residual sweeps were requested.
func (s *Stub) SweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepCount
}

// RefreshCount returns how many refresh hooks ran.
func (s *Stub) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCount
}
