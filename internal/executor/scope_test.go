package executor

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vaultd/internal/types"
)

const scopeVault = types.VaultID(7)

func TestGuardHoldsSingleScope(t *testing.T) {
	g := NewScopeGuard()

	s, err := g.Open("strat-1", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !g.Active() {
		t.Error("guard not active with open scope")
	}

	if _, err := g.Open("strat-2", "worker-2", scopeVault); !errors.Is(err, ErrScopeAlreadyOpen) {
		t.Errorf("second open: error = %v, want ErrScopeAlreadyOpen", err)
	}

	s.Close()
	if g.Active() {
		t.Error("guard still active after close")
	}
	if _, err := g.Open("strat-2", "worker-2", scopeVault); err != nil {
		t.Errorf("open after close: %v", err)
	}
}

func TestScopeAuthorizes(t *testing.T) {
	g := NewScopeGuard()
	s, err := g.Open("strat-1", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !s.Authorizes("strat-1", scopeVault) {
		t.Error("scope must authorize its own executor and vault")
	}
	if s.Authorizes("strat-2", scopeVault) {
		t.Error("scope must not authorize a different executor")
	}
	if s.Authorizes("strat-1", scopeVault+1) {
		t.Error("scope must not authorize a different vault")
	}

	s.Close()
	if s.Authorizes("strat-1", scopeVault) {
		t.Error("closed scope must authorize nothing")
	}
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	g := NewScopeGuard()
	s, err := g.Open("strat-1", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.Close()
	s.Close()

	// A stale close must not tear down a newer scope.
	s2, err := g.Open("strat-2", "worker-2", scopeVault)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s.Close()
	if !g.Active() {
		t.Error("stale close released the newer scope")
	}
	s2.Close()
}

func TestNilScopeAuthorizesNothing(t *testing.T) {
	var s *Scope
	if s.Authorizes("strat-1", scopeVault) {
		t.Error("nil scope must authorize nothing")
	}
	s.Close() // must not panic
}

func TestStubRejectsForeignScope(t *testing.T) {
	g := NewScopeGuard()
	stub := NewStub("strat-1")

	s, err := g.Open("strat-2", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := stub.Refresh(s, "worker-1", scopeVault); !errors.Is(err, ErrScopeNotAuthorized) {
		t.Errorf("Refresh: error = %v, want ErrScopeNotAuthorized", err)
	}
	if _, err := stub.OnDeposit(s, "worker-1", scopeVault); !errors.Is(err, ErrScopeNotAuthorized) {
		t.Errorf("OnDeposit: error = %v, want ErrScopeNotAuthorized", err)
	}
	if _, err := stub.OnWithdraw(s, "worker-1", scopeVault, sdkmath.NewInt(1)); !errors.Is(err, ErrScopeNotAuthorized) {
		t.Errorf("OnWithdraw: error = %v, want ErrScopeNotAuthorized", err)
	}
	if err := stub.ExecuteBatch(s, types.InstructionBatch{}); !errors.Is(err, ErrScopeNotAuthorized) {
		t.Errorf("ExecuteBatch: error = %v, want ErrScopeNotAuthorized", err)
	}
}

func TestStubRejectsClosedScope(t *testing.T) {
	g := NewScopeGuard()
	stub := NewStub("strat-1")

	s, err := g.Open("strat-1", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	if _, err := stub.Refresh(s, "worker-1", scopeVault); !errors.Is(err, ErrScopeNotAuthorized) {
		t.Errorf("Refresh on closed scope: error = %v, want ErrScopeNotAuthorized", err)
	}
}

func TestStubTargetLifecycle(t *testing.T) {
	g := NewScopeGuard()
	stub := NewStub("strat-1")

	s, err := g.Open("strat-1", "worker-1", scopeVault)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := stub.SetTarget(s, "worker-1", scopeVault); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if !stub.TargetSet() {
		t.Error("target not set")
	}
	if err := stub.SweepToWorker(s); err != nil {
		t.Fatalf("SweepToWorker: %v", err)
	}
	if err := stub.ClearTarget(s); err != nil {
		t.Fatalf("ClearTarget: %v", err)
	}
	if stub.TargetSet() {
		t.Error("target still set after clear")
	}
	if stub.SweepCount() != 1 {
		t.Errorf("SweepCount %d, want 1", stub.SweepCount())
	}
}

func TestMapResolver(t *testing.T) {
	r := NewMapResolver()
	stub := NewStub("strat-1")
	r.Register("strat-1", stub)

	got, err := r.Resolve("strat-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != StrategyExecutor(stub) {
		t.Error("resolved a different executor")
	}

	if _, err := r.Resolve("missing"); !errors.Is(err, ErrExecutorNotFound) {
		t.Errorf("error = %v, want ErrExecutorNotFound", err)
	}
}
