package coordinator

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/types"
)

func TestDepositFirstDepositorMintsOneToOne(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(5000, 0)
	rec := f.deposit(t, "alice", "alice", 5000)

	if !rec.SharesMinted.Equal(sdkmath.NewInt(5000)) {
		t.Errorf("SharesMinted %s, want 5000", rec.SharesMinted)
	}
	if !rec.EquityChanged.Equal(sdkmath.NewInt(5000)) {
		t.Errorf("EquityChanged %s, want 5000", rec.EquityChanged)
	}
	if got := f.shares.BalanceOf(testVault, "alice"); !got.Equal(sdkmath.NewInt(5000)) {
		t.Errorf("balance %s, want 5000", got)
	}
}

func TestDepositMintsProportionalToEquityChange(t *testing.T) {
	f := newFixture(t)

	// Seed the ledger at a supply/equity ratio away from 1:1 so the
	// proportion is visible: 1000 shares backed by 5000 equity.
	if err := f.shares.Mint(testVault, "seed", sdkmath.NewInt(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	f.oracle.Set(testVault, sdkmath.NewInt(5000), sdkmath.ZeroInt())

	// Equity grows by 2500, half the pre-deposit equity, so the beneficiary
	// gets half the pre-deposit supply.
	f.setEquityOnDeposit(7500, 0)
	rec := f.deposit(t, "alice", "alice", 2500)

	if !rec.SharesMinted.Equal(sdkmath.NewInt(500)) {
		t.Errorf("SharesMinted %s, want 500", rec.SharesMinted)
	}
}

func TestDepositSharesGoToBeneficiary(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(5000, 0)
	f.deposit(t, "alice", "bob", 5000)

	if got := f.shares.BalanceOf(testVault, "bob"); !got.Equal(sdkmath.NewInt(5000)) {
		t.Errorf("beneficiary balance %s, want 5000", got)
	}
	if got := f.shares.BalanceOf(testVault, "alice"); !got.IsZero() {
		t.Errorf("caller balance %s, want 0", got)
	}
}

func TestDepositMovesAssetsToExecutor(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(5000, 0)
	f.deposit(t, "alice", "alice", 5000)

	if got := f.bank.Balance("alice"); !got.IsZero() {
		t.Errorf("caller still holds %s", got)
	}
	want := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	if got := f.bank.Balance(testStrategy); !got.Equal(want) {
		t.Errorf("executor holds %s, want %s", got, want)
	}
}

func TestDepositMinimumBoundary(t *testing.T) {
	f := newFixture(t)

	// Minimum deposit expands to 1000. An equity change one unit short is
	// rejected; exactly at the floor passes.
	f.setEquityOnDeposit(999, 0)
	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 999))
	f.bank.Fund("alice", coins)
	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.ZeroInt())
	if !errors.Is(err, ErrBelowMinimumDeposit) {
		t.Fatalf("error = %v, want ErrBelowMinimumDeposit", err)
	}

	f.setEquityOnDeposit(1000, 0)
	f.deposit(t, "alice", "alice", 1000)
}

func TestDepositCapacityBoundary(t *testing.T) {
	f := newFixture(t)

	// Capacity expands to 1_000_000 and is measured on equity plus debt.
	f.setEquityOnDeposit(900_000, 100_001)
	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 900_000))
	f.bank.Fund("alice", coins)
	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.ZeroInt())
	if !errors.Is(err, ErrExceedCapacity) {
		t.Fatalf("error = %v, want ErrExceedCapacity", err)
	}

	// Exactly at the ceiling is allowed.
	f.setEquityOnDeposit(900_000, 100_000)
	f.deposit(t, "alice", "alice", 900_000)
}

func TestDepositSlippageGuard(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(5000, 0)
	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	f.bank.Fund("alice", coins)

	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.NewInt(5001))
	if !errors.Is(err, ErrTooLittleReceived) {
		t.Fatalf("error = %v, want ErrTooLittleReceived", err)
	}
	if got := f.shares.TotalSupply(testVault); !got.IsZero() {
		t.Errorf("supply %s after rejected deposit, want 0", got)
	}
}

func TestDepositPausedRejected(t *testing.T) {
	f := newFixture(t)

	if err := f.reg.Update(testVault, func(cfg *types.VaultConfig) {
		cfg.DepositPaused = true
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.ZeroInt())
	if !errors.Is(err, ErrDepositPaused) {
		t.Errorf("error = %v, want ErrDepositPaused", err)
	}
}

func TestDepositAssetNotAllowed(t *testing.T) {
	f := newFixture(t)

	coins := sdk.NewCoins(sdk.NewInt64Coin("uosmo", 5000))
	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.ZeroInt())
	if !errors.Is(err, ErrAssetNotAllowed) {
		t.Errorf("error = %v, want ErrAssetNotAllowed", err)
	}
}

func TestDepositInvalidRequests(t *testing.T) {
	f := newFixture(t)

	if _, err := f.coord.Deposit(testVault, "alice", "alice", sdk.NewCoins(), sdkmath.ZeroInt()); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty deposit list: error = %v, want ErrInvalidRequest", err)
	}

	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	if _, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.NewInt(-1)); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("negative min shares: error = %v, want ErrInvalidRequest", err)
	}
}

func TestDepositUnknownVault(t *testing.T) {
	f := newFixture(t)

	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	if _, err := f.coord.Deposit(types.VaultID(42), "alice", "alice", coins, sdkmath.ZeroInt()); err == nil {
		t.Error("expected error for unknown vault")
	}
}

func TestDepositScopeClosedOnAllPaths(t *testing.T) {
	f := newFixture(t)

	// Success path.
	f.setEquityOnDeposit(5000, 0)
	f.deposit(t, "alice", "alice", 5000)
	if f.coord.ScopeActive() {
		t.Fatal("scope left open after successful deposit")
	}

	// Executor failure path.
	hookErr := errors.New("strategy unavailable")
	f.stub.OnDepositFn = func(worker string, vault types.VaultID) ([]byte, error) {
		return nil, hookErr
	}
	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", 5000))
	f.bank.Fund("alice", coins)
	_, err := f.coord.Deposit(testVault, "alice", "alice", coins, sdkmath.ZeroInt())
	if !errors.Is(err, hookErr) {
		t.Fatalf("error = %v, want wrapped hook error", err)
	}
	if f.coord.ScopeActive() {
		t.Error("scope left open after failed deposit")
	}
}

func TestDepositRecordsOperation(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(5000, 0)
	rec := f.deposit(t, "alice", "alice", 5000)

	if len(f.store.Deposits) != 1 {
		t.Fatalf("stored %d deposit records, want 1", len(f.store.Deposits))
	}
	stored := f.store.Deposits[0]
	if stored.OperationID != rec.OperationID {
		t.Errorf("stored OperationID %s, want %s", stored.OperationID, rec.OperationID)
	}
	if stored.OperationID == "" {
		t.Error("OperationID is empty")
	}
}
