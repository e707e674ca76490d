package coordinator

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/executor"
	"github.com/meridianfi/vaultd/internal/ledger"
	"github.com/meridianfi/vaultd/internal/oracle"
	"github.com/meridianfi/vaultd/internal/registry"
	"github.com/meridianfi/vaultd/internal/types"
)

const (
	testVault    = types.VaultID(1)
	testStrategy = "strat-1"
	testWorker   = "worker-1"
	testOracle   = "oracle-1"

	mgmtTreasury     = "treasury-mgmt"
	withdrawTreasury = "treasury-withdraw"

	baseSec = int64(1_700_000_000)
)

// fixture wires a coordinator against in-memory collaborators. The stub
// executor's hooks and the static oracle are mutated per test to script
// valuation changes.
type fixture struct {
	nowSec int64

	reg    *registry.Registry
	shares *ledger.MemoryLedger
	bank   *ledger.MemoryBank
	store  *MemoryStore
	stub   *executor.Stub
	oracle *oracle.StaticOracle
	coord  *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		nowSec: baseSec,
		reg:    registry.New(),
		shares: ledger.NewMemoryLedger(),
		bank:   ledger.NewMemoryBank(),
		store:  NewMemoryStore(),
		stub:   executor.NewStub(testStrategy),
		oracle: oracle.NewStaticOracle(),
	}

	cfg := types.VaultConfig{
		VaultID:           testVault,
		Strategy:          testStrategy,
		Worker:            testWorker,
		Oracle:            testOracle,
		MinDeposit:        types.NewCompressed(10, 2), // 1000
		Capacity:          types.NewCompressed(1, 6),  // 1_000_000
		WithdrawalFeeBps:  50,
		ManagementFeeRate: sdkmath.ZeroInt(),
		LastFeeCollected:  baseSec,
		ToleranceBps:      9000,
		MaxLeverage:       3,
	}
	if err := f.reg.OpenVault(cfg); err != nil {
		t.Fatalf("OpenVault: %v", err)
	}
	if err := f.reg.AllowAsset(testVault, "uatom", true); err != nil {
		t.Fatalf("AllowAsset: %v", err)
	}

	execs := executor.NewMapResolver()
	execs.Register(testStrategy, f.stub)
	oracles := oracle.NewMapResolver()
	oracles.Register(testOracle, f.oracle)
	f.oracle.Set(testVault, sdkmath.ZeroInt(), sdkmath.ZeroInt())

	coord, err := New(Config{
		Registry:           f.reg,
		Ledger:             f.shares,
		Bank:               f.bank,
		Oracles:            oracles,
		Executors:          execs,
		Store:              f.store,
		ManagementTreasury: mgmtTreasury,
		WithdrawalTreasury: withdrawTreasury,
		Now:                func() time.Time { return time.Unix(f.nowSec, 0) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.coord = coord
	return f
}

// setEquityOnDeposit scripts the deposit hook to move the oracle valuation.
func (f *fixture) setEquityOnDeposit(equityAfter, debtAfter int64) {
	f.stub.OnDepositFn = func(worker string, vault types.VaultID) ([]byte, error) {
		f.oracle.Set(vault, sdkmath.NewInt(equityAfter), sdkmath.NewInt(debtAfter))
		return nil, nil
	}
}

func (f *fixture) deposit(t *testing.T, caller, beneficiary string, amount int64) types.DepositRecord {
	t.Helper()
	coins := sdk.NewCoins(sdk.NewInt64Coin("uatom", amount))
	f.bank.Fund(caller, coins)
	rec, err := f.coord.Deposit(testVault, caller, beneficiary, coins, sdkmath.ZeroInt())
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return rec
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil registry", func(c *Config) { c.Registry = nil }},
		{"nil ledger", func(c *Config) { c.Ledger = nil }},
		{"nil bank", func(c *Config) { c.Bank = nil }},
		{"nil oracles", func(c *Config) { c.Oracles = nil }},
		{"nil executors", func(c *Config) { c.Executors = nil }},
		{"nil store", func(c *Config) { c.Store = nil }},
		{"empty mgmt treasury", func(c *Config) { c.ManagementTreasury = "" }},
		{"empty withdraw treasury", func(c *Config) { c.WithdrawalTreasury = "" }},
	}
	for _, tc := range cases {
		cfg := Config{
			Registry:           f.reg,
			Ledger:             f.shares,
			Bank:               f.bank,
			Oracles:            oracle.NewMapResolver(),
			Executors:          executor.NewMapResolver(),
			Store:              f.store,
			ManagementTreasury: mgmtTreasury,
			WithdrawalTreasury: withdrawTreasury,
		}
		tc.mutate(&cfg)
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestSharesForEquity(t *testing.T) {
	cases := []struct {
		name                                 string
		equityChanged, supplyBefore, equityBefore int64
		want                                 int64
	}{
		{"first depositor mints one to one", 5000, 0, 0, 5000},
		{"zero equity vault mints one to one", 5000, 1000, 0, 5000},
		{"proportional at parity", 2500, 5000, 5000, 2500},
		{"proportional above parity", 2500, 1000, 5000, 500},
		{"rounds down", 100, 3, 1000, 0},
	}
	for _, tc := range cases {
		got := sharesForEquity(sdkmath.NewInt(tc.equityChanged), sdkmath.NewInt(tc.supplyBefore), sdkmath.NewInt(tc.equityBefore))
		if !got.Equal(sdkmath.NewInt(tc.want)) {
			t.Errorf("%s: got %s, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPendingFee(t *testing.T) {
	rate := types.FeeScale.QuoRaw(1000) // 0.1% of supply per second
	got := pendingFee(sdkmath.NewInt(1000), rate, 10)
	if !got.Equal(sdkmath.NewInt(10)) {
		t.Errorf("got %s, want 10", got)
	}

	if !pendingFee(sdkmath.ZeroInt(), rate, 10).IsZero() {
		t.Error("zero supply must accrue nothing")
	}
	if !pendingFee(sdkmath.NewInt(1000), sdkmath.ZeroInt(), 10).IsZero() {
		t.Error("zero rate must accrue nothing")
	}
}

func TestManagementFeeAccruesBeforeOperation(t *testing.T) {
	f := newFixture(t)

	// Seed the vault: 1000 shares at equity 1000.
	f.setEquityOnDeposit(1000, 0)
	f.deposit(t, "alice", "alice", 1000)

	if err := f.reg.Update(testVault, func(cfg *types.VaultConfig) {
		cfg.ManagementFeeRate = types.FeeScale.QuoRaw(1000)
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Ten seconds at 0.1%/s on 1000 shares mints 10 to the treasury.
	f.nowSec = baseSec + 10
	f.setEquityOnDeposit(2000, 0)
	f.deposit(t, "bob", "bob", 1000)

	if got := f.shares.BalanceOf(testVault, mgmtTreasury); !got.Equal(sdkmath.NewInt(10)) {
		t.Errorf("treasury balance %s, want 10", got)
	}

	cfg, err := f.reg.Get(testVault)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.LastFeeCollected != baseSec+10 {
		t.Errorf("LastFeeCollected %d, want %d", cfg.LastFeeCollected, baseSec+10)
	}
}

func TestManagementFeeZeroElapsedIsNoop(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(1000, 0)
	f.deposit(t, "alice", "alice", 1000)

	if err := f.reg.Update(testVault, func(cfg *types.VaultConfig) {
		cfg.ManagementFeeRate = types.FeeScale.QuoRaw(1000)
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Clock has not advanced past LastFeeCollected, so no fee is minted even
	// across repeated operations.
	f.setEquityOnDeposit(2000, 0)
	f.deposit(t, "bob", "bob", 1000)
	f.setEquityOnDeposit(3000, 0)
	f.deposit(t, "carol", "carol", 1000)

	if got := f.shares.BalanceOf(testVault, mgmtTreasury); !got.IsZero() {
		t.Errorf("treasury balance %s, want 0", got)
	}
}

func TestPendingManagementFeeMatchesAccrual(t *testing.T) {
	f := newFixture(t)

	f.setEquityOnDeposit(1000, 0)
	f.deposit(t, "alice", "alice", 1000)

	if err := f.reg.Update(testVault, func(cfg *types.VaultConfig) {
		cfg.ManagementFeeRate = types.FeeScale.QuoRaw(1000)
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	f.nowSec = baseSec + 10
	pending, err := f.coord.PendingManagementFee(testVault)
	if err != nil {
		t.Fatalf("PendingManagementFee: %v", err)
	}

	f.setEquityOnDeposit(2000, 0)
	f.deposit(t, "bob", "bob", 1000)

	if got := f.shares.BalanceOf(testVault, mgmtTreasury); !got.Equal(pending) {
		t.Errorf("treasury balance %s, pending predicted %s", got, pending)
	}
}

func TestReentrancyRejected(t *testing.T) {
	f := newFixture(t)

	var nested error
	f.stub.OnDepositFn = func(worker string, vault types.VaultID) ([]byte, error) {
		// An executor calling back into the coordinator must be rejected, not
		// queued: the valuation snapshot is already in flight.
		_, nested = f.coord.Withdraw(vault, "alice", sdkmath.NewInt(1), sdk.NewCoins())
		f.oracle.Set(vault, sdkmath.NewInt(2000), sdkmath.ZeroInt())
		return nil, nil
	}

	f.deposit(t, "alice", "alice", 2000)

	if !errors.Is(nested, ErrReentrancy) {
		t.Errorf("nested call error = %v, want ErrReentrancy", nested)
	}
}

func TestOperationsSequentiallyFine(t *testing.T) {
	f := newFixture(t)

	// The guard is per operation, not per coordinator lifetime: sequential
	// operations must all pass.
	f.setEquityOnDeposit(2000, 0)
	f.deposit(t, "alice", "alice", 2000)
	f.setEquityOnDeposit(4000, 0)
	f.deposit(t, "bob", "bob", 2000)

	if f.coord.ScopeActive() {
		t.Error("scope left open after sequential deposits")
	}
}
