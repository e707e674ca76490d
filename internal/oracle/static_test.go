package oracle

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestStaticOracleSetAndGet(t *testing.T) {
	o := NewStaticOracle()
	o.Set(1, sdkmath.NewInt(5000), sdkmath.NewInt(1200))

	equity, debt, err := o.GetEquityAndDebt(1, "worker-1")
	if err != nil {
		t.Fatalf("GetEquityAndDebt: %v", err)
	}
	if !equity.Equal(sdkmath.NewInt(5000)) {
		t.Errorf("equity %s, want 5000", equity)
	}
	if !debt.Equal(sdkmath.NewInt(1200)) {
		t.Errorf("debt %s, want 1200", debt)
	}
}

func TestStaticOracleUnknownVault(t *testing.T) {
	o := NewStaticOracle()
	if _, _, err := o.GetEquityAndDebt(99, "worker-1"); err == nil {
		t.Error("expected error for unset vault")
	}
}

func TestMapResolver(t *testing.T) {
	r := NewMapResolver()
	o := NewStaticOracle()
	r.Register("oracle-1", o)

	got, err := r.Resolve("oracle-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != ValuationOracle(o) {
		t.Error("resolved a different oracle")
	}

	if _, err := r.Resolve("missing"); !errors.Is(err, ErrOracleNotFound) {
		t.Errorf("error = %v, want ErrOracleNotFound", err)
	}
}
