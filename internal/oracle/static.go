package oracle

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vaultd/internal/types"
)

var ErrOracleNotFound = errors.New("oracle reference is not registered")

// StaticOracle serves equity/debt figures set by hand. It backs dry-run mode
// and tests; a production oracle would price real positions.
type StaticOracle struct {
	mu     sync.Mutex
	equity map[types.VaultID]sdkmath.Int
	debt   map[types.VaultID]sdkmath.Int
}

// NewStaticOracle creates an oracle with no valuations.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		equity: make(map[types.VaultID]sdkmath.Int),
		debt:   make(map[types.VaultID]sdkmath.Int),
	}
}

// Set fixes the equity and debt reported for a vault.
func (o *StaticOracle) Set(vault types.VaultID, equity, debt sdkmath.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.equity[vault] = equity
	o.debt[vault] = debt
}

// GetEquityAndDebt returns the configured valuation for a vault.
func (o *StaticOracle) GetEquityAndDebt(vault types.VaultID, worker string) (sdkmath.Int, sdkmath.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	equity, ok := o.equity[vault]
	if !ok {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("no valuation set for vault %d", vault)
	}
	return equity, o.debt[vault], nil
}

// MapResolver resolves oracle references from a fixed registration map.
type MapResolver struct {
	mu      sync.Mutex
	oracles map[string]ValuationOracle
}

// NewMapResolver creates an empty resolver.
func NewMapResolver() *MapResolver {
	return &MapResolver{oracles: make(map[string]ValuationOracle)}
}

// Register binds an oracle reference to an implementation.
func (r *MapResolver) Register(ref string, o ValuationOracle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oracles[ref] = o
}

// Resolve looks up a registered oracle.
func (r *MapResolver) Resolve(ref string) (ValuationOracle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.oracles[ref]
	if !ok {
		return nil, errors.Join(ErrOracleNotFound, fmt.Errorf("reference %q", ref))
	}
	return o, nil
}
