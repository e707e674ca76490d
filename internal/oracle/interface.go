package oracle

import (
	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vaultd/internal/types"
)

// ValuationOracle reports the current total equity and total debt of a
// vault's positions. How those figures are computed from underlying
// positions is the oracle's business; the coordinator only sequences and
// compares snapshots.
type ValuationOracle interface {
	GetEquityAndDebt(vault types.VaultID, worker string) (equity sdkmath.Int, debt sdkmath.Int, err error)
}

// Resolver maps the oracle reference stored in a vault config to a live
// ValuationOracle instance.
type Resolver interface {
	Resolve(ref string) (ValuationOracle, error)
}
