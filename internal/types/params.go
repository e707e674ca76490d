package types

import (
	sdkmath "cosmossdk.io/math"
)

// MaxBPS is the basis-point denominator used by every rate field.
const MaxBPS = 10_000

// FeeScale is the fixed-point scale of the per-second management fee rate.
var FeeScale = sdkmath.NewInt(1_000_000_000_000_000_000)
