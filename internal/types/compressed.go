package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Compressed is a monetary threshold stored as a small integer plus a decimal
// scale exponent. Thresholds like minimum deposit and capacity are persisted
// in this form and expanded to full precision at read time, so the scale
// travels with the value instead of living in callers' heads.
type Compressed struct {
	Value uint32 `json:"value"`
	Scale uint8  `json:"scale"`
}

// NewCompressed builds a compressed threshold from its raw parts.
func NewCompressed(value uint32, scale uint8) Compressed {
	return Compressed{Value: value, Scale: scale}
}

// Expand returns the full-precision amount: Value * 10^Scale.
func (c Compressed) Expand() sdkmath.Int {
	out := sdkmath.NewIntFromUint64(uint64(c.Value))
	for i := uint8(0); i < c.Scale; i++ {
		out = out.MulRaw(10)
	}
	return out
}

// IsZero reports whether the threshold is unset.
func (c Compressed) IsZero() bool {
	return c.Value == 0
}

func (c Compressed) String() string {
	return fmt.Sprintf("%de%d", c.Value, c.Scale)
}
