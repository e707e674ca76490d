package types

import (
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestCompressedExpand(t *testing.T) {
	cases := []struct {
		value uint32
		scale uint8
		want  int64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{10, 2, 1000},
		{1, 6, 1_000_000},
		{25, 3, 25_000},
	}
	for _, tc := range cases {
		c := NewCompressed(tc.value, tc.scale)
		if got := c.Expand(); !got.Equal(sdkmath.NewInt(tc.want)) {
			t.Errorf("%s: Expand() = %s, want %d", c, got, tc.want)
		}
	}
}

func TestCompressedExpandLarge(t *testing.T) {
	// Max uint32 at a high scale must not overflow.
	c := NewCompressed(4_294_967_295, 18)
	want, ok := sdkmath.NewIntFromString("4294967295000000000000000000")
	if !ok {
		t.Fatal("bad literal")
	}
	if got := c.Expand(); !got.Equal(want) {
		t.Errorf("Expand() = %s, want %s", got, want)
	}
}

func TestCompressedIsZero(t *testing.T) {
	if !NewCompressed(0, 5).IsZero() {
		t.Error("zero value with nonzero scale must be zero")
	}
	if NewCompressed(1, 0).IsZero() {
		t.Error("nonzero value must not be zero")
	}
}

func TestCompressedString(t *testing.T) {
	if got := NewCompressed(10, 2).String(); got != "10e2" {
		t.Errorf("String() = %q, want %q", got, "10e2")
	}
}
