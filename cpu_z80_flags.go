package main

import "math/bits"

const (
	z80FlagS  = 0x80
	z80FlagZ  = 0x40
	z80FlagY  = 0x20
	z80FlagH  = 0x10
	z80FlagX  = 0x08
	z80FlagPV = 0x04
	z80FlagN  = 0x02
	z80FlagC  = 0x01

	z80FlagsXY = z80FlagX | z80FlagY
)

// z80Parity maps a byte to its P/V flag contribution: z80FlagPV when the
// byte has an even number of set bits, 0 otherwise.
var z80Parity [256]byte

// z80SZ maps a result byte to S, Z and the undocumented X/Y copies.
var z80SZ [256]byte

// z80SZP is z80SZ with the parity bit folded in, used by the logical ops,
// rotates and IN r,(C).
var z80SZP [256]byte

func init() {
	for i := range 256 {
		v := byte(i)
		if bits.OnesCount8(v)%2 == 0 {
			z80Parity[i] = z80FlagPV
		}
		f := v & (z80FlagS | z80FlagsXY)
		if v == 0 {
			f |= z80FlagZ
		}
		z80SZ[i] = f
		z80SZP[i] = f | z80Parity[i]
	}
}
