package main

// alu applies one of the eight accumulator operations selected by bits 5-3
// of the opcode: ADD, ADC, SUB, SBC, AND, XOR, OR, CP.
func (c *CPU_Z80) alu(kind byte, v byte) {
	switch kind {
	case 0:
		c.A = c.add8(v, 0)
	case 1:
		c.A = c.add8(v, c.F&z80FlagC)
	case 2:
		c.A = c.sub8(v, 0)
	case 3:
		c.A = c.sub8(v, c.F&z80FlagC)
	case 4:
		c.A &= v
		c.F = z80SZP[c.A] | z80FlagH
	case 5:
		c.A ^= v
		c.F = z80SZP[c.A]
	case 6:
		c.A |= v
		c.F = z80SZP[c.A]
	case 7:
		c.sub8(v, 0)
		// CP copies X/Y from the operand, not the result.
		c.F = c.F&^z80FlagsXY | v&z80FlagsXY
	}
}

func (c *CPU_Z80) add8(v, carry byte) byte {
	a := c.A
	sum := uint16(a) + uint16(v) + uint16(carry)
	res := byte(sum)
	f := z80SZ[res]
	if sum > 0xFF {
		f |= z80FlagC
	}
	if (a^v^res)&0x10 != 0 {
		f |= z80FlagH
	}
	if (a^v)&0x80 == 0 && (a^res)&0x80 != 0 {
		f |= z80FlagPV
	}
	c.F = f
	return res
}

func (c *CPU_Z80) sub8(v, carry byte) byte {
	a := c.A
	diff := int(a) - int(v) - int(carry)
	res := byte(diff)
	f := z80SZ[res] | z80FlagN
	if diff < 0 {
		f |= z80FlagC
	}
	if (a^v^res)&0x10 != 0 {
		f |= z80FlagH
	}
	if (a^v)&0x80 != 0 && (a^res)&0x80 != 0 {
		f |= z80FlagPV
	}
	c.F = f
	return res
}

func (c *CPU_Z80) inc8(v byte) byte {
	res := v + 1
	f := c.F&z80FlagC | z80SZ[res]
	if v&0x0F == 0x0F {
		f |= z80FlagH
	}
	if v == 0x7F {
		f |= z80FlagPV
	}
	c.F = f
	return res
}

func (c *CPU_Z80) dec8(v byte) byte {
	res := v - 1
	f := c.F&z80FlagC | z80SZ[res] | z80FlagN
	if v&0x0F == 0 {
		f |= z80FlagH
	}
	if v == 0x80 {
		f |= z80FlagPV
	}
	c.F = f
	return res
}

// add16 is ADD HL,rr: S, Z and P/V are left alone.
func (c *CPU_Z80) add16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	res := uint16(sum)
	f := c.F & (z80FlagS | z80FlagZ | z80FlagPV)
	f |= byte(res>>8) & z80FlagsXY
	if (a^b^res)&0x1000 != 0 {
		f |= z80FlagH
	}
	if sum > 0xFFFF {
		f |= z80FlagC
	}
	c.F = f
	return res
}

func (c *CPU_Z80) adc16(a, b uint16) uint16 {
	carry := uint32(c.F & z80FlagC)
	sum := uint32(a) + uint32(b) + carry
	res := uint16(sum)
	f := byte(res>>8) & (z80FlagS | z80FlagsXY)
	if res == 0 {
		f |= z80FlagZ
	}
	if (a^b^res)&0x1000 != 0 {
		f |= z80FlagH
	}
	if (a^b)&0x8000 == 0 && (a^res)&0x8000 != 0 {
		f |= z80FlagPV
	}
	if sum > 0xFFFF {
		f |= z80FlagC
	}
	c.F = f
	return res
}

func (c *CPU_Z80) sbc16(a, b uint16) uint16 {
	carry := int32(c.F & z80FlagC)
	diff := int32(a) - int32(b) - carry
	res := uint16(diff)
	f := byte(res>>8)&(z80FlagS|z80FlagsXY) | z80FlagN
	if res == 0 {
		f |= z80FlagZ
	}
	if (a^b^res)&0x1000 != 0 {
		f |= z80FlagH
	}
	if (a^b)&0x8000 != 0 && (a^res)&0x8000 != 0 {
		f |= z80FlagPV
	}
	if diff < 0 {
		f |= z80FlagC
	}
	c.F = f
	return res
}

// rot performs the CB-page shift selected by kind (RLC, RRC, RL, RR, SLA,
// SRA, SLL, SRL) and sets S, Z, P/V and C from the result.
func (c *CPU_Z80) rot(kind byte, v byte) byte {
	var res, carry byte
	switch kind {
	case 0:
		carry = v >> 7
		res = v<<1 | carry
	case 1:
		carry = v & 1
		res = v>>1 | carry<<7
	case 2:
		carry = v >> 7
		res = v<<1 | c.F&z80FlagC
	case 3:
		carry = v & 1
		res = v>>1 | (c.F&z80FlagC)<<7
	case 4:
		carry = v >> 7
		res = v << 1
	case 5:
		carry = v & 1
		res = v>>1 | v&0x80
	case 6:
		carry = v >> 7
		res = v<<1 | 1
	case 7:
		carry = v & 1
		res = v >> 1
	}
	c.F = z80SZP[res] | carry
	return res
}

func (c *CPU_Z80) bit(n byte, v byte) {
	f := c.F&z80FlagC | z80FlagH | v&z80FlagsXY
	if v&(1<<n) == 0 {
		f |= z80FlagZ | z80FlagPV
	} else if n == 7 {
		f |= z80FlagS
	}
	c.F = f
}

// daa adjusts A after a BCD add or subtract, using N, H and C from the
// previous operation.
func (c *CPU_Z80) daa() {
	a := c.A
	var adj byte
	carry := c.F & z80FlagC
	if c.F&z80FlagH != 0 || a&0x0F > 9 {
		adj |= 0x06
	}
	if carry != 0 || a > 0x99 {
		adj |= 0x60
		carry = z80FlagC
	}
	var half byte
	if c.F&z80FlagN != 0 {
		if c.F&z80FlagH != 0 && a&0x0F < 6 {
			half = z80FlagH
		}
		c.A = a - adj
	} else {
		if a&0x0F > 9 {
			half = z80FlagH
		}
		c.A = a + adj
	}
	c.F = z80SZP[c.A] | half | carry | c.F&z80FlagN
}
