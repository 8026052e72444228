package main

// opCBPrefix runs the CB page. Without an index prefix the second byte is an
// opcode fetch. Under DD/FD the displacement comes first and the final byte
// is a plain read; the result of a rotate or SET/RES on (IX+d) is also copied
// into the register named by the low three bits, unless they select (HL).
func opCBPrefix(c *CPU_Z80, _ byte) {
	if c.prefix != z80PrefixNone {
		addr := c.memOperand()
		op := c.fetchByte()
		c.execIndexedCB(addr, op)
		return
	}

	op := c.fetchOpcode()
	x, y, z := op>>6, (op>>3)&7, op&7
	if z == 6 {
		addr := c.HL()
		v := c.read(addr)
		switch x {
		case 0:
			c.write(addr, c.rot(y, v))
		case 1:
			c.bit(y, v)
			c.tick(12)
			return
		case 2:
			c.write(addr, v&^(1<<y))
		case 3:
			c.write(addr, v|1<<y)
		}
		c.tick(15)
		return
	}

	v := c.getRPlain(z)
	switch x {
	case 0:
		c.setRPlain(z, c.rot(y, v))
	case 1:
		c.bit(y, v)
	case 2:
		c.setRPlain(z, v&^(1<<y))
	case 3:
		c.setRPlain(z, v|1<<y)
	}
	c.tick(8)
}

func (c *CPU_Z80) execIndexedCB(addr uint16, op byte) {
	x, y, z := op>>6, (op>>3)&7, op&7
	v := c.read(addr)
	var res byte
	switch x {
	case 0:
		res = c.rot(y, v)
	case 1:
		c.bit(y, v)
		c.tick(16)
		return
	case 2:
		res = v &^ (1 << y)
	case 3:
		res = v | 1<<y
	}
	c.write(addr, res)
	if z != 6 {
		c.setRPlain(z, res)
	}
	c.tick(19)
}
