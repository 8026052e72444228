package main

var z80EDOps [256]z80Op

func init() {
	for i := range 256 {
		z80EDOps[i] = opEDUndefined
	}
	for i := 0x40; i < 0x80; i++ {
		op := byte(i)
		y, z := (op>>3)&7, op&7
		q := y & 1
		switch z {
		case 0:
			z80EDOps[i] = opINrC
		case 1:
			z80EDOps[i] = opOUTCr
		case 2:
			if q == 0 {
				z80EDOps[i] = opSBChlrp
			} else {
				z80EDOps[i] = opADChlrp
			}
		case 3:
			if q == 0 {
				z80EDOps[i] = opLDnnrp
			} else {
				z80EDOps[i] = opLDrpnnED
			}
		case 4:
			z80EDOps[i] = opNEG
		case 5:
			z80EDOps[i] = opRETN
		case 6:
			z80EDOps[i] = opIM
		case 7:
			z80EDOps[i] = [8]z80Op{opLDia, opLDra, opLDai, opLDar, opRRD, opRLD, opNOPED, opNOPED}[y]
		}
	}
	for _, op := range []byte{0xA0, 0xA8, 0xB0, 0xB8} {
		z80EDOps[op] = opLDblock
	}
	for _, op := range []byte{0xA1, 0xA9, 0xB1, 0xB9} {
		z80EDOps[op] = opCPblock
	}
	for _, op := range []byte{0xA2, 0xAA, 0xB2, 0xBA} {
		z80EDOps[op] = opINblock
	}
	for _, op := range []byte{0xA3, 0xAB, 0xB3, 0xBB} {
		z80EDOps[op] = opOUTblock
	}
	z80EDOps[0xFC] = opLoadTrap
	z80EDOps[0xFD] = opSaveTrap
}

// opEDPrefix runs the ED page. An index prefix in front of ED has no effect.
func opEDPrefix(c *CPU_Z80, _ byte) {
	c.prefix = z80PrefixNone
	op := c.fetchOpcode()
	z80EDOps[op](c, op)
}

// opEDUndefined treats unassigned ED opcodes as an 8 T-state no-op.
func opEDUndefined(c *CPU_Z80, _ byte) {
	c.tick(8)
}

func opNOPED(c *CPU_Z80, _ byte) {
	c.tick(8)
}

func opLoadTrap(c *CPU_Z80, op byte) {
	if c.traps == nil {
		opEDUndefined(c, op)
		return
	}
	c.traps.LoadTrap(c)
	c.tick(8)
}

func opSaveTrap(c *CPU_Z80, op byte) {
	if c.traps == nil {
		opEDUndefined(c, op)
		return
	}
	c.traps.SaveTrap(c)
	c.tick(8)
}

// opINrC reads port BC. Register code 6 only sets the flags.
func opINrC(c *CPU_Z80, op byte) {
	v := c.bus.In(c.BC())
	if r := (op >> 3) & 7; r != 6 {
		c.setRPlain(r, v)
	}
	c.F = c.F&z80FlagC | z80SZP[v]
	c.tick(12)
}

// opOUTCr writes to port BC. Register code 6 outputs zero.
func opOUTCr(c *CPU_Z80, op byte) {
	var v byte
	if r := (op >> 3) & 7; r != 6 {
		v = c.getRPlain(r)
	}
	c.bus.Out(c.BC(), v)
	c.tick(12)
}

func opSBChlrp(c *CPU_Z80, op byte) {
	c.SetHL(c.sbc16(c.HL(), c.getRP(op>>4&3)))
	c.tick(15)
}

func opADChlrp(c *CPU_Z80, op byte) {
	c.SetHL(c.adc16(c.HL(), c.getRP(op>>4&3)))
	c.tick(15)
}

func opLDnnrp(c *CPU_Z80, op byte) {
	c.writeWord(c.fetchWord(), c.getRP(op>>4&3))
	c.tick(20)
}

func opLDrpnnED(c *CPU_Z80, op byte) {
	c.setRP(op>>4&3, c.readWord(c.fetchWord()))
	c.tick(20)
}

func opNEG(c *CPU_Z80, _ byte) {
	v := c.A
	c.A = 0
	c.A = c.sub8(v, 0)
	c.tick(8)
}

// opRETN serves both RETN and RETI.
func opRETN(c *CPU_Z80, _ byte) {
	c.PC = c.pop()
	c.IFF1 = c.IFF2
	c.tick(14)
}

var z80IMModes = [8]byte{0, 0, 1, 2, 0, 0, 1, 2}

func opIM(c *CPU_Z80, op byte) {
	c.IM = z80IMModes[(op>>3)&7]
	c.tick(8)
}

func opLDia(c *CPU_Z80, _ byte) {
	c.I = c.A
	c.tick(9)
}

func opLDra(c *CPU_Z80, _ byte) {
	c.R = c.A
	c.tick(9)
}

func (c *CPU_Z80) loadAFromSpecial(v byte) {
	c.A = v
	f := c.F&z80FlagC | z80SZ[v]
	if c.IFF2 {
		f |= z80FlagPV
	}
	c.F = f
	c.tick(9)
}

func opLDai(c *CPU_Z80, _ byte) {
	c.loadAFromSpecial(c.I)
}

func opLDar(c *CPU_Z80, _ byte) {
	c.loadAFromSpecial(c.R)
}

func opRRD(c *CPU_Z80, _ byte) {
	addr := c.HL()
	v := c.read(addr)
	c.write(addr, c.A<<4|v>>4)
	c.A = c.A&0xF0 | v&0x0F
	c.F = c.F&z80FlagC | z80SZP[c.A]
	c.tick(18)
}

func opRLD(c *CPU_Z80, _ byte) {
	addr := c.HL()
	v := c.read(addr)
	c.write(addr, v<<4|c.A&0x0F)
	c.A = c.A&0xF0 | v>>4
	c.F = c.F&z80FlagC | z80SZP[c.A]
	c.tick(18)
}

// blockStep returns +1 for the incrementing block ops (LDI, CPI, ...) and
// -1 for the decrementing ones; bit 3 of the opcode selects the direction.
func blockStep(op byte) uint16 {
	if op&0x08 != 0 {
		return 0xFFFF
	}
	return 1
}

func blockRepeats(op byte) bool {
	return op&0x10 != 0
}

func opLDblock(c *CPU_Z80, op byte) {
	step := blockStep(op)
	v := c.read(c.HL())
	c.write(c.DE(), v)
	c.SetHL(c.HL() + step)
	c.SetDE(c.DE() + step)
	c.SetBC(c.BC() - 1)

	n := v + c.A
	f := c.F&(z80FlagS|z80FlagZ|z80FlagC) | n&z80FlagX | (n<<4)&z80FlagY
	if c.BC() != 0 {
		f |= z80FlagPV
	}
	c.F = f

	if blockRepeats(op) && c.BC() != 0 {
		c.PC -= 2
		c.tick(21)
		return
	}
	c.tick(16)
}

func opCPblock(c *CPU_Z80, op byte) {
	step := blockStep(op)
	v := c.read(c.HL())
	res := c.A - v
	c.SetHL(c.HL() + step)
	c.SetBC(c.BC() - 1)

	f := c.F&z80FlagC | z80FlagN | z80SZ[res]&(z80FlagS|z80FlagZ)
	if (c.A^v^res)&0x10 != 0 {
		f |= z80FlagH
	}
	if c.BC() != 0 {
		f |= z80FlagPV
	}
	n := res
	if f&z80FlagH != 0 {
		n--
	}
	f |= n&z80FlagX | (n<<4)&z80FlagY
	c.F = f

	if blockRepeats(op) && c.BC() != 0 && res != 0 {
		c.PC -= 2
		c.tick(21)
		return
	}
	c.tick(16)
}

func opINblock(c *CPU_Z80, op byte) {
	step := blockStep(op)
	v := c.bus.In(c.BC())
	c.write(c.HL(), v)
	c.SetHL(c.HL() + step)
	c.B--
	c.F = c.F&z80FlagC | z80SZ[c.B] | z80FlagN

	if blockRepeats(op) && c.B != 0 {
		c.PC -= 2
		c.tick(21)
		return
	}
	c.tick(16)
}

func opOUTblock(c *CPU_Z80, op byte) {
	step := blockStep(op)
	v := c.read(c.HL())
	c.B--
	c.bus.Out(c.BC(), v)
	c.SetHL(c.HL() + step)
	c.F = c.F&z80FlagC | z80SZ[c.B] | z80FlagN

	if blockRepeats(op) && c.B != 0 {
		c.PC -= 2
		c.tick(21)
		return
	}
	c.tick(16)
}
