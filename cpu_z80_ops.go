package main

// z80Op executes one opcode. The opcode byte is passed back in so a single
// handler can serve a whole block of the table, decoding its operands from
// the x/y/z/p/q fields:
//
//	x = op>>6, y = op>>3&7, z = op&7, p = y>>1, q = y&1
type z80Op func(c *CPU_Z80, op byte)

var z80BaseOps [256]z80Op

func init() {
	for i := range 256 {
		op := byte(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		q := y & 1
		switch x {
		case 0:
			z80BaseOps[i] = z80BlockZero(y, z, q)
		case 1:
			if op == 0x76 {
				z80BaseOps[i] = opHALT
			} else {
				z80BaseOps[i] = opLDrr
			}
		case 2:
			z80BaseOps[i] = opALUr
		case 3:
			z80BaseOps[i] = z80BlockThree(y, z, q)
		}
	}
}

func z80BlockZero(y, z, q byte) z80Op {
	switch z {
	case 0:
		switch y {
		case 0:
			return opNOP
		case 1:
			return opEXAF
		case 2:
			return opDJNZ
		case 3:
			return opJR
		default:
			return opJRcc
		}
	case 1:
		if q == 0 {
			return opLDrpnn
		}
		return opADDhlrp
	case 2:
		return opLDind
	case 3:
		if q == 0 {
			return opINCrp
		}
		return opDECrp
	case 4:
		return opINCr
	case 5:
		return opDECr
	case 6:
		return opLDrn
	}
	return [8]z80Op{opRLCA, opRRCA, opRLA, opRRA, opDAA, opCPL, opSCF, opCCF}[y]
}

func z80BlockThree(y, z, q byte) z80Op {
	switch z {
	case 0:
		return opRETcc
	case 1:
		if q == 0 {
			return opPOP
		}
		return [4]z80Op{opRET, opEXX, opJPhl, opLDsphl}[y>>1]
	case 2:
		return opJPcc
	case 3:
		return [8]z80Op{opJP, opCBPrefix, opOUTnA, opINAn, opEXsphl, opEXdehl, opDI, opEI}[y]
	case 4:
		return opCALLcc
	case 5:
		if q == 0 {
			return opPUSH
		}
		switch y >> 1 {
		case 0:
			return opCALL
		case 2:
			return opEDPrefix
		}
		// DD and FD are consumed by Step before dispatch.
		return opNOP
	case 6:
		return opALUn
	}
	return opRST
}

func opNOP(c *CPU_Z80, _ byte) {
	c.tick(4)
}

func opHALT(c *CPU_Z80, _ byte) {
	c.Halted = true
	c.tick(4)
}

func opEXAF(c *CPU_Z80, _ byte) {
	c.ExAF()
	c.tick(4)
}

func opDJNZ(c *CPU_Z80, _ byte) {
	d := int8(c.fetchByte())
	c.B--
	if c.B != 0 {
		c.PC += uint16(int16(d))
		c.tick(13)
		return
	}
	c.tick(8)
}

func opJR(c *CPU_Z80, _ byte) {
	d := int8(c.fetchByte())
	c.PC += uint16(int16(d))
	c.tick(12)
}

func opJRcc(c *CPU_Z80, op byte) {
	d := int8(c.fetchByte())
	if c.cond((op>>3)&3) {
		c.PC += uint16(int16(d))
		c.tick(12)
		return
	}
	c.tick(7)
}

func opLDrpnn(c *CPU_Z80, op byte) {
	c.setRP(op>>4&3, c.fetchWord())
	c.tick(10)
}

func opADDhlrp(c *CPU_Z80, op byte) {
	c.setHLReg(c.add16(c.hlReg(), c.getRP(op>>4&3)))
	c.tick(11)
}

// opLDind covers the indirect loads at x=0,z=2: LD (BC),A; LD A,(BC);
// LD (DE),A; LD A,(DE); LD (nn),HL; LD HL,(nn); LD (nn),A; LD A,(nn).
func opLDind(c *CPU_Z80, op byte) {
	switch (op >> 3) & 7 {
	case 0:
		c.write(c.BC(), c.A)
		c.tick(7)
	case 1:
		c.A = c.read(c.BC())
		c.tick(7)
	case 2:
		c.write(c.DE(), c.A)
		c.tick(7)
	case 3:
		c.A = c.read(c.DE())
		c.tick(7)
	case 4:
		c.writeWord(c.fetchWord(), c.hlReg())
		c.tick(16)
	case 5:
		c.setHLReg(c.readWord(c.fetchWord()))
		c.tick(16)
	case 6:
		c.write(c.fetchWord(), c.A)
		c.tick(13)
	case 7:
		c.A = c.read(c.fetchWord())
		c.tick(13)
	}
}

func opINCrp(c *CPU_Z80, op byte) {
	p := op >> 4 & 3
	c.setRP(p, c.getRP(p)+1)
	c.tick(6)
}

func opDECrp(c *CPU_Z80, op byte) {
	p := op >> 4 & 3
	c.setRP(p, c.getRP(p)-1)
	c.tick(6)
}

func opINCr(c *CPU_Z80, op byte) {
	r := (op >> 3) & 7
	if r == 6 {
		addr := c.memOperand()
		c.write(addr, c.inc8(c.read(addr)))
		c.tick(11 + c.indexPenalty())
		return
	}
	c.setR(r, c.inc8(c.getR(r)))
	c.tick(4)
}

func opDECr(c *CPU_Z80, op byte) {
	r := (op >> 3) & 7
	if r == 6 {
		addr := c.memOperand()
		c.write(addr, c.dec8(c.read(addr)))
		c.tick(11 + c.indexPenalty())
		return
	}
	c.setR(r, c.dec8(c.getR(r)))
	c.tick(4)
}

func opLDrn(c *CPU_Z80, op byte) {
	r := (op >> 3) & 7
	if r == 6 {
		addr := c.memOperand()
		c.write(addr, c.fetchByte())
		if c.prefix != z80PrefixNone {
			c.tick(15)
		} else {
			c.tick(10)
		}
		return
	}
	c.setR(r, c.fetchByte())
	c.tick(7)
}

func opRLCA(c *CPU_Z80, _ byte) {
	carry := c.A >> 7
	c.A = c.A<<1 | carry
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV) | c.A&z80FlagsXY | carry
	c.tick(4)
}

func opRRCA(c *CPU_Z80, _ byte) {
	carry := c.A & 1
	c.A = c.A>>1 | carry<<7
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV) | c.A&z80FlagsXY | carry
	c.tick(4)
}

func opRLA(c *CPU_Z80, _ byte) {
	carry := c.A >> 7
	c.A = c.A<<1 | c.F&z80FlagC
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV) | c.A&z80FlagsXY | carry
	c.tick(4)
}

func opRRA(c *CPU_Z80, _ byte) {
	carry := c.A & 1
	c.A = c.A>>1 | (c.F&z80FlagC)<<7
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV) | c.A&z80FlagsXY | carry
	c.tick(4)
}

func opDAA(c *CPU_Z80, _ byte) {
	c.daa()
	c.tick(4)
}

func opCPL(c *CPU_Z80, _ byte) {
	c.A = ^c.A
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV|z80FlagC) | z80FlagH | z80FlagN | c.A&z80FlagsXY
	c.tick(4)
}

func opSCF(c *CPU_Z80, _ byte) {
	c.F = c.F&(z80FlagS|z80FlagZ|z80FlagPV) | z80FlagC | c.A&z80FlagsXY
	c.tick(4)
}

func opCCF(c *CPU_Z80, _ byte) {
	f := c.F&(z80FlagS|z80FlagZ|z80FlagPV) | c.A&z80FlagsXY
	if c.F&z80FlagC != 0 {
		f |= z80FlagH
	} else {
		f |= z80FlagC
	}
	c.F = f
	c.tick(4)
}

func opLDrr(c *CPU_Z80, op byte) {
	dst, src := (op>>3)&7, op&7
	switch {
	case src == 6:
		addr := c.memOperand()
		c.setRPlain(dst, c.read(addr))
		c.tick(7 + c.indexPenalty())
	case dst == 6:
		addr := c.memOperand()
		c.write(addr, c.getRPlain(src))
		c.tick(7 + c.indexPenalty())
	default:
		c.setR(dst, c.getR(src))
		c.tick(4)
	}
}

func opALUr(c *CPU_Z80, op byte) {
	src := op & 7
	if src == 6 {
		addr := c.memOperand()
		c.alu((op>>3)&7, c.read(addr))
		c.tick(7 + c.indexPenalty())
		return
	}
	c.alu((op>>3)&7, c.getR(src))
	c.tick(4)
}

func opALUn(c *CPU_Z80, op byte) {
	c.alu((op>>3)&7, c.fetchByte())
	c.tick(7)
}

func opRETcc(c *CPU_Z80, op byte) {
	if c.cond((op >> 3) & 7) {
		c.PC = c.pop()
		c.tick(11)
		return
	}
	c.tick(5)
}

func opPOP(c *CPU_Z80, op byte) {
	c.setRP2(op>>4&3, c.pop())
	c.tick(10)
}

func opRET(c *CPU_Z80, _ byte) {
	c.PC = c.pop()
	c.tick(10)
}

func opEXX(c *CPU_Z80, _ byte) {
	c.Exx()
	c.tick(4)
}

func opJPhl(c *CPU_Z80, _ byte) {
	c.PC = c.hlReg()
	c.tick(4)
}

func opLDsphl(c *CPU_Z80, _ byte) {
	c.SP = c.hlReg()
	c.tick(6)
}

func opJPcc(c *CPU_Z80, op byte) {
	addr := c.fetchWord()
	if c.cond((op >> 3) & 7) {
		c.PC = addr
	}
	c.tick(10)
}

func opJP(c *CPU_Z80, _ byte) {
	c.PC = c.fetchWord()
	c.tick(10)
}

func opOUTnA(c *CPU_Z80, _ byte) {
	n := c.fetchByte()
	c.bus.Out(uint16(c.A)<<8|uint16(n), c.A)
	c.tick(11)
}

func opINAn(c *CPU_Z80, _ byte) {
	n := c.fetchByte()
	c.A = c.bus.In(uint16(c.A)<<8 | uint16(n))
	c.tick(11)
}

func opEXsphl(c *CPU_Z80, _ byte) {
	v := c.readWord(c.SP)
	c.writeWord(c.SP, c.hlReg())
	c.setHLReg(v)
	c.tick(19)
}

// opEXdehl always swaps DE with HL; index prefixes do not apply.
func opEXdehl(c *CPU_Z80, _ byte) {
	de := c.DE()
	c.SetDE(c.HL())
	c.SetHL(de)
	c.tick(4)
}

func opDI(c *CPU_Z80, _ byte) {
	c.IFF1 = false
	c.IFF2 = false
	c.tick(4)
}

func opEI(c *CPU_Z80, _ byte) {
	c.IFF1 = true
	c.IFF2 = true
	c.eiShadow = true
	c.tick(4)
}

func opCALLcc(c *CPU_Z80, op byte) {
	addr := c.fetchWord()
	if c.cond((op >> 3) & 7) {
		c.push(c.PC)
		c.PC = addr
		c.tick(17)
		return
	}
	c.tick(10)
}

func opPUSH(c *CPU_Z80, op byte) {
	c.push(c.getRP2(op >> 4 & 3))
	c.tick(11)
}

func opCALL(c *CPU_Z80, _ byte) {
	addr := c.fetchWord()
	c.push(c.PC)
	c.PC = addr
	c.tick(17)
}

func opRST(c *CPU_Z80, op byte) {
	c.push(c.PC)
	c.PC = uint16(op & 0x38)
	c.tick(11)
}
