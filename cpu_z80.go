package main

// Z80Bus is everything the CPU can reach outside its own registers.
type Z80Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	In(port uint16) byte
	Out(port uint16, value byte)
}

// Z80TrapHandler receives the emulator traps planted in ROM. The reserved
// opcodes ED FC and ED FD call LoadTrap and SaveTrap with the CPU stopped at
// an instruction boundary; execution continues with the byte after the trap.
type Z80TrapHandler interface {
	LoadTrap(cpu *CPU_Z80)
	SaveTrap(cpu *CPU_Z80)
}

const (
	z80PrefixNone byte = iota
	z80PrefixDD
	z80PrefixFD
)

// z80InterruptVector is where every accepted maskable interrupt lands.
const z80InterruptVector = 0x0038

type CPU_Z80 struct {
	Z80Registers

	Halted bool

	bus   Z80Bus
	traps Z80TrapHandler

	// prefix is the index register selected by a DD/FD byte for the opcode
	// currently executing. It never survives past one instruction.
	prefix byte

	// eiShadow blocks interrupt sampling for the instruction that follows EI.
	eiShadow bool
}

func NewCPU_Z80(bus Z80Bus) *CPU_Z80 {
	cpu := &CPU_Z80{bus: bus}
	cpu.Reset()
	return cpu
}

// SetTrapHandler installs the receiver of the ED FC/ED FD traps. With no
// handler the trap opcodes behave like any other undefined ED opcode.
func (c *CPU_Z80) SetTrapHandler(h Z80TrapHandler) {
	c.traps = h
}

// Reset puts the CPU in its power-on state.
func (c *CPU_Z80) Reset() {
	c.Z80Registers.Reset()
	c.Halted = false
	c.prefix = z80PrefixNone
	c.eiShadow = false
}

// Step executes one complete instruction, any DD/FD prefixes in front of it
// included. Prefix bytes are fetched like opcodes and cost 4 T-states each;
// when several are chained only the last one selects the index register.
func (c *CPU_Z80) Step() {
	c.eiShadow = false
	c.prefix = z80PrefixNone

	if c.Halted {
		c.R++
		c.tick(4)
		return
	}

	for {
		op := c.fetchOpcode()
		switch op {
		case 0xDD:
			c.prefix = z80PrefixDD
			c.tick(4)
			continue
		case 0xFD:
			c.prefix = z80PrefixFD
			c.tick(4)
			continue
		}
		z80BaseOps[op](c, op)
		break
	}
	c.prefix = z80PrefixNone
}

// InterruptWindow reports whether the dispatcher may sample interrupt and
// reset requests after the instruction just executed. EI closes the window
// for one instruction so that EI; RET completes before the next interrupt.
func (c *CPU_Z80) InterruptWindow() bool {
	return !c.eiShadow
}

// Interrupt delivers a maskable interrupt. With IFF1 clear the request is
// refused and nothing changes; otherwise PC is pushed, both enable flags are
// cleared and execution resumes at 0x0038 regardless of IM.
func (c *CPU_Z80) Interrupt() bool {
	if !c.IFF1 {
		return false
	}
	c.Halted = false
	c.IFF1 = false
	c.IFF2 = false
	c.push(c.PC)
	c.PC = z80InterruptVector
	c.tick(13)
	return true
}

func (c *CPU_Z80) tick(cycles int) {
	c.Tstates += uint64(cycles)
}

func (c *CPU_Z80) fetchOpcode() byte {
	op := c.bus.Read(c.PC)
	c.PC++
	c.R++
	return op
}

func (c *CPU_Z80) fetchByte() byte {
	v := c.bus.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU_Z80) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU_Z80) read(addr uint16) byte {
	return c.bus.Read(addr)
}

func (c *CPU_Z80) write(addr uint16, v byte) {
	c.bus.Write(addr, v)
}

func (c *CPU_Z80) readWord(addr uint16) uint16 {
	return uint16(c.read(addr)) | uint16(c.read(addr+1))<<8
}

func (c *CPU_Z80) writeWord(addr uint16, v uint16) {
	c.write(addr, byte(v))
	c.write(addr+1, byte(v>>8))
}

func (c *CPU_Z80) push(v uint16) {
	c.SP--
	c.write(c.SP, byte(v>>8))
	c.SP--
	c.write(c.SP, byte(v))
}

func (c *CPU_Z80) pop() uint16 {
	lo := c.read(c.SP)
	c.SP++
	hi := c.read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// hlReg is HL, or IX/IY while a prefix is active.
func (c *CPU_Z80) hlReg() uint16 {
	switch c.prefix {
	case z80PrefixDD:
		return c.IX
	case z80PrefixFD:
		return c.IY
	}
	return c.HL()
}

func (c *CPU_Z80) setHLReg(v uint16) {
	switch c.prefix {
	case z80PrefixDD:
		c.IX = v
	case z80PrefixFD:
		c.IY = v
	default:
		c.SetHL(v)
	}
}

// indexPenalty is the extra cost of an (IX+d) operand over (HL).
func (c *CPU_Z80) indexPenalty() int {
	if c.prefix == z80PrefixNone {
		return 0
	}
	return 8
}

// memOperand resolves the address of an (HL) operand. Under a prefix the
// signed displacement byte is consumed from the instruction stream.
func (c *CPU_Z80) memOperand() uint16 {
	if c.prefix == z80PrefixNone {
		return c.HL()
	}
	d := int8(c.fetchByte())
	return c.hlReg() + uint16(int16(d))
}

// getR reads an 8-bit register by its encoding (B,C,D,E,H,L,-,A). Under a
// prefix H and L select the halves of the index register. Code 6 is a memory
// operand and is handled by the callers.
func (c *CPU_Z80) getR(code byte) byte {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return byte(c.hlReg() >> 8)
	case 5:
		return byte(c.hlReg())
	case 7:
		return c.A
	}
	return 0xFF
}

func (c *CPU_Z80) setR(code byte, v byte) {
	switch code {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.setHLReg(c.hlReg()&0x00FF | uint16(v)<<8)
	case 5:
		c.setHLReg(c.hlReg()&0xFF00 | uint16(v))
	case 7:
		c.A = v
	}
}

// getRPlain and setRPlain ignore the prefix; they are used when the other
// operand is (IX+d), where H and L keep their plain meaning.
func (c *CPU_Z80) getRPlain(code byte) byte {
	switch code {
	case 4:
		return c.H
	case 5:
		return c.L
	}
	return c.getR(code)
}

func (c *CPU_Z80) setRPlain(code byte, v byte) {
	switch code {
	case 4:
		c.H = v
	case 5:
		c.L = v
	default:
		c.setR(code, v)
	}
}

// getRP reads a register pair from the rp table (BC, DE, HL/IX/IY, SP).
func (c *CPU_Z80) getRP(p byte) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.hlReg()
	}
	return c.SP
}

func (c *CPU_Z80) setRP(p byte, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.setHLReg(v)
	default:
		c.SP = v
	}
}

// getRP2 is the push/pop variant of getRP, with AF in place of SP.
func (c *CPU_Z80) getRP2(p byte) uint16 {
	if p == 3 {
		return c.AF()
	}
	return c.getRP(p)
}

func (c *CPU_Z80) setRP2(p byte, v uint16) {
	if p == 3 {
		c.SetAF(v)
		return
	}
	c.setRP(p, v)
}

// cond evaluates condition code y: NZ, Z, NC, C, PO, PE, P, M.
func (c *CPU_Z80) cond(y byte) bool {
	var set bool
	switch y >> 1 {
	case 0:
		set = c.F&z80FlagZ != 0
	case 1:
		set = c.F&z80FlagC != 0
	case 2:
		set = c.F&z80FlagPV != 0
	default:
		set = c.F&z80FlagS != 0
	}
	if y&1 == 0 {
		return !set
	}
	return set
}
