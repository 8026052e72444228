package main

import (
	"fmt"
	"strings"
)

// Z80DisasmLine is one decoded instruction.
type Z80DisasmLine struct {
	Addr  uint16
	Bytes []byte
	Text  string
}

func (l Z80DisasmLine) String() string {
	hex := make([]string, len(l.Bytes))
	for i, b := range l.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%04X  %-11s  %s", l.Addr, strings.Join(hex, " "), l.Text)
}

// DisassembleZ80 decodes count instructions starting at addr. Decoding
// follows the dispatcher: chained DD/FD prefixes keep only the last one,
// and ED FC/ED FD show up as the tape traps.
func DisassembleZ80(read func(addr uint16) byte, addr uint16, count int) []Z80DisasmLine {
	lines := make([]Z80DisasmLine, 0, count)
	for range count {
		d := &z80Decoder{read: read, pos: addr}
		text := d.decode()
		lines = append(lines, Z80DisasmLine{Addr: addr, Bytes: d.bytes, Text: text})
		addr = d.pos
	}
	return lines
}

var (
	z80DisReg8   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	z80DisReg16  = [4]string{"BC", "DE", "HL", "SP"}
	z80DisReg16S = [4]string{"BC", "DE", "HL", "AF"}
	z80DisCond   = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	z80DisALU    = [8]string{"ADD A, ", "ADC A, ", "SUB ", "SBC A, ", "AND ", "XOR ", "OR ", "CP "}
	z80DisRot    = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	z80DisMisc   = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	z80DisEDMisc = [8]string{"LD I, A", "LD R, A", "LD A, I", "LD A, R", "RRD", "RLD", "NOP", "NOP"}
	z80DisIM     = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}
	z80DisBlock  = [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
)

type z80Decoder struct {
	read  func(uint16) byte
	pos   uint16
	bytes []byte
	idx   string // "", "IX" or "IY"
}

func (d *z80Decoder) fetch() byte {
	b := d.read(d.pos)
	d.pos++
	d.bytes = append(d.bytes, b)
	return b
}

func (d *z80Decoder) imm8() string {
	return fmt.Sprintf("$%02X", d.fetch())
}

func (d *z80Decoder) imm16() string {
	lo := d.fetch()
	hi := d.fetch()
	return fmt.Sprintf("$%04X", uint16(hi)<<8|uint16(lo))
}

func (d *z80Decoder) rel() string {
	e := int8(d.fetch())
	return fmt.Sprintf("$%04X", d.pos+uint16(e))
}

func (d *z80Decoder) hl() string {
	if d.idx != "" {
		return d.idx
	}
	return "HL"
}

// mem is the (HL) operand, or (IX+d) with its displacement fetched.
func (d *z80Decoder) mem() string {
	if d.idx == "" {
		return "(HL)"
	}
	return fmt.Sprintf("(%s%+d)", d.idx, int8(d.fetch()))
}

// reg names an 8-bit operand. Under a prefix H and L become the index
// halves; callers that also touch (IX+d) use z80DisReg8 directly.
func (d *z80Decoder) reg(i byte) string {
	switch {
	case i == 6:
		return d.mem()
	case d.idx != "" && i == 4:
		return d.idx + "H"
	case d.idx != "" && i == 5:
		return d.idx + "L"
	}
	return z80DisReg8[i]
}

func (d *z80Decoder) rp(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80DisReg16[p]
}

func (d *z80Decoder) rp2(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80DisReg16S[p]
}

func (d *z80Decoder) decode() string {
	op := d.fetch()
	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			d.idx = "IX"
		} else {
			d.idx = "IY"
		}
		op = d.fetch()
	}
	switch op {
	case 0xCB:
		return d.decodeCB()
	case 0xED:
		d.idx = ""
		return d.decodeED(d.fetch())
	}
	return d.decodeBase(op)
}

func (d *z80Decoder) decodeBase(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 1:
		switch {
		case op == 0x76:
			return "HALT"
		case z == 6:
			return "LD " + z80DisReg8[y] + ", " + d.mem()
		case y == 6:
			return "LD " + d.mem() + ", " + z80DisReg8[z]
		}
		return "LD " + d.reg(y) + ", " + d.reg(z)
	case 2:
		return z80DisALU[y] + d.reg(z)
	case 0:
		return d.decodeX0(y, z, p, q)
	}
	return d.decodeX3(y, z, p, q)
}

func (d *z80Decoder) decodeX0(y, z, p, q byte) string {
	switch z {
	case 0:
		switch y {
		case 0:
			return "NOP"
		case 1:
			return "EX AF, AF'"
		case 2:
			return "DJNZ " + d.rel()
		case 3:
			return "JR " + d.rel()
		}
		return "JR " + z80DisCond[y-4] + ", " + d.rel()
	case 1:
		if q == 0 {
			return "LD " + d.rp(p) + ", " + d.imm16()
		}
		return "ADD " + d.hl() + ", " + d.rp(p)
	case 2:
		switch p<<1 | q {
		case 0:
			return "LD (BC), A"
		case 1:
			return "LD A, (BC)"
		case 2:
			return "LD (DE), A"
		case 3:
			return "LD A, (DE)"
		case 4:
			return "LD (" + d.imm16() + "), " + d.hl()
		case 5:
			return "LD " + d.hl() + ", (" + d.imm16() + ")"
		case 6:
			return "LD (" + d.imm16() + "), A"
		}
		return "LD A, (" + d.imm16() + ")"
	case 3:
		if q == 0 {
			return "INC " + d.rp(p)
		}
		return "DEC " + d.rp(p)
	case 4:
		return "INC " + d.reg(y)
	case 5:
		return "DEC " + d.reg(y)
	case 6:
		dst := d.reg(y)
		return "LD " + dst + ", " + d.imm8()
	}
	return z80DisMisc[y]
}

func (d *z80Decoder) decodeX3(y, z, p, q byte) string {
	switch z {
	case 0:
		return "RET " + z80DisCond[y]
	case 1:
		if q == 0 {
			return "POP " + d.rp2(p)
		}
		return [4]string{"RET", "EXX", "JP (" + d.hl() + ")", "LD SP, " + d.hl()}[p]
	case 2:
		return "JP " + z80DisCond[y] + ", " + d.imm16()
	case 3:
		switch y {
		case 0:
			return "JP " + d.imm16()
		case 2:
			return "OUT (" + d.imm8() + "), A"
		case 3:
			return "IN A, (" + d.imm8() + ")"
		case 4:
			return "EX (SP), " + d.hl()
		case 5:
			return "EX DE, HL"
		case 6:
			return "DI"
		}
		return "EI"
	case 4:
		return "CALL " + z80DisCond[y] + ", " + d.imm16()
	case 5:
		if q == 0 {
			return "PUSH " + d.rp2(p)
		}
		return "CALL " + d.imm16()
	case 6:
		return z80DisALU[y] + d.imm8()
	}
	return fmt.Sprintf("RST $%02X", y*8)
}

// decodeCB handles CB and DD CB d op / FD CB d op. Indexed forms with a
// register other than (HL) also copy the result into that register.
func (d *z80Decoder) decodeCB() string {
	operand := d.mem()
	op := d.fetch()
	x, y, z := op>>6, (op>>3)&7, op&7

	if d.idx == "" {
		operand = z80DisReg8[z]
	}
	var text string
	switch x {
	case 0:
		text = z80DisRot[y] + " " + operand
	case 1:
		return fmt.Sprintf("BIT %d, %s", y, operand)
	case 2:
		text = fmt.Sprintf("RES %d, %s", y, operand)
	default:
		text = fmt.Sprintf("SET %d, %s", y, operand)
	}
	if d.idx != "" && z != 6 {
		text += ", " + z80DisReg8[z]
	}
	return text
}

func (d *z80Decoder) decodeED(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch {
	case op == 0xFC:
		return "TRAP LOAD"
	case op == 0xFD:
		return "TRAP SAVE"
	case x == 2 && z <= 3 && y >= 4:
		return z80DisBlock[y-4][z]
	case x != 1:
		return fmt.Sprintf("DB $ED, $%02X", op)
	}

	switch z {
	case 0:
		if y == 6 {
			return "IN (C)"
		}
		return "IN " + z80DisReg8[y] + ", (C)"
	case 1:
		if y == 6 {
			return "OUT (C), 0"
		}
		return "OUT (C), " + z80DisReg8[y]
	case 2:
		if q == 0 {
			return "SBC HL, " + z80DisReg16[p]
		}
		return "ADC HL, " + z80DisReg16[p]
	case 3:
		if q == 0 {
			return "LD (" + d.imm16() + "), " + z80DisReg16[p]
		}
		return "LD " + z80DisReg16[p] + ", (" + d.imm16() + ")"
	case 4:
		return "NEG"
	case 5:
		if y == 1 {
			return "RETI"
		}
		return "RETN"
	case 6:
		return "IM " + z80DisIM[y]
	}
	return z80DisEDMisc[y]
}
