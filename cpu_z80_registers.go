package main

import (
	"fmt"
	"strings"
)

// Z80Registers is the architectural state of the CPU. Every field has a
// fixed-width type so arithmetic wraps the way the hardware does.
type Z80Registers struct {
	A, F, B, C, D, E, H, L         byte
	A2, F2, B2, C2, D2, E2, H2, L2 byte

	IX, IY uint16
	SP, PC uint16

	I  byte
	R  byte
	IM byte

	IFF1 bool
	IFF2 bool

	// Tstates counts clock cycles since the last reset or throttle point.
	Tstates uint64
}

// Reset zeroes the whole register file, shadows and interrupt state included.
func (r *Z80Registers) Reset() {
	*r = Z80Registers{}
}

func (r *Z80Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r *Z80Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Z80Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Z80Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r *Z80Registers) AF2() uint16 { return uint16(r.A2)<<8 | uint16(r.F2) }
func (r *Z80Registers) BC2() uint16 { return uint16(r.B2)<<8 | uint16(r.C2) }
func (r *Z80Registers) DE2() uint16 { return uint16(r.D2)<<8 | uint16(r.E2) }
func (r *Z80Registers) HL2() uint16 { return uint16(r.H2)<<8 | uint16(r.L2) }

func (r *Z80Registers) SetAF(v uint16) { r.A, r.F = byte(v>>8), byte(v) }
func (r *Z80Registers) SetBC(v uint16) { r.B, r.C = byte(v>>8), byte(v) }
func (r *Z80Registers) SetDE(v uint16) { r.D, r.E = byte(v>>8), byte(v) }
func (r *Z80Registers) SetHL(v uint16) { r.H, r.L = byte(v>>8), byte(v) }

func (r *Z80Registers) SetAF2(v uint16) { r.A2, r.F2 = byte(v>>8), byte(v) }
func (r *Z80Registers) SetBC2(v uint16) { r.B2, r.C2 = byte(v>>8), byte(v) }
func (r *Z80Registers) SetDE2(v uint16) { r.D2, r.E2 = byte(v>>8), byte(v) }
func (r *Z80Registers) SetHL2(v uint16) { r.H2, r.L2 = byte(v>>8), byte(v) }

func (r *Z80Registers) Flag(mask byte) bool {
	return r.F&mask != 0
}

func (r *Z80Registers) SetFlag(mask byte, on bool) {
	if on {
		r.F |= mask
	} else {
		r.F &^= mask
	}
}

func (r *Z80Registers) ExAF() {
	r.A, r.A2 = r.A2, r.A
	r.F, r.F2 = r.F2, r.F
}

func (r *Z80Registers) Exx() {
	r.B, r.B2 = r.B2, r.B
	r.C, r.C2 = r.C2, r.C
	r.D, r.D2 = r.D2, r.D
	r.E, r.E2 = r.E2, r.E
	r.H, r.H2 = r.H2, r.H
	r.L, r.L2 = r.L2, r.L
}

// Reg8 names an 8-bit register for generic access from scripts and tests.
type Reg8 int

const (
	RegA Reg8 = iota
	RegF
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	RegA2
	RegF2
	RegB2
	RegC2
	RegD2
	RegE2
	RegH2
	RegL2
	RegI
	RegR
	RegIM
)

// Reg16 names a 16-bit register or register pair.
type Reg16 int

const (
	RegAF Reg16 = iota
	RegBC
	RegDE
	RegHL
	RegAF2
	RegBC2
	RegDE2
	RegHL2
	RegIX
	RegIY
	RegSP
	RegPC
)

func (r *Z80Registers) reg8Ptr(reg Reg8) *byte {
	switch reg {
	case RegA:
		return &r.A
	case RegF:
		return &r.F
	case RegB:
		return &r.B
	case RegC:
		return &r.C
	case RegD:
		return &r.D
	case RegE:
		return &r.E
	case RegH:
		return &r.H
	case RegL:
		return &r.L
	case RegA2:
		return &r.A2
	case RegF2:
		return &r.F2
	case RegB2:
		return &r.B2
	case RegC2:
		return &r.C2
	case RegD2:
		return &r.D2
	case RegE2:
		return &r.E2
	case RegH2:
		return &r.H2
	case RegL2:
		return &r.L2
	case RegI:
		return &r.I
	case RegR:
		return &r.R
	case RegIM:
		return &r.IM
	}
	return nil
}

// Get8 returns an 8-bit register, or 0 for an unknown name.
func (r *Z80Registers) Get8(reg Reg8) byte {
	if p := r.reg8Ptr(reg); p != nil {
		return *p
	}
	return 0
}

// Set8 stores v truncated to 8 bits. IM keeps only its two low bits.
func (r *Z80Registers) Set8(reg Reg8, v uint) {
	p := r.reg8Ptr(reg)
	if p == nil {
		return
	}
	if reg == RegIM {
		v &= 0x03
	}
	*p = byte(v)
}

// Get16 returns a 16-bit register or pair, or 0 for an unknown name.
func (r *Z80Registers) Get16(reg Reg16) uint16 {
	switch reg {
	case RegAF:
		return r.AF()
	case RegBC:
		return r.BC()
	case RegDE:
		return r.DE()
	case RegHL:
		return r.HL()
	case RegAF2:
		return r.AF2()
	case RegBC2:
		return r.BC2()
	case RegDE2:
		return r.DE2()
	case RegHL2:
		return r.HL2()
	case RegIX:
		return r.IX
	case RegIY:
		return r.IY
	case RegSP:
		return r.SP
	case RegPC:
		return r.PC
	}
	return 0
}

// Set16 stores v truncated to 16 bits.
func (r *Z80Registers) Set16(reg Reg16, v uint) {
	w := uint16(v)
	switch reg {
	case RegAF:
		r.SetAF(w)
	case RegBC:
		r.SetBC(w)
	case RegDE:
		r.SetDE(w)
	case RegHL:
		r.SetHL(w)
	case RegAF2:
		r.SetAF2(w)
	case RegBC2:
		r.SetBC2(w)
	case RegDE2:
		r.SetDE2(w)
	case RegHL2:
		r.SetHL2(w)
	case RegIX:
		r.IX = w
	case RegIY:
		r.IY = w
	case RegSP:
		r.SP = w
	case RegPC:
		r.PC = w
	}
}

var reg8Names = map[string]Reg8{
	"A": RegA, "F": RegF, "B": RegB, "C": RegC, "D": RegD, "E": RegE, "H": RegH, "L": RegL,
	"A'": RegA2, "F'": RegF2, "B'": RegB2, "C'": RegC2, "D'": RegD2, "E'": RegE2, "H'": RegH2, "L'": RegL2,
	"I": RegI, "R": RegR, "IM": RegIM,
}

var reg16Names = map[string]Reg16{
	"AF": RegAF, "BC": RegBC, "DE": RegDE, "HL": RegHL,
	"AF'": RegAF2, "BC'": RegBC2, "DE'": RegDE2, "HL'": RegHL2,
	"IX": RegIX, "IY": RegIY, "SP": RegSP, "PC": RegPC,
}

// LookupRegister resolves a register name such as "hl" or "a'". Exactly one
// of the two returned flags is true on success.
func LookupRegister(name string) (Reg8, bool, Reg16, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if r, ok := reg8Names[name]; ok {
		return r, true, 0, false
	}
	if r, ok := reg16Names[name]; ok {
		return 0, false, r, true
	}
	return 0, false, 0, false
}

func (r *Z80Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X I=%02X R=%02X IM=%d IFF=%t/%t T=%d",
		r.AF(), r.BC(), r.DE(), r.HL(), r.IX, r.IY, r.SP, r.PC, r.I, r.R, r.IM, r.IFF1, r.IFF2, r.Tstates)
}
