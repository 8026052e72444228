// ace_memory.go - Banked and mirrored address space for acemu

/*
License: GPLv3 or later
*/

/*
ace_memory.go - Jupiter ACE Memory Map

The ACE decodes its 64KB address space only partially. Video RAM and
character RAM each answer at two addresses, and the 1KB of user RAM in
0x3000-0x3FFF repeats four times. Real hardware gets this for free from the
decoder; here every store is propagated to its aliases so that a read from
any alias returns the same byte.

Core Features:

    64KB arena split into eight 8KB banks, each with a write attribute.
    Bank 0 holds the ROM and is read-only; banks 1-7 are RAM.
    Mirror rules are a data table of address range to alias offsets,
    consulted once per store.
    Little-endian 16-bit helpers built from two byte accesses, so the high
    byte of a word is mirrored by its own range.

The arena is owned by the CPU goroutine. Everything else reaches it through
Machine.Post/Query, which run on that goroutine.
*/

package main

const (
	aceBankShift = 13
	aceBankSize  = 1 << aceBankShift
	aceBankCount = 8
	aceBankMask  = aceBankSize - 1

	aceROMSize = aceBankSize
	aceRAMBase = 0x2000
	aceMemTop  = 0xFFFF
)

// aceMirrorRule makes every store in [lo, hi] also land at addr+delta for
// each delta. A rule with base set computes aliases from the bank base plus
// the low 10 bits of the address instead.
type aceMirrorRule struct {
	lo, hi uint16
	base   bool
	deltas []int
}

var aceMirrorRules = []aceMirrorRule{
	{lo: 0x2000, hi: 0x23FF, deltas: []int{0x400}},
	{lo: 0x2800, hi: 0x2BFF, deltas: []int{0x400}},
	{lo: 0x2400, hi: 0x27FF, deltas: []int{-0x400}},
	{lo: 0x2C00, hi: 0x2FFF, deltas: []int{-0x400}},
	{lo: 0x3000, hi: 0x3FFF, base: true, deltas: []int{0x1000, 0x1400, 0x1800, 0x1C00}},
}

type AceMemory struct {
	arena    [1 << 16]byte
	writable [aceBankCount]bool
}

// NewAceMemory returns a memory map with ROM in bank 0 and RAM above it.
// Contents start at zero; power-on fills RAM separately.
func NewAceMemory() *AceMemory {
	m := &AceMemory{}
	for bank := 1; bank < aceBankCount; bank++ {
		m.writable[bank] = true
	}
	return m
}

func (m *AceMemory) Fetch(addr uint16) byte {
	return m.arena[addr]
}

// Fetch16 reads a little-endian word; the high byte address wraps.
func (m *AceMemory) Fetch16(addr uint16) uint16 {
	return uint16(m.arena[addr]) | uint16(m.arena[addr+1])<<8
}

// Store writes one byte plus all of its aliases. Stores into a read-only
// bank are dropped.
func (m *AceMemory) Store(addr uint16, value byte) {
	if !m.writable[addr>>aceBankShift] {
		return
	}
	m.arena[addr] = value

	for i := range aceMirrorRules {
		rule := &aceMirrorRules[i]
		if addr < rule.lo || addr > rule.hi {
			continue
		}
		origin := int(addr)
		if rule.base {
			origin = int(addr&^aceBankMask) + int(addr&0x3FF)
		}
		for _, delta := range rule.deltas {
			m.arena[uint16(origin+delta)] = value
		}
		return
	}
}

func (m *AceMemory) Store16(addr uint16, value uint16) {
	m.Store(addr, byte(value))
	m.Store(addr+1, byte(value>>8))
}

func (m *AceMemory) SetWritable(bank int, writable bool) {
	if bank < 0 || bank >= aceBankCount {
		return
	}
	m.writable[bank] = writable
}

func (m *AceMemory) Writable(bank int) bool {
	if bank < 0 || bank >= aceBankCount {
		return false
	}
	return m.writable[bank]
}

// LoadROM copies image into bank 0 regardless of its write attribute.
// Anything beyond 8KB is ignored.
func (m *AceMemory) LoadROM(image []byte) {
	copy(m.arena[:aceROMSize], image)
}

// PatchROM writes bytes at addr inside bank 0, bypassing write protection.
func (m *AceMemory) PatchROM(addr uint16, data ...byte) {
	for i, b := range data {
		a := int(addr) + i
		if a >= aceROMSize {
			return
		}
		m.arena[a] = b
	}
}

// Fill stores value into every address in [from, to] through Store, so
// mirrors and read-only banks behave as for CPU writes.
func (m *AceMemory) Fill(from, to uint16, value byte) {
	for addr := int(from); addr <= int(to); addr++ {
		m.Store(uint16(addr), value)
	}
}

// Snapshot returns a copy of n bytes starting at addr, wrapping at 64KB.
func (m *AceMemory) Snapshot(addr uint16, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = m.arena[addr+uint16(i)]
	}
	return out
}
