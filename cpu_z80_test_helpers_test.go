package main

import "testing"

type z80TestBus struct {
	mem    [0x10000]byte
	io     [0x10000]byte
	outLog []z80PortWrite
}

type z80PortWrite struct {
	port  uint16
	value byte
}

func (b *z80TestBus) Read(addr uint16) byte {
	return b.mem[addr]
}

func (b *z80TestBus) Write(addr uint16, value byte) {
	b.mem[addr] = value
}

func (b *z80TestBus) In(port uint16) byte {
	return b.io[port]
}

func (b *z80TestBus) Out(port uint16, value byte) {
	b.io[port] = value
	b.outLog = append(b.outLog, z80PortWrite{port: port, value: value})
}

// z80TrapRecorder counts trap calls and snapshots HL/DE at each one.
type z80TrapRecorder struct {
	loads, saves int
	hl, de       uint16
}

func (r *z80TrapRecorder) LoadTrap(cpu *CPU_Z80) {
	r.loads++
	r.hl, r.de = cpu.HL(), cpu.DE()
}

func (r *z80TrapRecorder) SaveTrap(cpu *CPU_Z80) {
	r.saves++
	r.hl, r.de = cpu.HL(), cpu.DE()
}

type cpuZ80TestRig struct {
	bus *z80TestBus
	cpu *CPU_Z80
}

func newCPUZ80TestRig() *cpuZ80TestRig {
	bus := &z80TestBus{}
	cpu := NewCPU_Z80(bus)
	return &cpuZ80TestRig{
		bus: bus,
		cpu: cpu,
	}
}

func (r *cpuZ80TestRig) resetAndLoad(start uint16, program []byte) {
	r.bus = &z80TestBus{}
	r.cpu = NewCPU_Z80(r.bus)
	for i, value := range program {
		r.bus.mem[start+uint16(i)] = value
	}
	r.cpu.PC = start
}

func requireZ80EqualU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%04X, want 0x%04X", name, got, want)
	}
}

func requireZ80EqualU8(t *testing.T, name string, got, want byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%02X, want 0x%02X", name, got, want)
	}
}

func requireZ80Tstates(t *testing.T, cpu *CPU_Z80, want uint64) {
	t.Helper()
	if cpu.Tstates != want {
		t.Fatalf("Tstates = %d, want %d", cpu.Tstates, want)
	}
}

// aceRigOrigin is plain RAM above the aliased region, where rig programs
// are loaded by default.
const aceRigOrigin = 0x4000

// aceCPURig runs the CPU on the ACE memory map and port decoder, so ROM
// protection and the 0x2000-0x3FFF aliases apply to every store.
type aceCPURig struct {
	mem  *AceMemory
	keys *Keyboard
	cpu  *CPU_Z80
}

func newAceCPURig(program ...byte) *aceCPURig {
	return newAceCPURigAt(aceRigOrigin, program...)
}

// newAceCPURigAt loads program at origin: through PatchROM inside the ROM
// bank, through Store everywhere else.
func newAceCPURigAt(origin uint16, program ...byte) *aceCPURig {
	mem := NewAceMemory()
	if int(origin) < aceROMSize {
		mem.PatchROM(origin, program...)
	} else {
		for i, b := range program {
			mem.Store(origin+uint16(i), b)
		}
	}
	keys := NewKeyboard()
	cpu := NewCPU_Z80(&aceBus{mem: mem, ports: NewAcePorts(keys)})
	cpu.PC = origin
	return &aceCPURig{mem: mem, keys: keys, cpu: cpu}
}

func (r *aceCPURig) step(n int) {
	for range n {
		r.cpu.Step()
	}
}

// requireAceBytes checks that every address in addrs reads want.
func requireAceBytes(t *testing.T, mem *AceMemory, want byte, addrs ...uint16) {
	t.Helper()
	for _, addr := range addrs {
		if got := mem.Fetch(addr); got != want {
			t.Fatalf("mem[0x%04X] = 0x%02X, want 0x%02X", addr, got, want)
		}
	}
}
