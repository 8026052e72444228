package main

import (
	"github.com/paulhankin/z80asm"
)

// AssembledProgram is a Z80 source file assembled for the ACE.
type AssembledProgram struct {
	Origin uint16
	Code   []byte
	Entry  uint16
}

// AssembleFile assembles path. The program must define a main label; the
// span copied into RAM runs from label start to label end when both exist,
// otherwise from the first to the last non-zero byte above the ROM.
func AssembleFile(path string) (*AssembledProgram, error) {
	asm, err := z80asm.NewAssembler()
	if err != nil {
		return nil, &MachineError{Operation: "assemble", Details: path, Err: err}
	}
	if err := asm.AssembleFile(path); err != nil {
		return nil, &MachineError{Operation: "assemble", Details: path, Err: err}
	}

	entry, ok := asm.GetLabel("", "main")
	if !ok {
		return nil, &MachineError{Operation: "assemble", Details: path + ": missing main label"}
	}

	ram := asm.RAM()
	start, startOK := asm.GetLabel("", "start")
	end, endOK := asm.GetLabel("", "end")
	from, to := int(start), int(end)
	if !startOK || !endOK || to < from {
		from, to, ok = usedSpan(ram)
		if !ok {
			return nil, &MachineError{Operation: "assemble", Details: path + ": no code above 0x2000"}
		}
	}
	if from < aceRAMBase {
		return nil, &MachineError{Operation: "assemble", Details: path + ": code overlaps ROM"}
	}

	code := make([]byte, to-from)
	copy(code, ram[from:to])
	return &AssembledProgram{Origin: uint16(from), Code: code, Entry: entry}, nil
}

// usedSpan finds [first, last+1) of the non-zero bytes in RAM.
func usedSpan(ram []byte) (int, int, bool) {
	first, last := -1, -1
	for i := aceRAMBase; i < len(ram); i++ {
		if ram[i] == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, false
	}
	return first, last + 1, true
}

// LoadProgram copies the program into RAM through the normal store path
// and jumps to its entry point. It must run on the CPU goroutine or before
// the machine starts.
func (m *Machine) LoadProgram(p *AssembledProgram) {
	for i, b := range p.Code {
		m.mem.Store(p.Origin+uint16(i), b)
	}
	m.cpu.PC = p.Entry
}
