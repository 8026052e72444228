package main

import "testing"

func disasmOne(code ...byte) Z80DisasmLine {
	read := func(addr uint16) byte {
		if int(addr) < len(code) {
			return code[addr]
		}
		return 0
	}
	return DisassembleZ80(read, 0, 1)[0]
}

func TestDisassembleZ80_Text(t *testing.T) {
	tests := []struct {
		code []byte
		text string
		size int
	}{
		{[]byte{0x00}, "NOP", 1},
		{[]byte{0x3E, 0x05}, "LD A, $05", 2},
		{[]byte{0x21, 0x34, 0x12}, "LD HL, $1234", 3},
		{[]byte{0x18, 0xFE}, "JR $0000", 2},
		{[]byte{0x20, 0x03}, "JR NZ, $0005", 2},
		{[]byte{0x10, 0x00}, "DJNZ $0002", 2},
		{[]byte{0x76}, "HALT", 1},
		{[]byte{0x7E}, "LD A, (HL)", 1},
		{[]byte{0x86}, "ADD A, (HL)", 1},
		{[]byte{0xFE, 0x20}, "CP $20", 2},
		{[]byte{0xCD, 0xA7, 0x18}, "CALL $18A7", 3},
		{[]byte{0xFF}, "RST $38", 1},
		{[]byte{0xDB, 0xFE}, "IN A, ($FE)", 2},
		{[]byte{0x08}, "EX AF, AF'", 1},
		{[]byte{0xCB, 0x47}, "BIT 0, A", 2},
		{[]byte{0xCB, 0x16}, "RL (HL)", 2},
		{[]byte{0xDD, 0x7E, 0x05}, "LD A, (IX+5)", 3},
		{[]byte{0xFD, 0x77, 0xFE}, "LD (IY-2), A", 3},
		{[]byte{0xDD, 0x66, 0x01}, "LD H, (IX+1)", 3},
		{[]byte{0xDD, 0x36, 0x02, 0x09}, "LD (IX+2), $09", 4},
		{[]byte{0xDD, 0x26, 0x09}, "LD IXH, $09", 3},
		{[]byte{0xFD, 0x7D}, "LD A, IYL", 2},
		{[]byte{0xDD, 0x09}, "ADD IX, BC", 2},
		{[]byte{0xDD, 0xE9}, "JP (IX)", 2},
		{[]byte{0xDD, 0xFD, 0x21, 0x00, 0x40}, "LD IY, $4000", 5},
		{[]byte{0xDD, 0xCB, 0x03, 0xC6}, "SET 0, (IX+3)", 4},
		{[]byte{0xFD, 0xCB, 0xFF, 0x46}, "BIT 0, (IY-1)", 4},
		{[]byte{0xDD, 0xCB, 0x00, 0x07}, "RLC (IX+0), A", 4},
		{[]byte{0xED, 0xB0}, "LDIR", 2},
		{[]byte{0xED, 0x56}, "IM 1", 2},
		{[]byte{0xED, 0x4B, 0x00, 0x3C}, "LD BC, ($3C00)", 4},
		{[]byte{0xED, 0x5A}, "ADC HL, DE", 2},
		{[]byte{0xED, 0x4D}, "RETI", 2},
		{[]byte{0xED, 0xFC}, "TRAP LOAD", 2},
		{[]byte{0xED, 0xFD}, "TRAP SAVE", 2},
		{[]byte{0xED, 0x00}, "DB $ED, $00", 2},
	}
	for _, tc := range tests {
		line := disasmOne(tc.code...)
		if line.Text != tc.text {
			t.Errorf("% X: got %q, want %q", tc.code, line.Text, tc.text)
		}
		if len(line.Bytes) != tc.size {
			t.Errorf("% X: size %d, want %d", tc.code, len(line.Bytes), tc.size)
		}
	}
}

func TestDisassembleZ80_Sequence(t *testing.T) {
	code := []byte{0x3E, 0x06, 0x3C, 0xC9}
	lines := DisassembleZ80(func(addr uint16) byte { return code[addr%4] }, 0, 3)

	want := []string{
		"0000  3E 06        LD A, $06",
		"0002  3C           INC A",
		"0003  C9           RET",
	}
	for i, line := range lines {
		if got := line.String(); got != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestDisassembleZ80_WrapsAddress(t *testing.T) {
	mem := NewAceMemory()
	mem.PatchROM(0x0000, 0x34, 0x12)
	lines := DisassembleZ80(func(addr uint16) byte {
		if addr == 0xFFFF {
			return 0x01
		}
		return mem.Fetch(addr)
	}, 0xFFFF, 1)

	if lines[0].Text != "LD BC, $1234" {
		t.Fatalf("got %q", lines[0].Text)
	}
}
