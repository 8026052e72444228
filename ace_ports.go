package main

// KeyboardRows is what the port decoder needs from the keyboard: eight
// active-low half-rows, 0xFF when nothing is held.
type KeyboardRows interface {
	Row(i int) byte
}

const (
	acePortKeyboard = 0xFE
	aceOpenBus      = 0xFF
)

// aceRowSelect maps the high address byte of an IN from port 0xFE to a
// keyboard row. Exactly one address line is pulled low per row.
var aceRowSelect = map[byte]int{
	0xFE: 0,
	0xFD: 1,
	0xFB: 2,
	0xF7: 3,
	0xEF: 4,
	0xDF: 5,
	0xBF: 6,
	0x7F: 7,
}

type AcePorts struct {
	keys KeyboardRows
}

func NewAcePorts(keys KeyboardRows) *AcePorts {
	return &AcePorts{keys: keys}
}

// ReadPort decodes an IN. Only the keyboard is wired; every other address,
// including multi-row scans on 0xFE, reads as open bus.
func (p *AcePorts) ReadPort(high, low byte) byte {
	if low != acePortKeyboard || p.keys == nil {
		return aceOpenBus
	}
	row, ok := aceRowSelect[high]
	if !ok {
		return aceOpenBus
	}
	return p.keys.Row(row)
}

// WritePort accepts an OUT. The speaker and cassette output are not
// emulated, so writes have no effect.
func (p *AcePorts) WritePort(high, low, value byte) {}
