package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedRows [keyboardRows]byte

func (r *fixedRows) Row(i int) byte { return r[i] }

func TestAcePorts_KeyboardRowSelect(t *testing.T) {
	rows := &fixedRows{0xFE, 0xFD, 0xFB, 0xF7, 0xEF, 0xDF, 0xBF, 0x7F}
	p := NewAcePorts(rows)

	for high, row := range aceRowSelect {
		assert.Equalf(t, rows[row], p.ReadPort(high, 0xFE), "high byte %02X", high)
	}
}

func TestAcePorts_UnmappedReadsOpenBus(t *testing.T) {
	rows := &fixedRows{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	p := NewAcePorts(rows)

	assert.Equal(t, byte(0xFF), p.ReadPort(0x01, 0xFE), "no row selected")
	assert.Equal(t, byte(0xFF), p.ReadPort(0x00, 0xFE), "all rows selected")
	assert.Equal(t, byte(0xFF), p.ReadPort(0xFE, 0xFF), "other port")
	assert.Equal(t, byte(0xFF), NewAcePorts(nil).ReadPort(0xFE, 0xFE))
}

func TestAcePorts_KeyboardMatrix(t *testing.T) {
	kb := NewKeyboard()
	p := NewAcePorts(kb)
	assert.Equal(t, byte(0xFF), p.ReadPort(0xFE, 0xFE))

	kb.Press('A')
	assert.Equal(t, byte(0xFE), p.ReadPort(0xFE, 0xFE), "shift")
	assert.Equal(t, byte(0xFE), p.ReadPort(0xFD, 0xFE), "A")
}

func TestAcePorts_WritesHaveNoEffect(t *testing.T) {
	kb := NewKeyboard()
	p := NewAcePorts(kb)
	p.WritePort(0xFE, 0xFE, 0x00)
	assert.Equal(t, [keyboardRows]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, kb.Snapshot())
}
