// video_ace.go - Jupiter ACE character display for acemu

/*
License: GPLv3 or later
*/

/*
video_ace.go - Character Display

The ACE has no bitmap mode. The picture is 32x24 character cells read from
video RAM at 0x2400, each cell a glyph index into the 128 eight-byte glyphs
held in character RAM at 0x2C00. Bit 7 of a cell inverts the glyph. Set
glyph bits are ink (black) and clear bits paper (white).

Core Features:
- Cell-level dirty tracking against the last rendered video RAM
- Full redraw when character RAM changes or a redraw is forced
- Screen text decoding for scripting and the remote console
*/

package main

import "strings"

const (
	aceVideoRAM    = 0x2400
	aceCharsetRAM  = 0x2C00
	aceCols        = 32
	aceRows        = 24
	aceCellSize    = 8
	aceGlyphCount  = 128
	aceCharsetSize = aceGlyphCount * aceCellSize

	aceScreenWidth  = aceCols * aceCellSize
	aceScreenHeight = aceRows * aceCellSize
)

var (
	aceInk   = [4]byte{0x00, 0x00, 0x00, 0xFF}
	acePaper = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
)

// DisplayMemory is the read side of the memory map the rasterizer scans.
type DisplayMemory interface {
	Snapshot(addr uint16, n int) []byte
}

// AceDisplay renders video RAM into an RGBA frame. It is owned by the CPU
// goroutine; backends receive copies through UpdateFrame.
type AceDisplay struct {
	frame   []byte
	cells   [aceCols * aceRows]byte
	charset [aceCharsetSize]byte
	forced  bool
}

func NewAceDisplay() *AceDisplay {
	return &AceDisplay{
		frame:  make([]byte, aceScreenWidth*aceScreenHeight*4),
		forced: true,
	}
}

// ForceRedraw makes the next Render repaint every cell.
func (d *AceDisplay) ForceRedraw() {
	d.forced = true
}

// Render repaints the cells that changed since the last call and reports
// whether anything was drawn.
func (d *AceDisplay) Render(mem DisplayMemory) bool {
	full := d.forced
	if charset := mem.Snapshot(aceCharsetRAM, aceCharsetSize); string(charset) != string(d.charset[:]) {
		copy(d.charset[:], charset)
		full = true
	}

	drawn := false
	for i, c := range mem.Snapshot(aceVideoRAM, len(d.cells)) {
		if c == d.cells[i] && !full {
			continue
		}
		d.cells[i] = c
		d.drawCell(i%aceCols, i/aceCols, c)
		drawn = true
	}
	d.forced = false
	return drawn
}

func (d *AceDisplay) drawCell(col, row int, c byte) {
	glyph := d.charset[int(c&0x7F)*aceCellSize:]
	invert := c&0x80 != 0
	for y := range aceCellSize {
		bits := glyph[y]
		if invert {
			bits = ^bits
		}
		off := ((row*aceCellSize+y)*aceScreenWidth + col*aceCellSize) * 4
		for x := range aceCellSize {
			px := acePaper
			if bits&(0x80>>x) != 0 {
				px = aceInk
			}
			copy(d.frame[off+x*4:], px[:])
		}
	}
}

// Frame returns the current picture. The slice is reused by the next
// Render; callers that keep it must copy.
func (d *AceDisplay) Frame() []byte {
	return d.frame
}

// ScreenText decodes video RAM into 24 lines of text. Inverse video is
// dropped; cells without a printable ASCII equivalent read as spaces.
func ScreenText(mem DisplayMemory) []string {
	cells := mem.Snapshot(aceVideoRAM, aceCols*aceRows)
	lines := make([]string, aceRows)
	var sb strings.Builder
	for row := range aceRows {
		sb.Reset()
		for _, c := range cells[row*aceCols : (row+1)*aceCols] {
			sb.WriteRune(aceCharRune(c))
		}
		lines[row] = strings.TrimRight(sb.String(), " ")
	}
	return lines
}

func aceCharRune(c byte) rune {
	c &= 0x7F
	switch {
	case c == 0x60:
		return '£'
	case c == 0x7F:
		return '©'
	case c >= 0x20:
		return rune(c)
	}
	return ' '
}
