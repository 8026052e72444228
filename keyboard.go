// keyboard.go - Jupiter ACE keyboard matrix for acemu

/*
License: GPLv3 or later
*/

/*
keyboard.go - Keyboard Matrix

The ACE scans its keyboard as eight half-rows of five keys, read through
port 0xFE with one high address line pulled low. A held key pulls its bit
low. Host keys are translated straight to matrix positions, so a host
character that needs SYMBOL SHIFT on the ACE (for example $ or ^) presses
both the symbol shift bit and the key in one go. The price is that the
shift keys cannot be detected on their own.
*/

package main

import "sync"

// AceKey identifies a host key. Printable keys are their rune; the others
// are the constants below, placed above the Unicode range.
type AceKey rune

const (
	KeyDeleteLine AceKey = 0x110000 + iota
	KeyInverseVideo
	KeyGraphics
	KeyLeft
	KeyDown
	KeyUp
	KeyRight
	KeyBackspace
	KeyDelete
	KeyBreak
	KeyReturn
	KeyTab
)

const keyboardRows = 8

// keyPress lists the rows a key pulls low and the AND mask for each. row2
// is -1 when only one row is involved.
type keyPress struct {
	row1  int
	mask1 byte
	row2  int
	mask2 byte
}

var aceKeyTable = map[AceKey]keyPress{
	KeyDeleteLine:   {3, 0xFE, 0, 0xFE},
	KeyInverseVideo: {3, 0xF7, 0, 0xFE},
	KeyGraphics:     {4, 0xFD, 0, 0xFE},
	KeyLeft:         {3, 0xEF, 0, 0xFE},
	KeyDown:         {4, 0xF7, 0, 0xFE},
	KeyUp:           {4, 0xEF, 0, 0xFE},
	KeyRight:        {4, 0xFB, 0, 0xFE},
	KeyBackspace:    {0, 0xFE, 4, 0xFE},
	KeyDelete:       {0, 0xFE, 4, 0xFE},
	KeyBreak:        {7, 0xFE, 0, 0xFE},
	KeyReturn:       {6, 0xFE, -1, 0},
	KeyTab:          {7, 0xFE, -1, 0},

	'1': {3, 0xFE, -1, 0},
	'2': {3, 0xFD, -1, 0},
	'3': {3, 0xFB, -1, 0},
	'4': {3, 0xF7, -1, 0},
	'5': {3, 0xEF, -1, 0},
	'6': {4, 0xEF, -1, 0},
	'7': {4, 0xF7, -1, 0},
	'8': {4, 0xFB, -1, 0},
	'9': {4, 0xFD, -1, 0},
	'0': {4, 0xFE, -1, 0},

	'!': {3, 0xFE, 0, 0xFD},
	'@': {3, 0xFD, 0, 0xFD},
	'#': {3, 0xFB, 0, 0xFD},
	'$': {3, 0xF7, 0, 0xFD},
	'%': {3, 0xEF, 0, 0xFD},
	'&': {4, 0xEF, 0, 0xFD},
	'\'': {4, 0xF7, 0, 0xFD},
	'(': {4, 0xFB, 0, 0xFD},
	')': {4, 0xFD, 0, 0xFD},
	'_': {4, 0xFE, 0, 0xFD},

	'A': {0, 0xFE, 1, 0xFE},
	'a': {1, 0xFE, -1, 0},
	'B': {0, 0xFE, 7, 0xF7},
	'b': {7, 0xF7, -1, 0},
	'C': {0, 0xEE, -1, 0},
	'c': {0, 0xEF, -1, 0},
	'D': {0, 0xFE, 1, 0xFB},
	'd': {1, 0xFB, -1, 0},
	'E': {0, 0xFE, 2, 0xFB},
	'e': {2, 0xFB, -1, 0},
	'F': {0, 0xFE, 1, 0xF7},
	'f': {1, 0xF7, -1, 0},
	'G': {0, 0xFE, 1, 0xEF},
	'g': {1, 0xEF, -1, 0},
	'H': {0, 0xFE, 6, 0xEF},
	'h': {6, 0xEF, -1, 0},
	'I': {0, 0xFE, 5, 0xFB},
	'i': {5, 0xFB, -1, 0},
	'J': {0, 0xFE, 6, 0xF7},
	'j': {6, 0xF7, -1, 0},
	'K': {0, 0xFE, 6, 0xFB},
	'k': {6, 0xFB, -1, 0},
	'L': {0, 0xFE, 6, 0xFD},
	'l': {6, 0xFD, -1, 0},
	'M': {0, 0xFE, 7, 0xFD},
	'm': {7, 0xFD, -1, 0},
	'N': {0, 0xFE, 7, 0xFB},
	'n': {7, 0xFB, -1, 0},
	'O': {0, 0xFE, 5, 0xFD},
	'o': {5, 0xFD, -1, 0},
	'P': {0, 0xFE, 5, 0xFE},
	'p': {5, 0xFE, -1, 0},
	'Q': {0, 0xFE, 2, 0xFE},
	'q': {2, 0xFE, -1, 0},
	'R': {0, 0xFE, 2, 0xF7},
	'r': {2, 0xF7, -1, 0},
	'S': {0, 0xFE, 1, 0xFD},
	's': {1, 0xFD, -1, 0},
	'T': {0, 0xFE, 2, 0xEF},
	't': {2, 0xEF, -1, 0},
	'U': {0, 0xFE, 5, 0xF7},
	'u': {5, 0xF7, -1, 0},
	'V': {0, 0xFE, 7, 0xEF},
	'v': {7, 0xEF, -1, 0},
	'W': {0, 0xFE, 2, 0xFD},
	'w': {2, 0xFD, -1, 0},
	'X': {0, 0xF6, -1, 0},
	'x': {0, 0xF7, -1, 0},
	'Y': {0, 0xFE, 5, 0xEF},
	'y': {5, 0xEF, -1, 0},
	'Z': {0, 0xFA, -1, 0},
	'z': {0, 0xFB, -1, 0},

	'<':  {2, 0xF7, 0, 0xFD},
	'>':  {2, 0xEF, 0, 0xFD},
	'[':  {5, 0xEF, 0, 0xFD},
	']':  {5, 0xF7, 0, 0xFD},
	'©':  {5, 0xFB, 0, 0xFD},
	';':  {5, 0xFD, 0, 0xFD},
	'"':  {5, 0xFE, 0, 0xFD},
	'~':  {1, 0xFE, 0, 0xFD},
	'|':  {1, 0xFD, 0, 0xFD},
	'\\': {1, 0xFB, 0, 0xFD},
	'{':  {1, 0xF7, 0, 0xFD},
	'}':  {1, 0xEF, 0, 0xFD},
	'^':  {6, 0xEF, 0, 0xFD},
	'-':  {6, 0xF7, 0, 0xFD},
	'+':  {6, 0xFB, 0, 0xFD},
	'=':  {6, 0xFD, 0, 0xFD},
	'\n': {6, 0xFE, -1, 0},
	':':  {0, 0xF9, -1, 0},
	'£':  {0, 0xF5, -1, 0},
	'?':  {0, 0xED, -1, 0},
	'/':  {7, 0xEF, 0, 0xFD},
	'*':  {7, 0xF7, 0, 0xFD},
	',':  {7, 0xFB, 0, 0xFD},
	'.':  {7, 0xFD, 0, 0xFD},
	' ':  {7, 0xFE, -1, 0},
	'\t': {7, 0xFE, -1, 0},
}

// Keyboard is the emulated matrix. The GUI, the spooler and the port
// decoder all touch it from different goroutines.
type Keyboard struct {
	mu   sync.Mutex
	rows [keyboardRows]byte
}

func NewKeyboard() *Keyboard {
	k := &Keyboard{}
	k.Clear()
	return k
}

// Row returns half-row i, active low. Out-of-range rows read as idle.
func (k *Keyboard) Row(i int) byte {
	if i < 0 || i >= keyboardRows {
		return 0xFF
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rows[i]
}

func (k *Keyboard) Clear() {
	k.mu.Lock()
	for i := range k.rows {
		k.rows[i] = 0xFF
	}
	k.mu.Unlock()
}

// Press pulls the key's bits low. It reports whether the key exists on
// the ACE.
func (k *Keyboard) Press(key AceKey) bool {
	kp, ok := aceKeyTable[key]
	if !ok {
		return false
	}
	k.mu.Lock()
	k.rows[kp.row1] &= kp.mask1
	if kp.row2 >= 0 {
		k.rows[kp.row2] &= kp.mask2
	}
	k.mu.Unlock()
	return true
}

// Release lets the key's bits go high again. Releasing a key the ACE does
// not have clears the whole matrix, which also recovers from a press whose
// release was delivered with a different keysym.
func (k *Keyboard) Release(key AceKey) bool {
	kp, ok := aceKeyTable[key]
	if !ok {
		k.Clear()
		return false
	}
	k.mu.Lock()
	k.rows[kp.row1] |= ^kp.mask1
	if kp.row2 >= 0 {
		k.rows[kp.row2] |= ^kp.mask2
	}
	k.mu.Unlock()
	return true
}

// Snapshot returns a copy of all rows.
func (k *Keyboard) Snapshot() [keyboardRows]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rows
}
