// tape.go - Cassette deck emulation for acemu

/*
License: GPLv3 or later
*/

/*
tape.go - Tape Deck

The ROM's cassette routines are replaced by two traps. The load trap asks
the deck for the next block, the save trap hands it a block to append.
Tape images are plain files of blocks:

    u16 little-endian length (payload size + 1)
    payload
    XOR checksum of the payload

A file on tape is a header block (type, 10 byte name, sizes) followed by
a data block. Loading searches forward for the header whose name matches
the one the ROM asked for, then loads the data block that follows it.
With no image attached the deck plays a built-in "empty tape" that holds
a single file named "other", so a LOAD always ends with something on
screen instead of hanging.
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
)

const (
	// tapeLoadTypeAddr is the ROM variable holding the requested file type
	// (0 for a dictionary); the requested name follows it.
	tapeLoadTypeAddr = 9985
	tapeLoadNameAddr = tapeLoadTypeAddr + 1
	tapeNameLen      = 10

	tapeLoadTrapAddr = 0x18A7
	tapeSaveTrapAddr = 0x1820

	// The empty tape has ended once its header and data block are read.
	emptyTapeEnd = 28
)

// emptyTapeBytes is loaded when a bytes file was asked for: a screen that
// reads "Couldn't load your file!".
var emptyTapeBytes = func() []byte {
	b := make([]byte, 799)
	copy(b, []byte{
		0x1A, 0x00, 0x20, 0x6F, 0x74, 0x68, 0x65, 0x72, 0x20, 0x20, 0x20, 0x20,
		0x20, 0x00, 0x03, 0x00, 0x24, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
		0x20, 0x20, 0x20, 0x20, 0x01, 0x03, 0x43, 0x6F, 0x75, 0x6C, 0x64, 0x6E,
		0x27, 0x74, 0x20, 0x6C, 0x6F, 0x61, 0x64, 0x20, 0x79, 0x6F, 0x75, 0x72,
		0x20, 0x66, 0x69, 0x6C, 0x65, 0x21, 0x20,
	})
	return b
}()

// emptyTapeDict is loaded when a dictionary was asked for: a one-word
// Forth program that prints the same complaint.
var emptyTapeDict = []byte{
	0x1A, 0x00, 0x00, 0x6F, 0x74, 0x68, 0x65, 0x72, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x2A, 0x00, 0x51, 0x3C, 0x58, 0x3C, 0x4C, 0x3C, 0x4C, 0x3C, 0x4F,
	0x3C, 0x7B, 0x3C, 0x20, 0x2B, 0x00, 0x52, 0x55, 0xCE, 0x27, 0x00, 0x49,
	0x3C, 0x03, 0xC3, 0x0E, 0x1D, 0x0A, 0x96, 0x13, 0x18, 0x00, 0x43, 0x6F,
	0x75, 0x6C, 0x64, 0x6E, 0x27, 0x74, 0x20, 0x6C, 0x6F, 0x61, 0x64, 0x20,
	0x79, 0x6F, 0x75, 0x72, 0x20, 0x66, 0x69, 0x6C, 0x65, 0x21, 0xB6, 0x04,
	0xFF, 0x00,
}

type TapeMessageKind int

const (
	TapeNoMessage TapeMessageKind = iota
	TapeMessage
	TapeErrorMessage
)

// TapeEvent is what observers see after every deck operation.
type TapeEvent struct {
	Attached bool
	Position int64
	Filename string
	Kind     TapeMessageKind
	Message  string
}

func (e TapeEvent) String() string {
	msg := e.Message
	if e.Kind == TapeErrorMessage {
		msg = "Error: " + msg
	}
	if e.Attached {
		return fmt.Sprintf("TAPE: %s Pos: %04d - %s", e.Filename, e.Position, msg)
	}
	return fmt.Sprintf("TAPE: empty tape Pos: %04d - %s", e.Position, msg)
}

type TapeObserver func(TapeEvent)

// TapeMemory is the slice of the memory map the deck reads and writes.
// Loads go through Store so ROM protection and mirroring still apply.
type TapeMemory interface {
	Fetch(addr uint16) byte
	Store(addr uint16, value byte)
}

type TapeDeck struct {
	mu sync.Mutex

	file     *os.File
	filename string
	atEOF    bool

	empty    []byte
	emptyPos int

	loadHeader bool
	saveHeader bool
	requested  string

	observers []TapeObserver
}

func NewTapeDeck() *TapeDeck {
	return &TapeDeck{
		empty:      emptyTapeDict,
		loadHeader: true,
		saveHeader: true,
	}
}

// PatchTapeTraps replaces the ROM's cassette load and save entry points
// with the ED FC / ED FD traps followed by RET.
func PatchTapeTraps(mem *AceMemory) {
	mem.PatchROM(tapeLoadTrapAddr, 0xED, 0xFC, 0xC9)
	mem.PatchROM(tapeSaveTrapAddr, 0xED, 0xFD, 0xC9)
}

func (t *TapeDeck) AddObserver(o TapeObserver) {
	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()
}

func (t *TapeDeck) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file != nil
}

// Attach opens path as the tape image, creating it if needed, and rewinds
// to the start. Any previous image is detached first.
func (t *TapeDeck) Attach(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.detachLocked()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	}
	if err != nil {
		t.notify(TapeErrorMessage, tr("Couldn't create file."))
		return &TapeError{Operation: "attach", Details: path, Err: err}
	}

	t.file = f
	t.filename = path
	t.rewind()
	t.notify(TapeMessage, tr("Tape image attached."))
	return nil
}

func (t *TapeDeck) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked()
}

func (t *TapeDeck) detachLocked() {
	if t.file == nil {
		return
	}
	t.file.Close()
	t.file = nil
	t.filename = ""
	t.atEOF = false
	t.notify(TapeMessage, tr("Tape image detached."))
}

// Load services the load trap: dest is where the ROM wants the block.
func (t *TapeDeck) Load(mem TapeMemory, dest uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.eof() {
		t.notify(TapeMessage, tr("End of tape reached.  Rewinding."))
		t.rewind()
		t.loadHeader = true
	}

	if !t.loadHeader {
		t.loadBlock(mem, dest)
		t.loadHeader = true
		t.notify(TapeMessage, tr("Load complete."))
		return
	}

	t.selectEmptyTape(mem.Fetch(tapeLoadTypeAddr))
	t.requested = extractTapeName(mem, tapeLoadNameAddr)
	t.notify(TapeMessage, tr("Searching for file: %s", t.requested))

	if !t.loadBlock(mem, dest) {
		// Ran off the end while looking for a header. The next call
		// rewinds and searches again from the start.
		return
	}
	found := extractTapeName(mem, dest+1)
	if found != t.requested {
		t.skipBlock()
		t.notify(TapeMessage, tr("Skipping file: %s", found))
		return
	}
	t.loadHeader = false
	t.notify(TapeMessage, tr("Found file: %s", found))
}

// Save services the save trap: size bytes at src form one block. Blocks
// alternate header, data. A header save cuts the image at the current
// position so older files after it are dropped.
func (t *TapeDeck) Save(mem TapeMemory, src uint16, size uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := t.saveHeader
	t.saveHeader = !t.saveHeader

	if t.file == nil {
		if header {
			t.notify(TapeMessage, tr("No tape file attached."))
		}
		return
	}

	var msg string
	if header {
		msg = tr("Saving to file: %s", extractTapeName(mem, src+1))
		t.truncate()
	} else {
		msg = tr("Save complete.")
	}
	if err := t.saveBlock(mem, src, size); err != nil {
		t.notify(TapeErrorMessage, tr("Couldn't write block: %v", err))
		return
	}
	t.notify(TapeMessage, msg)
}

func (t *TapeDeck) selectEmptyTape(loadType byte) {
	if loadType == 0 {
		t.empty = emptyTapeDict
	} else {
		t.empty = emptyTapeBytes
	}
	t.emptyPos = 0
}

func (t *TapeDeck) eof() bool {
	if t.file != nil {
		return t.atEOF
	}
	return t.emptyPos > emptyTapeEnd
}

func (t *TapeDeck) rewind() {
	t.atEOF = false
	if t.file != nil {
		t.file.Seek(0, io.SeekStart)
		return
	}
	t.emptyPos = 0
}

func (t *TapeDeck) position() int64 {
	if t.file == nil {
		return int64(t.emptyPos)
	}
	pos, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return pos
}

func (t *TapeDeck) readByte() (byte, bool) {
	var b [1]byte
	if _, err := io.ReadFull(t.file, b[:]); err != nil {
		t.atEOF = true
		return 0, false
	}
	return b[0], true
}

func (t *TapeDeck) readLength() (int, bool) {
	lo, ok := t.readByte()
	if !ok {
		return 0, false
	}
	hi, ok := t.readByte()
	if !ok {
		return 0, false
	}
	return int(lo) | int(hi)<<8, true
}

// loadBlock copies the next block to dest. It reports false when the
// image ended before a block length could be read.
func (t *TapeDeck) loadBlock(mem TapeMemory, dest uint16) bool {
	if t.file == nil {
		return t.loadEmptyBlock(mem, dest)
	}

	size, ok := t.readLength()
	if !ok {
		return false
	}
	payload := make([]byte, max(size-1, 0))
	n, err := io.ReadFull(t.file, payload)
	for i := range n {
		mem.Store(dest+uint16(i), payload[i])
	}
	if err != nil {
		t.atEOF = true
		return true
	}
	t.readByte()
	return true
}

func (t *TapeDeck) loadEmptyBlock(mem TapeMemory, dest uint16) bool {
	if t.emptyPos+2 > len(t.empty) {
		t.emptyPos = len(t.empty)
		return false
	}
	size := int(t.empty[t.emptyPos]) | int(t.empty[t.emptyPos+1])<<8
	t.emptyPos += 2
	for i := range size {
		var b byte
		if p := t.emptyPos + i; p < len(t.empty) {
			b = t.empty[p]
		}
		mem.Store(dest+uint16(i), b)
	}
	t.emptyPos += size
	return true
}

func (t *TapeDeck) skipBlock() {
	if t.file == nil {
		if t.emptyPos+2 > len(t.empty) {
			t.emptyPos = len(t.empty)
			return
		}
		size := int(t.empty[t.emptyPos]) | int(t.empty[t.emptyPos+1])<<8
		t.emptyPos += 2 + size
		return
	}
	size, ok := t.readLength()
	if !ok {
		return
	}
	t.file.Seek(int64(size), io.SeekCurrent)
}

func (t *TapeDeck) truncate() {
	pos := t.position()
	if err := t.file.Truncate(pos); err != nil {
		t.notify(TapeErrorMessage, tr("Couldn't truncate file."))
	}
}

func (t *TapeDeck) saveBlock(mem TapeMemory, src uint16, size uint16) error {
	block := make([]byte, 0, int(size)+3)
	length := size + 1
	block = append(block, byte(length), byte(length>>8))
	var sum byte
	for i := range int(size) {
		b := mem.Fetch(src + uint16(i))
		sum ^= b
		block = append(block, b)
	}
	block = append(block, sum)

	if _, err := t.file.Write(block); err != nil {
		return err
	}
	return t.file.Sync()
}

func (t *TapeDeck) notify(kind TapeMessageKind, message string) {
	ev := TapeEvent{
		Attached: t.file != nil,
		Position: t.position(),
		Kind:     kind,
		Message:  message,
	}
	if ev.Attached {
		ev.Filename = t.filename
	}
	for _, o := range t.observers {
		o(ev)
	}
}

// extractTapeName reads a 10 byte tape file name, cut at the first
// whitespace or NUL.
func extractTapeName(mem TapeMemory, addr uint16) string {
	var sb strings.Builder
	for i := range uint16(tapeNameLen) {
		c := mem.Fetch(addr + i)
		if c == 0 || unicode.IsSpace(rune(c)) {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// PrintTapeEvent is the console observer: messages to stdout, errors to
// stderr.
func PrintTapeEvent(ev TapeEvent) {
	if ev.Kind == TapeErrorMessage {
		fmt.Fprintln(os.Stderr, ev.String())
		return
	}
	if ev.Kind == TapeNoMessage {
		if ev.Attached {
			fmt.Printf("TAPE: %s Pos: %04d\n", ev.Filename, ev.Position)
		}
		return
	}
	fmt.Println(ev.String())
}
