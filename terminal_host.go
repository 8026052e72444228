package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// LinePrompter asks the operator for one line of text, such as a tape or
// spool filename.
type LinePrompter interface {
	Prompt(label string) (string, error)
}

var errPromptBusy = errors.New("another prompt is already open")

// TerminalHost prompts on the controlling terminal. The GUI keeps running
// while the operator types; only one prompt can be open at a time.
type TerminalHost struct {
	in  *os.File
	out io.Writer

	mu   sync.Mutex
	busy bool
}

func NewTerminalHost() *TerminalHost {
	return &TerminalHost{in: os.Stdin, out: os.Stdout}
}

// Prompt reads a line with echo and line editing. When stdin is not a
// terminal it falls back to a plain buffered read.
func (h *TerminalHost) Prompt(label string) (string, error) {
	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return "", errPromptBusy
	}
	h.busy = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.busy = false
		h.mu.Unlock()
	}()

	fd := int(h.in.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprint(h.out, label)
		line, err := bufio.NewReader(h.in).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	// Raw mode disables the OS echo; term.Terminal does its own.
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("terminal prompt: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{h.in, h.out}, label)
	line, err := t.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
