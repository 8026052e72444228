package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostReading(t *testing.T, input string) (*TerminalHost, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	out := &bytes.Buffer{}
	return &TerminalHost{in: f, out: out}, out
}

func TestTerminalHost_PromptFromPipe(t *testing.T) {
	h, out := hostReading(t, "  games.tap \nignored\n")
	line, err := h.Prompt("Enter tape image file:")
	require.NoError(t, err)
	assert.Equal(t, "games.tap", line)
	assert.Equal(t, "Enter tape image file:", out.String())
}

func TestTerminalHost_PromptWithoutNewline(t *testing.T) {
	h, _ := hostReading(t, "last.fs")
	line, err := h.Prompt("> ")
	require.NoError(t, err)
	assert.Equal(t, "last.fs", line)
}

func TestTerminalHost_PromptEOF(t *testing.T) {
	h, _ := hostReading(t, "")
	_, err := h.Prompt("> ")
	assert.Error(t, err)
}

func TestTerminalHost_OnePromptAtATime(t *testing.T) {
	h, _ := hostReading(t, "x\n")
	h.busy = true
	_, err := h.Prompt("> ")
	assert.ErrorIs(t, err, errPromptBusy)
}
