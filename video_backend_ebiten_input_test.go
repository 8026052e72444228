//go:build !headless

package main

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
)

func TestClipboardPaste_Normalize(t *testing.T) {
	in := []byte("a\r\nb\rc\n")
	got := normalizePasteText(in)
	want := "a\nb\nc\n"
	if string(got) != want {
		t.Fatalf("expected %q, got %q", want, string(got))
	}
}

func TestClipboardPaste_Cap(t *testing.T) {
	in := make([]byte, 5000)
	got := capPasteText(in, pasteLimit)
	if len(got) != pasteLimit {
		t.Fatalf("expected capped length %d, got %d", pasteLimit, len(got))
	}
	short := []byte("abc")
	if got := capPasteText(short, pasteLimit); string(got) != "abc" {
		t.Fatalf("short text changed: %q", got)
	}
}

func TestKeyTranslation(t *testing.T) {
	tests := []struct {
		key   ebiten.Key
		shift bool
		want  AceKey
	}{
		{ebiten.KeyEnter, false, KeyReturn},
		{ebiten.KeyEscape, false, KeyBreak},
		{ebiten.KeyBackspace, true, KeyBackspace},
		{ebiten.KeyF1, false, KeyDeleteLine},
		{ebiten.KeyF9, false, KeyGraphics},
		{ebiten.KeyArrowUp, false, KeyUp},
		{ebiten.KeyA, false, 'a'},
		{ebiten.KeyZ, true, 'Z'},
		{ebiten.KeyDigit4, false, '4'},
		{ebiten.KeyDigit4, true, '$'},
		{ebiten.KeyBackquote, false, '£'},
		{ebiten.KeySlash, true, '?'},
		{ebiten.KeySpace, true, ' '},
	}
	for _, tc := range tests {
		got, ok := aceKeyFor(tc.key, tc.shift)
		assert.Truef(t, ok, "key %v", tc.key)
		assert.Equalf(t, tc.want, got, "key %v shift %v", tc.key, tc.shift)
	}

	_, ok := aceKeyFor(ebiten.KeyF7, false)
	assert.False(t, ok)
}

func TestHostKeyTranslation(t *testing.T) {
	tests := map[ebiten.Key]HostKey{
		ebiten.KeyF3:  HostKeyAttachTape,
		ebiten.KeyF5:  HostKeyToggleSpeed,
		ebiten.KeyF11: HostKeySpool,
		ebiten.KeyF12: HostKeyReset,
	}
	for key, want := range tests {
		got, ok := hostKeyFor(key)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := hostKeyFor(ebiten.KeyA)
	assert.False(t, ok)
}

func TestClampScale(t *testing.T) {
	assert.Equal(t, 1, clampScale(0))
	assert.Equal(t, 3, clampScale(3))
	assert.Equal(t, maxScale, clampScale(99))
}

func TestStatusTokens(t *testing.T) {
	tokens := statusTokens(StatusLine{Speed: SpeedUnthrottled, Spooler: true})
	assert.Equal(t, []statusToken{
		{name: "fast", enabled: true},
		{name: "|", enabled: false},
		{name: "SPOOL", enabled: true},
	}, tokens)

	tokens = statusTokens(StatusLine{})
	assert.Equal(t, "normal", tokens[0].name)
	assert.False(t, tokens[0].enabled)
	assert.False(t, tokens[2].enabled)
}
