// video_interface.go - Display backend interface for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"fmt"
)

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error { return e.Err }

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	Border      int // Paper-coloured margin around the picture, before scaling
	RefreshRate int // Target refresh rate in Hz
	Fullscreen  bool
	Title       string
}

// StatusLine is the machine state shown in the backend's status bar.
type StatusLine struct {
	Speed   Speed
	Tape    string
	Spooler bool
	Frames  uint64
}

// KeyEvent is a host key translated for the machine. Host marks the
// emulator's own function keys, which never reach the ACE keyboard.
type KeyEvent struct {
	Key     AceKey
	Host    HostKey
	Pressed bool
}

type HostKey int

const (
	HostKeyNone HostKey = iota
	HostKeyAttachTape
	HostKeySpool
	HostKeyReset
	HostKeyToggleSpeed
	HostKeyToggleStatus
	HostKeyFullscreen
	HostKeyQuit
	HostKeyPaste
)

// InputHandler receives key events from the backend's event loop.
type InputHandler interface {
	HandleKey(ev KeyEvent)
	HandlePaste(text string)
}

// VideoOutput defines the minimal interface that backends must implement
type VideoOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // Takes raw RGBA pixels only

	GetFrameCount() uint64

	// Run owns the calling goroutine until the window closes or Stop is
	// called. GUI toolkits need it to be the main goroutine.
	Run() error

	SetStatus(status StatusLine)
	SetInputHandler(h InputHandler)
}

// DefaultDisplayConfig is the ACE picture at the given scale.
func DefaultDisplayConfig(scale int) DisplayConfig {
	if scale < 1 {
		scale = 1
	}
	return DisplayConfig{
		Width:       aceScreenWidth,
		Height:      aceScreenHeight,
		Scale:       scale,
		Border:      20,
		RefreshRate: 50,
		Title:       "acemu",
	}
}
