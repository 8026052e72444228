//go:build !headless

// video_backend_ebiten.go - Ebiten video backend for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const (
	maxScale       = 8
	pasteLimit     = 4096
	statusBarLines = 2
	statusLineH    = 13
)

type EbitenOutput struct {
	running     bool
	window      *ebiten.Image
	width       int
	height      int
	border      int
	fullscreen  bool
	scale       int
	title       string
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  uint64
	refreshRate int

	input  InputHandler
	status StatusLine

	// held remembers which ACE key each host key pressed, so the release
	// matches even if shift changed in between.
	held map[ebiten.Key]AceKey

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
}

// newVideoOutput picks the windowed backend. The frame limit only applies
// to headless builds.
func newVideoOutput(_ uint64) (VideoOutput, error) {
	return NewEbitenOutput()
}

func NewEbitenOutput() (VideoOutput, error) {
	cfg := DefaultDisplayConfig(2)
	eo := &EbitenOutput{
		held:          make(map[ebiten.Key]AceKey),
		showStatusBar: true,
	}
	if err := eo.SetDisplayConfig(cfg); err != nil {
		return nil, err
	}
	return eo, nil
}

func (eo *EbitenOutput) Start() error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()
	if eo.running {
		return nil
	}
	eo.running = true
	eo.applyWindow()
	ebiten.SetWindowTitle(eo.title)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	return nil
}

// Run drives the event loop on the calling goroutine until the window is
// closed or Stop is called.
func (eo *EbitenOutput) Run() error {
	if err := ebiten.RunGame(eo); err != nil {
		return &VideoError{Operation: "run", Details: "ebiten event loop", Err: err}
	}
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.bufferMutex.Lock()
	eo.running = false
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) IsStarted() bool {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.running
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	if config.Width <= 0 || config.Height <= 0 {
		return &VideoError{
			Operation: "configure",
			Details:   fmt.Sprintf("invalid size %dx%d", config.Width, config.Height),
		}
	}

	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	eo.width = config.Width
	eo.height = config.Height
	eo.border = max(config.Border, 0)
	eo.scale = clampScale(config.Scale)
	eo.fullscreen = config.Fullscreen
	eo.refreshRate = config.RefreshRate
	eo.title = config.Title
	if newSize := eo.width * eo.height * 4; len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	if eo.running {
		eo.applyWindow()
	}
	return nil
}

func (eo *EbitenOutput) applyWindow() {
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		w, h := eo.logicalSize()
		ebiten.SetWindowSize(w*eo.scale, h*eo.scale)
	}
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		Border:      eo.border,
		RefreshRate: eo.refreshRate,
		Fullscreen:  eo.fullscreen,
		Title:       eo.title,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount
}

func (eo *EbitenOutput) SetStatus(status StatusLine) {
	eo.bufferMutex.Lock()
	eo.status = status
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetInputHandler(h InputHandler) {
	eo.bufferMutex.Lock()
	eo.input = h
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		eo.emit(KeyEvent{Host: HostKeyQuit, Pressed: true})
		return ebiten.Termination
	}
	if !eo.IsStarted() {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		eo.applyWindow()
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	eo.handleKeyboardInput()
	return nil
}

func (eo *EbitenOutput) emit(ev KeyEvent) {
	eo.bufferMutex.RLock()
	h := eo.input
	eo.bufferMutex.RUnlock()
	if h != nil {
		h.HandleKey(ev)
	}
}

func (eo *EbitenOutput) handleKeyboardInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	if ctrl {
		if shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
			eo.handleClipboardPaste()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
			eo.emit(KeyEvent{Host: HostKeyQuit, Pressed: true})
		}
		return
	}

	for _, key := range inpututil.AppendJustPressedKeys(nil) {
		if host, ok := hostKeyFor(key); ok {
			eo.emit(KeyEvent{Host: host, Pressed: true})
			continue
		}
		ace, ok := aceKeyFor(key, shift)
		if !ok {
			continue
		}
		eo.held[key] = ace
		eo.emit(KeyEvent{Key: ace, Pressed: true})
	}
	for _, key := range inpututil.AppendJustReleasedKeys(nil) {
		ace, ok := eo.held[key]
		if !ok {
			continue
		}
		delete(eo.held, key)
		eo.emit(KeyEvent{Key: ace})
	}
}

// hostKeyFor maps the emulator's own function keys. F2 and F10 are
// handled by the backend itself.
func hostKeyFor(key ebiten.Key) (HostKey, bool) {
	switch key {
	case ebiten.KeyF3:
		return HostKeyAttachTape, true
	case ebiten.KeyF5:
		return HostKeyToggleSpeed, true
	case ebiten.KeyF11:
		return HostKeySpool, true
	case ebiten.KeyF12:
		return HostKeyReset, true
	}
	return HostKeyNone, false
}

var ebitenSpecialKeys = map[ebiten.Key]AceKey{
	ebiten.KeyEnter:       KeyReturn,
	ebiten.KeyNumpadEnter: KeyReturn,
	ebiten.KeyBackspace:   KeyBackspace,
	ebiten.KeyDelete:      KeyDelete,
	ebiten.KeyEscape:      KeyBreak,
	ebiten.KeyTab:         KeyTab,
	ebiten.KeySpace:       ' ',
	ebiten.KeyArrowLeft:   KeyLeft,
	ebiten.KeyArrowRight:  KeyRight,
	ebiten.KeyArrowUp:     KeyUp,
	ebiten.KeyArrowDown:   KeyDown,
	ebiten.KeyF1:          KeyDeleteLine,
	ebiten.KeyF4:          KeyInverseVideo,
	ebiten.KeyF9:          KeyGraphics,
}

// US layout: unshifted and shifted character for each printable key.
var ebitenCharKeys = map[ebiten.Key][2]rune{
	ebiten.KeyDigit1:       {'1', '!'},
	ebiten.KeyDigit2:       {'2', '@'},
	ebiten.KeyDigit3:       {'3', '#'},
	ebiten.KeyDigit4:       {'4', '$'},
	ebiten.KeyDigit5:       {'5', '%'},
	ebiten.KeyDigit6:       {'6', '^'},
	ebiten.KeyDigit7:       {'7', '&'},
	ebiten.KeyDigit8:       {'8', '*'},
	ebiten.KeyDigit9:       {'9', '('},
	ebiten.KeyDigit0:       {'0', ')'},
	ebiten.KeyMinus:        {'-', '_'},
	ebiten.KeyEqual:        {'=', '+'},
	ebiten.KeyBracketLeft:  {'[', '{'},
	ebiten.KeyBracketRight: {']', '}'},
	ebiten.KeyBackslash:    {'\\', '|'},
	ebiten.KeySemicolon:    {';', ':'},
	ebiten.KeyQuote:        {'\'', '"'},
	ebiten.KeyBackquote:    {'£', '~'},
	ebiten.KeyComma:        {',', '<'},
	ebiten.KeyPeriod:       {'.', '>'},
	ebiten.KeySlash:        {'/', '?'},
}

var ebitenLetterKeys = [26]ebiten.Key{
	ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
	ebiten.KeyG, ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL,
	ebiten.KeyM, ebiten.KeyN, ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR,
	ebiten.KeyS, ebiten.KeyT, ebiten.KeyU, ebiten.KeyV, ebiten.KeyW, ebiten.KeyX,
	ebiten.KeyY, ebiten.KeyZ,
}

func aceKeyFor(key ebiten.Key, shift bool) (AceKey, bool) {
	if k, ok := ebitenSpecialKeys[key]; ok {
		return k, true
	}
	for i, letter := range ebitenLetterKeys {
		if key != letter {
			continue
		}
		if shift {
			return AceKey('A' + i), true
		}
		return AceKey('a' + i), true
	}
	if pair, ok := ebitenCharKeys[key]; ok {
		if shift {
			return AceKey(pair[1]), true
		}
		return AceKey(pair[0]), true
	}
	return 0, false
}

func clampScale(scale int) int {
	return min(max(scale, 1), maxScale)
}

func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}

func capPasteText(raw []byte, max int) []byte {
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	data = capPasteText(normalizePasteText(data), pasteLimit)

	eo.bufferMutex.RLock()
	h := eo.input
	eo.bufferMutex.RUnlock()
	if h != nil {
		h.HandlePaste(string(data))
	}
}

func (eo *EbitenOutput) logicalSize() (int, int) {
	return eo.width + 2*eo.border, eo.height + 2*eo.border
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.bufferMutex.Lock()
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}
	eo.window.WritePixels(eo.frameBuffer)
	border := eo.border
	showStatusBar := eo.showStatusBar
	status := eo.status
	eo.bufferMutex.Unlock()

	screen.Fill(color.White)
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(border), float64(border))
	screen.DrawImage(eo.window, opts)
	if showStatusBar {
		eo.drawStatusBar(screen, status)
	}
	eo.frameCount++
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.logicalSize()
}

type statusToken struct {
	name    string
	enabled bool
}

func statusTokens(s StatusLine) []statusToken {
	return []statusToken{
		{name: s.Speed.String(), enabled: s.Speed == SpeedUnthrottled},
		{name: "|", enabled: false},
		{name: "SPOOL", enabled: s.Spooler},
	}
}

func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for _, token := range tokens {
		c := offColor
		if token.enabled {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image, s StatusLine) {
	w, h := eo.logicalSize()
	barHeight := statusBarLines*statusLineH + 6
	if barHeight >= h {
		return
	}
	y := h - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(w), float64(barHeight), color.RGBA{0, 0, 0, 180})

	drawStatusLine(screen, 6, y+statusLineH, "ACE", statusTokens(s))
	if s.Tape != "" {
		text.Draw(screen, s.Tape, basicfont.Face7x13, 6, y+2*statusLineH, color.RGBA{190, 190, 190, 255})
	}
}
