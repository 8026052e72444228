// ace_machine.go - Jupiter ACE machine assembly and host services for acemu

/*
License: GPLv3 or later
*/

/*
ace_machine.go - Machine

Machine wires the Z80 core to the ACE memory map, the port decoder and the
host-side collaborators (keyboard, tape deck, spooler, display). The CPU
goroutine owns memory and registers. Everything else reaches them through
the command queue, drained whenever the dispatcher consumes a tick.

Core Features:
- Power-on: ROM load, tape trap patches, RAM filled with 0xFF
- Dispatch loop with T-state throttling and interrupt/reset sampling
- Host services per tick: commands, spooler, display refresh
- Status snapshots for the GUI, scripts and the remote console
*/

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

const (
	defaultRefresh   = 4
	commandQueueSize = 64
)

// MachineConfig describes how to build a Machine. ROM takes precedence
// over ROMPath when both are set.
type MachineConfig struct {
	ROMPath string
	ROM     []byte
	Refresh int // interrupts per display refresh
	Speed   Speed
	Video   VideoOutput
	Prompt  LinePrompter
}

type Machine struct {
	cpu     *CPU_Z80
	mem     *AceMemory
	ports   *AcePorts
	keys    *Keyboard
	timing  *TimingController
	tape    *TapeDeck
	spool   *Spooler
	display *AceDisplay
	video   VideoOutput
	prompt  LinePrompter

	refresh int
	ticks   int

	commands chan func(*Machine)
	status   machineStatusStore

	observerMu       sync.Mutex
	spoolObservers   []SpoolerObserver
	refreshObservers []func(*Machine)

	// spoolFast is set by -S and by SpoolFast: the machine runs
	// unthrottled until the spooler closes.
	spoolFast atomic.Bool
	// hostResetPending marks a reset requested by the host; RAM and the
	// keyboard are cleared when the CPU takes it.
	hostResetPending atomic.Bool
	quit             atomic.Pointer[context.CancelFunc]
}

// NewMachine powers on a machine. The ROM must be exactly 8K.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	rom := cfg.ROM
	if rom == nil {
		data, err := os.ReadFile(cfg.ROMPath)
		if err != nil {
			return nil, &MachineError{Operation: "load ROM", Details: tr("Couldn't load ROM."), Err: err}
		}
		rom = data
	}
	if len(rom) != aceROMSize {
		return nil, &MachineError{
			Operation: "load ROM",
			Details:   tr("Couldn't load ROM."),
			Err:       fmt.Errorf("image is %d bytes, want %d", len(rom), aceROMSize),
		}
	}

	m := &Machine{
		mem:      NewAceMemory(),
		keys:     NewKeyboard(),
		timing:   NewTimingController(),
		tape:     NewTapeDeck(),
		display:  NewAceDisplay(),
		video:    cfg.Video,
		prompt:   cfg.Prompt,
		refresh:  cfg.Refresh,
		commands: make(chan func(*Machine), commandQueueSize),
	}
	if m.refresh <= 0 {
		m.refresh = defaultRefresh
	}
	m.status.init()

	m.mem.LoadROM(rom)
	PatchTapeTraps(m.mem)
	m.mem.Fill(aceRAMBase, aceMemTop, 0xFF)

	m.ports = NewAcePorts(m.keys)
	m.cpu = NewCPU_Z80(&aceBus{mem: m.mem, ports: m.ports})
	m.cpu.SetTrapHandler(m)
	m.spool = NewSpooler(m.keys, m.spoolerEvent)
	m.tape.AddObserver(m.tapeEvent)

	m.SetSpeed(cfg.Speed)
	if m.video != nil {
		m.video.SetInputHandler(m)
	}
	return m, nil
}

func (m *Machine) CPU() *CPU_Z80 { return m.cpu }
func (m *Machine) Memory() *AceMemory { return m.mem }
func (m *Machine) Keyboard() *Keyboard { return m.keys }
func (m *Machine) Tape() *TapeDeck { return m.tape }
func (m *Machine) Spooler() *Spooler { return m.spool }
func (m *Machine) Timing() *TimingController { return m.timing }

// SetQuitFunc installs what Quit calls, normally the cancel of the run
// context.
func (m *Machine) SetQuitFunc(cancel context.CancelFunc) {
	m.quit.Store(&cancel)
}

func (m *Machine) Quit() {
	if cancel := m.quit.Load(); cancel != nil {
		(*cancel)()
	}
}

// Run executes instructions until ctx ends. It starts the tick source
// first; CPU and memory survive cancellation so Run can be called again.
func (m *Machine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.timing.ResetBudget()
	tickDone := m.timing.Start(ctx)
	defer func() {
		cancel()
		<-tickDone
	}()

	for {
		if err := m.runStep(ctx); err != nil {
			return err
		}
	}
}

// runStep executes one instruction, throttles if the tick budget is
// spent, then samples the request state.
func (m *Machine) runStep(ctx context.Context) error {
	m.cpu.Step()

	if m.cpu.Tstates > m.timing.Budget() {
		if !m.timing.WaitTick(ctx) {
			return ctx.Err()
		}
		m.cpu.Tstates = 0
	}

	if !m.cpu.InterruptWindow() {
		return nil
	}
	switch m.timing.Consume() {
	case requestIdle:
		return nil
	case requestReset:
		m.cpu.Reset()
		m.timing.ResetBudget()
		if m.hostResetPending.Swap(false) {
			m.hostReset()
		}
	case requestInterrupt:
		m.cpu.Interrupt()
		m.ticks++
	}
	m.serviceHost()
	return ctx.Err()
}

// serviceHost runs on the CPU goroutine at an instruction boundary.
func (m *Machine) serviceHost() {
	m.drainCommands()
	if m.ticks < m.refresh {
		return
	}
	m.ticks = 0
	m.spool.Step()
	m.refreshDisplay()
}

func (m *Machine) drainCommands() {
	for {
		select {
		case cmd := <-m.commands:
			cmd(m)
		default:
			return
		}
	}
}

func (m *Machine) refreshDisplay() {
	m.display.Render(m.mem)
	if m.video != nil {
		if err := m.video.UpdateFrame(m.display.Frame()); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
	m.status.setSpooling(m.spool.Active())
	frames := m.status.advanceFrame()
	if m.video != nil {
		snap := m.status.snapshot()
		m.video.SetStatus(StatusLine{Speed: snap.speed, Tape: snap.tape, Spooler: snap.spooling, Frames: frames})
	}

	m.observerMu.Lock()
	observers := m.refreshObservers
	m.observerMu.Unlock()
	for _, o := range observers {
		o(m)
	}
}

// Post queues cmd to run on the CPU goroutine. It reports false when the
// queue is full.
func (m *Machine) Post(cmd func(*Machine)) bool {
	select {
	case m.commands <- cmd:
		return true
	default:
		return false
	}
}

// Query runs fn on the CPU goroutine and waits for its result. The
// machine must be running.
func Query[T any](ctx context.Context, m *Machine, fn func(*Machine) T) (T, error) {
	result := make(chan T, 1)
	var zero T
	select {
	case m.commands <- func(m *Machine) { result <- fn(m) }:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// HostReset clears RAM and the keyboard and resets the CPU at the next
// instruction boundary. It is the F12 key.
func (m *Machine) HostReset() {
	m.hostResetPending.Store(true)
	m.timing.RequestReset()
}

func (m *Machine) hostReset() {
	m.mem.Fill(aceRAMBase, aceMemTop, 0xFF)
	m.keys.Clear()
	m.display.ForceRedraw()
}

func (m *Machine) SetSpeed(s Speed) {
	m.timing.SetSpeed(s)
	m.status.setSpeed(m.timing.Speed())
}

func (m *Machine) ToggleSpeed() {
	if m.timing.Speed() == SpeedNormal {
		m.SetSpeed(SpeedUnthrottled)
	} else {
		m.SetSpeed(SpeedNormal)
	}
}

// SpoolFast opens a spool file and runs unthrottled until it closes.
func (m *Machine) SpoolFast(path string) error {
	if err := m.spool.Open(path); err != nil {
		return err
	}
	m.spoolFast.Store(true)
	m.SetSpeed(SpeedUnthrottled)
	return nil
}

func (m *Machine) AddSpoolerObserver(o SpoolerObserver) {
	m.observerMu.Lock()
	m.spoolObservers = append(m.spoolObservers, o)
	m.observerMu.Unlock()
}

// AddRefreshObserver registers fn to run on the CPU goroutine after every
// display refresh.
func (m *Machine) AddRefreshObserver(fn func(*Machine)) {
	m.observerMu.Lock()
	m.refreshObservers = append(m.refreshObservers, fn)
	m.observerMu.Unlock()
}

func (m *Machine) spoolerEvent(ev SpoolerEvent) {
	if ev == SpoolerClosed && m.spoolFast.CompareAndSwap(true, false) {
		m.SetSpeed(SpeedNormal)
	}
	m.status.setSpooling(m.spool.Active())

	m.observerMu.Lock()
	observers := m.spoolObservers
	m.observerMu.Unlock()
	for _, o := range observers {
		o(ev)
	}
}

func (m *Machine) tapeEvent(ev TapeEvent) {
	if ev.Kind != TapeNoMessage {
		m.status.setTape(ev.Message)
	}
}

// LoadTrap services ED FC: HL is the destination of the block.
func (m *Machine) LoadTrap(cpu *CPU_Z80) {
	m.tape.Load(m.mem, cpu.HL())
}

// SaveTrap services ED FD: HL is the block address and DE its length.
func (m *Machine) SaveTrap(cpu *CPU_Z80) {
	m.tape.Save(m.mem, cpu.HL(), cpu.DE())
}

// Status returns the last published machine status.
func (m *Machine) Status() StatusLine {
	snap := m.status.snapshot()
	return StatusLine{Speed: snap.speed, Tape: snap.tape, Spooler: snap.spooling, Frames: snap.frames}
}

// WaitFrames blocks until n more display refreshes have happened.
func (m *Machine) WaitFrames(ctx context.Context, n int) error {
	return m.status.waitFrames(ctx, uint64(max(n, 0)))
}

// HandleKey implements InputHandler. Matrix keys are ignored while the
// spooler is typing.
func (m *Machine) HandleKey(ev KeyEvent) {
	if ev.Host != HostKeyNone {
		if ev.Pressed {
			m.hostKey(ev.Host)
		}
		return
	}
	if m.spool.Active() {
		return
	}
	if ev.Pressed {
		m.keys.Press(ev.Key)
	} else {
		m.keys.Release(ev.Key)
	}
}

func (m *Machine) HandlePaste(text string) {
	m.spool.Type(text)
}

func (m *Machine) hostKey(k HostKey) {
	switch k {
	case HostKeyAttachTape:
		m.promptFor(tr("Enter tape image file:"), func(path string) {
			if err := m.tape.Attach(path); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		})
	case HostKeySpool:
		m.promptFor(tr("Enter spool file:"), func(path string) {
			if err := m.spool.Open(path); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		})
	case HostKeyReset:
		m.HostReset()
	case HostKeyToggleSpeed:
		m.ToggleSpeed()
	case HostKeyQuit:
		m.Quit()
	}
}

// promptFor asks on the terminal without blocking the GUI event loop.
func (m *Machine) promptFor(label string, then func(string)) {
	if m.prompt == nil {
		return
	}
	go func() {
		path, err := m.prompt.Prompt(label)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return
		}
		if path != "" {
			then(path)
		}
	}()
}

// Shutdown releases host resources: the tape file, the spooler sources
// and the display.
func (m *Machine) Shutdown() {
	m.tape.Detach()
	m.spool.Close()
	if m.video != nil {
		_ = m.video.Stop()
	}
}
