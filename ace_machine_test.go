package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingVideo is a VideoOutput that keeps what the machine sends it.
type recordingVideo struct {
	mu      sync.Mutex
	config  DisplayConfig
	frames  uint64
	last    []byte
	status  StatusLine
	input   InputHandler
	started bool
	stopped bool
}

func (v *recordingVideo) Start() error {
	v.mu.Lock()
	v.started = true
	v.mu.Unlock()
	return nil
}

func (v *recordingVideo) Stop() error {
	v.mu.Lock()
	v.started = false
	v.stopped = true
	v.mu.Unlock()
	return nil
}

func (v *recordingVideo) Close() error { return v.Stop() }
func (v *recordingVideo) Run() error   { return nil }

func (v *recordingVideo) IsStarted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

func (v *recordingVideo) SetDisplayConfig(c DisplayConfig) error {
	v.mu.Lock()
	v.config = c
	v.mu.Unlock()
	return nil
}

func (v *recordingVideo) GetDisplayConfig() DisplayConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.config
}

func (v *recordingVideo) UpdateFrame(buffer []byte) error {
	v.mu.Lock()
	v.frames++
	v.last = append(v.last[:0], buffer...)
	v.mu.Unlock()
	return nil
}

func (v *recordingVideo) GetFrameCount() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *recordingVideo) SetStatus(s StatusLine) {
	v.mu.Lock()
	v.status = s
	v.mu.Unlock()
}

func (v *recordingVideo) SetInputHandler(h InputHandler) {
	v.mu.Lock()
	v.input = h
	v.mu.Unlock()
}

func (v *recordingVideo) lastStatus() StatusLine {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// newTestMachine powers on a machine whose ROM starts with program and is
// NOP everywhere else.
func newTestMachine(t *testing.T, program []byte, opts ...func(*MachineConfig)) (*Machine, *recordingVideo) {
	t.Helper()
	rom := make([]byte, aceROMSize)
	copy(rom, program)
	video := &recordingVideo{}
	cfg := MachineConfig{ROM: rom, Video: video}
	for _, o := range opts {
		o(&cfg)
	}
	m, err := NewMachine(cfg)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	return m, video
}

func withRefresh(n int) func(*MachineConfig) {
	return func(c *MachineConfig) { c.Refresh = n }
}

func stepMachine(t *testing.T, m *Machine, n int) {
	t.Helper()
	for range n {
		require.NoError(t, m.runStep(context.Background()))
	}
}

func TestNewMachine_RejectsBadROM(t *testing.T) {
	_, err := NewMachine(MachineConfig{ROM: make([]byte, 100)})
	require.Error(t, err)
	var machineErr *MachineError
	require.True(t, errors.As(err, &machineErr))
	assert.Equal(t, "load ROM", machineErr.Operation)
	assert.Equal(t, "Couldn't load ROM.", machineErr.Details)

	_, err = NewMachine(MachineConfig{ROMPath: filepath.Join(t.TempDir(), "ace.rom")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewMachine_ROMFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ace.rom")
	rom := make([]byte, aceROMSize)
	rom[0] = 0xF3
	require.NoError(t, os.WriteFile(path, rom, 0o644))

	m, err := NewMachine(MachineConfig{ROMPath: path})
	require.NoError(t, err)
	assert.Equal(t, byte(0xF3), m.Memory().Fetch(0))
}

func TestNewMachine_PowerOnState(t *testing.T) {
	m, video := newTestMachine(t, nil)

	mem := m.Memory()
	for _, addr := range []uint16{0x2000, 0x2400, 0x3000, 0x8000, 0xFFFF} {
		assert.Equalf(t, byte(0xFF), mem.Fetch(addr), "RAM %04X", addr)
	}
	assert.Equal(t, []byte{0xED, 0xFC, 0xC9}, mem.Snapshot(tapeLoadTrapAddr, 3))
	assert.Equal(t, []byte{0xED, 0xFD, 0xC9}, mem.Snapshot(tapeSaveTrapAddr, 3))
	assert.False(t, mem.Writable(0))

	cpu := m.CPU()
	assert.Equal(t, uint16(0), cpu.PC)
	assert.Equal(t, uint64(0), cpu.Tstates)
	assert.False(t, cpu.IFF1)

	assert.Equal(t, SpeedNormal, m.Status().Speed)
	assert.Equal(t, m, video.input)
}

func TestMachine_LoadAndIncrement(t *testing.T) {
	// LD A,5 ; INC A
	m, _ := newTestMachine(t, []byte{0x3E, 0x05, 0x3C})

	stepMachine(t, m, 2)

	cpu := m.CPU()
	assert.Equal(t, byte(6), cpu.A)
	assert.Equal(t, uint16(3), cpu.PC)
	assert.Equal(t, uint64(11), cpu.Tstates)
}

func TestMachine_InterruptAfterEIShadow(t *testing.T) {
	// EI ; NOP
	m, _ := newTestMachine(t, []byte{0xFB, 0x00})
	m.Timing().Tick()

	stepMachine(t, m, 1)
	assert.Equal(t, uint16(1), m.CPU().PC, "no interrupt straight after EI")
	assert.Equal(t, requestInterrupt, m.Timing().Pending())

	stepMachine(t, m, 1)
	cpu := m.CPU()
	assert.Equal(t, uint16(z80InterruptVector), cpu.PC)
	assert.Equal(t, uint16(0xFFFE), cpu.SP)
	assert.Equal(t, uint16(2), m.Memory().Fetch16(0xFFFE))
	assert.False(t, cpu.IFF1)
	assert.False(t, cpu.IFF2)
	assert.Equal(t, uint64(4+4+13), cpu.Tstates)
	assert.Equal(t, requestIdle, m.Timing().Pending())
}

func TestMachine_RefusedInterruptIsConsumed(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.Timing().Tick()

	stepMachine(t, m, 1)
	assert.Equal(t, uint16(1), m.CPU().PC)
	assert.Equal(t, requestIdle, m.Timing().Pending())
	assert.Equal(t, uint64(4), m.CPU().Tstates)
}

func TestMachine_ResetBeatsInterrupt(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.CPU().A = 0x42
	m.CPU().SP = 0x8000
	m.Timing().Tick()
	m.Timing().RequestReset()

	stepMachine(t, m, 1)
	cpu := m.CPU()
	assert.Equal(t, uint16(0), cpu.PC)
	assert.Equal(t, byte(0), cpu.A)
	assert.Equal(t, uint16(0), cpu.SP)
	assert.Equal(t, uint64(0), cpu.Tstates)
	assert.Equal(t, requestIdle, m.Timing().Pending())
}

// runStepAsync runs one step on its own goroutine. The caller must not
// touch the machine until the returned channel delivers.
func runStepAsync(ctx context.Context, m *Machine) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- m.runStep(ctx) }()
	return errc
}

func TestMachine_OverrunWaitsForTick(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.CPU().Tstates = m.Timing().Budget()

	errc := runStepAsync(context.Background(), m)
	select {
	case err := <-errc:
		t.Fatalf("step returned before a tick: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	m.Timing().Tick()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("step did not resume after a tick")
	}
	assert.Equal(t, uint64(0), m.CPU().Tstates)
	assert.Equal(t, uint16(1), m.CPU().PC)
	assert.Equal(t, requestIdle, m.Timing().Pending())
}

func TestMachine_OverrunAfterSpeedChangeWaits(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.SetSpeed(SpeedUnthrottled)
	m.SetSpeed(SpeedNormal)
	m.CPU().Tstates = m.Timing().Budget()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.runStep(ctx), context.DeadlineExceeded)
	assert.Equal(t, m.Timing().Budget()+4, m.CPU().Tstates)
}

func TestMachine_CancelWhileThrottledKeepsState(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	cpu := m.CPU()
	cpu.Tstates = m.Timing().Budget()
	cpu.A = 0x5A
	want := cpu.Z80Registers
	want.PC++
	want.R++
	want.Tstates += 4
	ram := m.Memory().Snapshot(aceRAMBase, 0x1000)

	ctx, cancel := context.WithCancel(context.Background())
	errc := runStepAsync(ctx, m)
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("step ignored cancellation")
	}
	assert.Equal(t, want, cpu.Z80Registers)
	assert.Equal(t, ram, m.Memory().Snapshot(aceRAMBase, 0x1000))

	// A later run picks up where the cancelled one stopped.
	m.Timing().Tick()
	stepMachine(t, m, 1)
	assert.Equal(t, uint16(2), cpu.PC)
	assert.Equal(t, uint64(0), cpu.Tstates)
	assert.Equal(t, byte(0x5A), cpu.A)
}

func TestMachine_UnthrottledNeverWaits(t *testing.T) {
	m, _ := newTestMachine(t, nil, func(c *MachineConfig) { c.Speed = SpeedUnthrottled })
	cpu := m.CPU()
	cpu.Tstates = 1 << 40

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 100 {
		require.NoError(t, m.runStep(ctx))
	}
	assert.Equal(t, uint64(1<<40+400), cpu.Tstates)
	assert.Equal(t, uint16(100), cpu.PC)
}

func TestMachine_ResetReleasesThrottle(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.CPU().Tstates = m.Timing().Budget()
	m.CPU().A = 0x42

	errc := runStepAsync(context.Background(), m)
	m.HostReset()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not release the throttled CPU")
	}
	assert.Equal(t, uint16(0), m.CPU().PC)
	assert.Equal(t, byte(0), m.CPU().A)
	assert.Equal(t, uint64(0), m.CPU().Tstates)
}

func TestMachine_RefreshEveryNTicks(t *testing.T) {
	m, video := newTestMachine(t, nil, withRefresh(2))
	var refreshed int
	m.AddRefreshObserver(func(*Machine) { refreshed++ })

	for range 5 {
		m.Timing().Tick()
		stepMachine(t, m, 1)
	}

	assert.Equal(t, uint64(2), video.GetFrameCount())
	assert.Equal(t, 2, refreshed)
	assert.Equal(t, uint64(2), m.Status().Frames)
	assert.Equal(t, uint64(2), video.lastStatus().Frames)
	assert.Len(t, video.last, aceScreenWidth*aceScreenHeight*4)
}

func TestMachine_PostRunsOnNextTick(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	ran := false
	require.True(t, m.Post(func(*Machine) { ran = true }))

	stepMachine(t, m, 1)
	assert.False(t, ran, "commands wait for a tick")

	m.Timing().Tick()
	stepMachine(t, m, 1)
	assert.True(t, ran)
}

func TestMachine_PostQueueFull(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	for range commandQueueSize {
		require.True(t, m.Post(func(*Machine) {}))
	}
	assert.False(t, m.Post(func(*Machine) {}))
}

func TestMachine_QueryWhileRunning(t *testing.T) {
	// JR -2
	m, _ := newTestMachine(t, []byte{0x18, 0xFE})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer qcancel()
	pc, err := Query(qctx, m, func(m *Machine) uint16 { return m.CPU().PC })
	require.NoError(t, err)
	assert.Equal(t, uint16(0), pc)

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestQuery_ContextEnds(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Query(ctx, m, func(*Machine) int { return 1 })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMachine_HostReset(t *testing.T) {
	// JR -2
	m, _ := newTestMachine(t, []byte{0x18, 0xFE})
	m.Memory().Store(0x4000, 0x12)
	m.Keyboard().Press('q')
	m.CPU().A = 7

	m.HostReset()
	assert.Equal(t, byte(0x12), m.Memory().Fetch(0x4000), "RAM is cleared when the CPU takes the reset")

	stepMachine(t, m, 1)
	assert.Equal(t, byte(0xFF), m.Memory().Fetch(0x4000))
	assert.Equal(t, byte(0xFF), m.Keyboard().Row(2))
	assert.Equal(t, byte(0), m.CPU().A)
	assert.Equal(t, uint16(0), m.CPU().PC)
	assert.Equal(t, requestIdle, m.Timing().Pending())
}

func TestMachine_PlainResetKeepsRAM(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.Memory().Store(0x4000, 0x12)

	m.Timing().RequestReset()
	stepMachine(t, m, 1)
	assert.Equal(t, byte(0x12), m.Memory().Fetch(0x4000))
	assert.Equal(t, uint16(0), m.CPU().PC)
}

func TestMachine_LoadTrapReadsEmptyTape(t *testing.T) {
	// LD HL,0x4000 ; CALL load trap
	m, _ := newTestMachine(t, []byte{0x21, 0x00, 0x40, 0xCD, 0xA7, 0x18})
	requestTapeFile(m.Memory(), 0x00, "other")

	stepMachine(t, m, 3)
	assert.Equal(t, "other", extractTapeName(m.Memory(), 0x4001))
	assert.Equal(t, "Found file: other", m.Status().Tape)

	stepMachine(t, m, 1)
	assert.Equal(t, uint16(6), m.CPU().PC, "trap returns to the caller")
}

func TestMachine_SaveTrapWithoutTape(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.CPU().SetHL(0x4000)
	m.CPU().SetDE(26)
	m.SaveTrap(m.CPU())
	assert.Equal(t, "No tape file attached.", m.Status().Tape)
}

func TestMachine_SpoolFastRestoresSpeed(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	var events []SpoolerEvent
	m.AddSpoolerObserver(func(ev SpoolerEvent) { events = append(events, ev) })

	path := filepath.Join(t.TempDir(), "prog.fs")
	require.NoError(t, os.WriteFile(path, []byte("1 2 +"), 0o644))
	require.NoError(t, m.SpoolFast(path))
	assert.Equal(t, SpeedUnthrottled, m.Timing().Speed())
	assert.True(t, m.Status().Spooler)

	m.Spooler().Close()
	assert.Equal(t, SpeedNormal, m.Timing().Speed())
	assert.False(t, m.Status().Spooler)
	assert.Equal(t, []SpoolerEvent{SpoolerOpened, SpoolerClosed}, events)
}

func TestMachine_SpoolFastMissingFile(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	require.Error(t, m.SpoolFast(filepath.Join(t.TempDir(), "absent")))
	assert.Equal(t, SpeedNormal, m.Timing().Speed())
}

func TestMachine_HandleKey(t *testing.T) {
	m, _ := newTestMachine(t, nil)

	m.HandleKey(KeyEvent{Key: 'q', Pressed: true})
	assert.Equal(t, byte(0xFE), m.Keyboard().Row(2))
	m.HandleKey(KeyEvent{Key: 'q'})
	assert.Equal(t, byte(0xFF), m.Keyboard().Row(2))

	m.HandleKey(KeyEvent{Host: HostKeyToggleSpeed, Pressed: true})
	assert.Equal(t, SpeedUnthrottled, m.Status().Speed)
	m.HandleKey(KeyEvent{Host: HostKeyToggleSpeed})
	assert.Equal(t, SpeedUnthrottled, m.Status().Speed, "host keys act on press only")

	quit := false
	m.SetQuitFunc(func() { quit = true })
	m.HandleKey(KeyEvent{Host: HostKeyQuit, Pressed: true})
	assert.True(t, quit)
}

func TestMachine_KeysIgnoredWhileSpooling(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.HandlePaste("abc")
	require.True(t, m.Spooler().Active())

	m.HandleKey(KeyEvent{Key: 'q', Pressed: true})
	assert.Equal(t, byte(0xFF), m.Keyboard().Row(2))
}

type scriptedPrompter struct {
	answer string
	asked  chan string
}

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.asked <- label
	return p.answer, nil
}

func TestMachine_AttachTapeFromPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompted.tap")
	prompt := &scriptedPrompter{answer: path, asked: make(chan string, 1)}
	m, _ := newTestMachine(t, nil, func(c *MachineConfig) { c.Prompt = prompt })

	m.HandleKey(KeyEvent{Host: HostKeyAttachTape, Pressed: true})
	assert.Equal(t, "Enter tape image file:", <-prompt.asked)
	require.Eventually(t, m.Tape().Attached, 2*time.Second, time.Millisecond)
}

func TestMachine_WaitFrames(t *testing.T) {
	m, _ := newTestMachine(t, nil, withRefresh(1))

	require.NoError(t, m.WaitFrames(context.Background(), 0))

	done := make(chan error, 1)
	go func() { done <- m.WaitFrames(context.Background(), 2) }()

	var result error
	require.Eventually(t, func() bool {
		m.Timing().Tick()
		if err := m.runStep(context.Background()); err != nil {
			return false
		}
		select {
		case result = <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
	assert.NoError(t, result)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.WaitFrames(ctx, 1), context.Canceled)
}

func TestMachine_ShutdownStopsVideo(t *testing.T) {
	m, video := newTestMachine(t, nil)
	path := filepath.Join(t.TempDir(), "t.tap")
	require.NoError(t, m.Tape().Attach(path))

	m.Shutdown()
	assert.False(t, m.Tape().Attached())
	assert.True(t, video.stopped)
}
