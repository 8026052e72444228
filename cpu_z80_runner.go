package main

import (
	"context"
	"errors"
	"sync"
)

// aceBus connects the Z80 to the ACE memory map and port decoder. The
// port address is split the way the hardware sees it: the low byte selects
// the device and the high byte carries the keyboard row select.
type aceBus struct {
	mem   *AceMemory
	ports *AcePorts
}

func (b *aceBus) Read(addr uint16) byte {
	return b.mem.Fetch(addr)
}

func (b *aceBus) Write(addr uint16, value byte) {
	b.mem.Store(addr, value)
}

func (b *aceBus) In(port uint16) byte {
	return b.ports.ReadPort(byte(port>>8), byte(port))
}

func (b *aceBus) Out(port uint16, value byte) {
	b.ports.WritePort(byte(port>>8), byte(port), value)
}

// MachineRunner runs a Machine on its own goroutine.
type MachineRunner struct {
	machine *Machine

	execMu     sync.Mutex
	execDone   chan struct{}
	execActive bool
	cancel     context.CancelFunc
	err        error
}

func NewMachineRunner(m *Machine) *MachineRunner {
	return &MachineRunner{machine: m}
}

func (r *MachineRunner) IsRunning() bool {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.execActive
}

// StartExecution spawns the CPU goroutine. It does nothing if one is
// already running.
func (r *MachineRunner) StartExecution(ctx context.Context) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.execActive {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.execActive = true
	r.cancel = cancel
	r.err = nil
	r.execDone = make(chan struct{})
	go func() {
		err := r.machine.Run(ctx)
		r.execMu.Lock()
		if !errors.Is(err, context.Canceled) {
			r.err = err
		}
		r.execActive = false
		close(r.execDone)
		r.execMu.Unlock()
	}()
}

// Done is closed when the CPU goroutine exits.
func (r *MachineRunner) Done() <-chan struct{} {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.execDone == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return r.execDone
}

// Stop cancels the CPU goroutine and waits for it. It returns the error the
// loop ended with, if any besides cancellation.
func (r *MachineRunner) Stop() error {
	r.execMu.Lock()
	if !r.execActive {
		err := r.err
		r.execMu.Unlock()
		return err
	}
	r.cancel()
	done := r.execDone
	r.execMu.Unlock()
	<-done

	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.err
}
