package main

import (
	"context"
	"sync"
)

type machineStatusSnapshot struct {
	speed    Speed
	tape     string
	spooling bool
	frames   uint64
}

// machineStatusStore is written by the CPU goroutine and the collaborators'
// observers, and read by the GUI, scripts and the remote console.
type machineStatusStore struct {
	mu sync.RWMutex
	machineStatusSnapshot

	// frameSignal is closed and replaced on every refresh.
	frameSignal chan struct{}
}

func (s *machineStatusStore) init() {
	s.mu.Lock()
	s.frameSignal = make(chan struct{})
	s.mu.Unlock()
}

func (s *machineStatusStore) setSpeed(speed Speed) {
	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()
}

func (s *machineStatusStore) setTape(msg string) {
	s.mu.Lock()
	s.tape = msg
	s.mu.Unlock()
}

func (s *machineStatusStore) setSpooling(on bool) {
	s.mu.Lock()
	s.spooling = on
	s.mu.Unlock()
}

func (s *machineStatusStore) advanceFrame() uint64 {
	s.mu.Lock()
	s.frames++
	n := s.frames
	close(s.frameSignal)
	s.frameSignal = make(chan struct{})
	s.mu.Unlock()
	return n
}

func (s *machineStatusStore) snapshot() machineStatusSnapshot {
	s.mu.RLock()
	snap := s.machineStatusSnapshot
	s.mu.RUnlock()
	return snap
}

func (s *machineStatusStore) waitFrames(ctx context.Context, n uint64) error {
	s.mu.RLock()
	target := s.frames + n
	s.mu.RUnlock()
	for {
		s.mu.RLock()
		done := s.frames >= target
		signal := s.frameSignal
		s.mu.RUnlock()
		if done {
			return nil
		}
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
