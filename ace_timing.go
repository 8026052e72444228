// ace_timing.go - Interrupt and speed governor for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Request states shared between the tick goroutine and the CPU goroutine.
const (
	requestIdle int32 = iota
	requestInterrupt
	requestReset
)

type Speed int

const (
	SpeedNormal Speed = iota
	SpeedUnthrottled
)

func (s Speed) String() string {
	if s == SpeedUnthrottled {
		return "fast"
	}
	return "normal"
}

type speedProfile struct {
	hz     int
	budget uint64
}

var speedProfiles = map[Speed]speedProfile{
	SpeedNormal:      {hz: 50, budget: 62500},
	SpeedUnthrottled: {hz: 1000, budget: math.MaxUint64},
}

// TimingController turns a fixed-rate tick into interrupt requests and
// paces the CPU to a T-state budget per tick. Tick and RequestReset may be
// called from any goroutine; Consume and WaitTick belong to the CPU loop.
type TimingController struct {
	state atomic.Int32
	wake  chan struct{}

	budget atomic.Uint64

	mu     sync.Mutex
	speed  Speed
	ticker *time.Ticker
}

func NewTimingController() *TimingController {
	t := &TimingController{wake: make(chan struct{}, 1)}
	t.budget.Store(speedProfiles[SpeedNormal].budget)
	return t
}

// Tick raises an interrupt unless a request is already pending, then wakes
// a throttled CPU. Ticks that land on a pending request are lost.
func (t *TimingController) Tick() {
	t.state.CompareAndSwap(requestIdle, requestInterrupt)
	t.nudge()
}

func (t *TimingController) nudge() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// RequestReset overrides any pending interrupt and releases a throttled
// CPU so the reset is taken without waiting for the next tick.
func (t *TimingController) RequestReset() {
	t.state.Store(requestReset)
	t.nudge()
}

// Consume returns the pending request and clears it.
func (t *TimingController) Consume() int32 {
	return t.state.Swap(requestIdle)
}

// Pending reports the current request without consuming it.
func (t *TimingController) Pending() int32 {
	return t.state.Load()
}

func (t *TimingController) Budget() uint64 {
	return t.budget.Load()
}

// ResetBudget drops any queued wake-up so the CPU starts a fresh tick
// window. WaitTick then only returns for a tick raised after the call.
func (t *TimingController) ResetBudget() {
	select {
	case <-t.wake:
	default:
	}
}

// WaitTick blocks until the next tick. It reports false when ctx ended
// first.
func (t *TimingController) WaitTick(ctx context.Context) bool {
	select {
	case <-t.wake:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *TimingController) Speed() Speed {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// SetSpeed switches the tick rate and budget. A running ticker is
// reprogrammed in place; CPU state is not touched. Going unthrottled
// releases a CPU blocked on the old period; going back to normal drops any
// stale wake-up so the next overrun waits for a real tick.
func (t *TimingController) SetSpeed(s Speed) {
	profile, ok := speedProfiles[s]
	if !ok {
		return
	}
	t.mu.Lock()
	t.speed = s
	t.budget.Store(profile.budget)
	if t.ticker != nil {
		t.ticker.Reset(tickPeriod(profile.hz))
	}
	t.mu.Unlock()
	if s == SpeedUnthrottled {
		t.nudge()
	} else {
		t.ResetBudget()
	}
}

func tickPeriod(hz int) time.Duration {
	return time.Second / time.Duration(hz)
}

// Start runs the tick source until ctx is cancelled. The returned channel
// closes once the goroutine has exited.
func (t *TimingController) Start(ctx context.Context) <-chan struct{} {
	t.mu.Lock()
	ticker := time.NewTicker(tickPeriod(speedProfiles[t.speed].hz))
	t.ticker = ticker
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			t.mu.Lock()
			ticker.Stop()
			if t.ticker == ticker {
				t.ticker = nil
			}
			t.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Tick()
			}
		}
	}()
	return done
}
