//go:build headless

package main

import (
	"sync"
	"sync/atomic"
)

// HeadlessVideoOutput keeps the last frame in memory. With a frame limit
// it ends Run after that many frames, which is how scripted and CI runs
// stop.
type HeadlessVideoOutput struct {
	mu         sync.Mutex
	started    bool
	config     DisplayConfig
	frameCount atomic.Uint64
	last       []byte
	status     StatusLine
	input      InputHandler
	limit      uint64
	done       chan struct{}
	stopOnce   sync.Once
}

func newVideoOutput(frames uint64) (VideoOutput, error) {
	return NewHeadlessVideoOutput(frames), nil
}

// NewHeadlessVideoOutput returns a backend whose Run ends after limit
// frames; zero means run until Stop.
func NewHeadlessVideoOutput(limit uint64) *HeadlessVideoOutput {
	return &HeadlessVideoOutput{
		config: DefaultDisplayConfig(1),
		limit:  limit,
		done:   make(chan struct{}),
	}
}

func (h *HeadlessVideoOutput) Start() error {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) Run() error {
	<-h.done
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
	h.stopOnce.Do(func() { close(h.done) })
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	h.config = config
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	h.mu.Lock()
	h.last = append(h.last[:0], buffer...)
	h.mu.Unlock()
	if n := h.frameCount.Add(1); h.limit > 0 && n >= h.limit {
		h.Stop()
	}
	return nil
}

// LastFrame returns a copy of the most recent frame.
func (h *HeadlessVideoOutput) LastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.last...)
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}

func (h *HeadlessVideoOutput) SetStatus(status StatusLine) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

func (h *HeadlessVideoOutput) SetInputHandler(in InputHandler) {
	h.mu.Lock()
	h.input = in
	h.mu.Unlock()
}
