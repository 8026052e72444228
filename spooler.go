// spooler.go - Keyboard spooler for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

type SpoolerEvent int

const (
	SpoolerOpened SpoolerEvent = iota
	SpoolerClosed
	SpoolerOpenError
)

func (e SpoolerEvent) String() string {
	switch e {
	case SpoolerOpened:
		return tr("Opened spool file.")
	case SpoolerClosed:
		return tr("Closed spool file.")
	case SpoolerOpenError:
		return tr("Couldn't open spool file.")
	}
	return "unknown spooler event"
}

type SpoolerObserver func(SpoolerEvent)

type spoolerState int

const (
	spoolerInactive spoolerState = iota
	spoolerReadChar
	spoolerClearChar
)

// SpoolKeys is the part of the keyboard the spooler drives.
type SpoolKeys interface {
	Press(key AceKey) bool
	Clear()
}

type spoolSource struct {
	r      *bufio.Reader
	closer io.Closer
}

// Spooler types queued text into the keyboard, one character per display
// refresh: one refresh holds the key down, the next releases everything.
type Spooler struct {
	mu       sync.Mutex
	keys     SpoolKeys
	state    spoolerState
	sources  []spoolSource
	observer SpoolerObserver
}

func NewSpooler(keys SpoolKeys, observer SpoolerObserver) *Spooler {
	if observer == nil {
		observer = func(SpoolerEvent) {}
	}
	return &Spooler{keys: keys, observer: observer}
}

// Open queues the contents of a file.
func (s *Spooler) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		s.observer(SpoolerOpenError)
		return &MachineError{Operation: "spool", Details: path, Err: err}
	}
	s.enqueue(spoolSource{r: bufio.NewReader(f), closer: f})
	return nil
}

// Type queues literal text.
func (s *Spooler) Type(text string) {
	if text == "" {
		return
	}
	s.enqueue(spoolSource{r: bufio.NewReader(strings.NewReader(text))})
}

func (s *Spooler) enqueue(src spoolSource) {
	s.mu.Lock()
	s.sources = append(s.sources, src)
	opened := s.state == spoolerInactive
	if opened {
		s.state = spoolerReadChar
		s.keys.Clear()
	}
	s.mu.Unlock()

	if opened {
		s.observer(SpoolerOpened)
	}
}

func (s *Spooler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != spoolerInactive
}

// Step advances the spooler by one display refresh.
func (s *Spooler) Step() {
	s.mu.Lock()
	switch s.state {
	case spoolerReadChar:
		s.state = spoolerClearChar
		r, ok := s.nextRune()
		if !ok {
			s.closeLocked()
			s.mu.Unlock()
			s.observer(SpoolerClosed)
			return
		}
		s.keys.Press(AceKey(r))
	case spoolerClearChar:
		s.state = spoolerReadChar
		s.keys.Clear()
	}
	s.mu.Unlock()
}

// Close drops everything queued. It notifies Closed only if the spooler
// was running.
func (s *Spooler) Close() {
	s.mu.Lock()
	if s.state == spoolerInactive {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.mu.Unlock()
	s.observer(SpoolerClosed)
}

func (s *Spooler) nextRune() (rune, bool) {
	for len(s.sources) > 0 {
		src := s.sources[0]
		r, _, err := src.r.ReadRune()
		if err == nil {
			return r, true
		}
		if src.closer != nil {
			src.closer.Close()
		}
		s.sources = s.sources[1:]
	}
	return 0, false
}

func (s *Spooler) closeLocked() {
	for _, src := range s.sources {
		if src.closer != nil {
			src.closer.Close()
		}
	}
	s.sources = nil
	s.state = spoolerInactive
	s.keys.Clear()
}
